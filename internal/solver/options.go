package solver

// Options carries every call-site tunable named in spec §6, plus the
// two behavioral flags spec §9 asks implementers to expose explicitly
// rather than guess at.
type Options struct {
	MaxIterations       int
	DailyLimit          int
	WeeklyLimit         int
	Weights             Weights
	CoolingRate         float64
	ReheatTemperature   float64
	StagnationThreshold int
	ShuffleThreshold    int
	ChainSearchLimit    int
	PriorityKeywords    []string
	Seed                int64
	ProgressEvery       int
	OnProgress          func(iteration, conflictsRemaining int)
	Cancel              <-chan struct{}

	// RevertOnReject selects between the source-equivalent behavior
	// (operators mutate the grid unconditionally; a Metropolis
	// rejection only stops the "current" baseline from advancing, it
	// never undoes the mutation) and a textbook revert-on-reject
	// simulated annealing. Default false reproduces the source. See
	// spec §9 and DESIGN.md.
	RevertOnReject bool

	// UseFullPenaltyAsEnergy selects the annealing energy: the full
	// multi-dimensional penalty (recommended, spec §9) when true, or
	// the legacy rounded conflict-count when false.
	UseFullPenaltyAsEnergy bool
}

// DefaultOptions returns the spec's stated defaults.
func DefaultOptions() Options {
	return Options{
		MaxIterations:          1_000_000,
		DailyLimit:             DefaultDailyLimit,
		WeeklyLimit:            DefaultWeeklyLimit,
		Weights:                DefaultWeights(),
		CoolingRate:            1e-6,
		ReheatTemperature:      0.8,
		StagnationThreshold:    50_000,
		ShuffleThreshold:       200_000,
		ChainSearchLimit:       20,
		PriorityKeywords:       DefaultPriorityKeywords,
		Seed:                   1,
		ProgressEvery:          100_000,
		RevertOnReject:         false,
		UseFullPenaltyAsEnergy: true,
	}
}

func (o Options) normalized() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultOptions().MaxIterations
	}
	if o.DailyLimit <= 0 {
		o.DailyLimit = DefaultDailyLimit
	}
	if o.WeeklyLimit <= 0 {
		o.WeeklyLimit = DefaultWeeklyLimit
	}
	if (o.Weights == Weights{}) {
		o.Weights = DefaultWeights()
	}
	if o.CoolingRate <= 0 {
		o.CoolingRate = 1e-6
	}
	if o.ReheatTemperature <= 0 {
		o.ReheatTemperature = 0.8
	}
	if o.StagnationThreshold <= 0 {
		o.StagnationThreshold = 50_000
	}
	if o.ShuffleThreshold <= 0 {
		o.ShuffleThreshold = 200_000
	}
	if o.ChainSearchLimit <= 0 {
		o.ChainSearchLimit = 20
	}
	if len(o.PriorityKeywords) == 0 {
		o.PriorityKeywords = DefaultPriorityKeywords
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = 100_000
	}
	return o
}
