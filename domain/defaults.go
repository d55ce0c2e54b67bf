package domain

// Tool adapter defaults. Every request starts with this timeout and a "."
// working dir; a configured timeout <= 0 or an empty working dir is rejected.
const (
	// DefaultToolTimeoutSeconds bounds one detector run.
	DefaultToolTimeoutSeconds = 600

	// DefaultMaxReportedPairs caps raw detector records so a runaway tool
	// cannot exhaust memory.
	DefaultMaxReportedPairs = 5_000_000

	// DefaultOracleTimeoutSeconds bounds one external judge invocation.
	DefaultOracleTimeoutSeconds = 30

	// MaxStderrTail is how much detector stderr is kept for crash reports.
	MaxStderrTail = 4096
)

// Recall sampling defaults.
const (
	// DefaultRecallSampleSize is the number of clone classes sampled per stratum.
	DefaultRecallSampleSize = 100

	// DefaultMinSampleClasses is the smallest class count a stratum must have
	// before its recall is estimated at all.
	DefaultMinSampleClasses = 1

	// DefaultConfidenceLevel is the coverage of recall intervals.
	DefaultConfidenceLevel = 0.95
)

// Reference loading limits.
const (
	// MaxReportedReferenceErrors caps the offending entries listed in a
	// MalformedReferenceError.
	MaxReportedReferenceErrors = 20
)

// Caveat messages attached to a RunResult.
const (
	CaveatPartialSample   = "fewer clone classes than sample_size; all classes used"
	CaveatNoKnownClasses  = "no known clone classes"
	CaveatInsufficient    = "insufficient clone classes for sampling"
	CaveatNoResolvedPairs = "no resolved pairs"
	CaveatNoRecall        = "recall not computable"
	CaveatNoPrecision     = "precision not computable"
	CaveatNoPopulation    = "stratum has no reference population"
)
