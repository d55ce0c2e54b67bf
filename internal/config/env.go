package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/ludo-technologies/cloneval/domain"
)

// EnvPrefix is prepended to every environment override, e.g. CLONEVAL_SEED
const EnvPrefix = "CLONEVAL"

// Environment override keys. The variable name is the upper-cased key with
// EnvPrefix, so "tool_timeout_seconds" is read from CLONEVAL_TOOL_TIMEOUT_SECONDS.
const (
	EnvSeed               = "seed"
	EnvEscalationBudget   = "escalation_budget"
	EnvToolTimeout        = "tool_timeout_seconds"
	EnvToolWorkingDir     = "tool_working_dir"
	EnvMaxReportedPairs   = "max_reported_pairs"
	EnvSampleSize         = "sample_size"
	EnvConfidenceLevel    = "confidence_level"
	EnvMaxWorkers         = "max_workers"
	EnvCorpusIndex        = "corpus_index"
	EnvReferencePath      = "reference_path"
	EnvOracleTimeout      = "oracle_timeout_seconds"
	EnvOutputFormat       = "output_format"
	EnvIntervalMethod     = "interval_method"
	EnvAllowPartialSample = "allow_partial_sample"
)

var envKeys = []string{
	EnvSeed, EnvEscalationBudget, EnvToolTimeout, EnvToolWorkingDir,
	EnvMaxReportedPairs, EnvSampleSize, EnvConfidenceLevel, EnvMaxWorkers,
	EnvCorpusIndex, EnvReferencePath, EnvOracleTimeout, EnvOutputFormat,
	EnvIntervalMethod, EnvAllowPartialSample,
}

// newEnvViper returns a viper instance bound to the CLONEVAL_ variables
func newEnvViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// ApplyEnv overrides req with CLONEVAL_* environment variables. Values that
// cannot be parsed are a configuration error rather than being ignored.
func ApplyEnv(req *domain.EvaluationRequest) error {
	v := newEnvViper()
	get := func(key string) (string, bool) {
		if !v.IsSet(key) {
			return "", false
		}
		s := strings.TrimSpace(v.GetString(key))
		return s, s != ""
	}

	if s, ok := get(EnvSeed); ok {
		seed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return envError(EnvSeed, err)
		}
		req.Sampling.Seed = domain.Uint64Ptr(seed)
	}
	if s, ok := get(EnvConfidenceLevel); ok {
		level, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return envError(EnvConfidenceLevel, err)
		}
		req.Sampling.ConfidenceLevel = level
	}
	if s, ok := get(EnvAllowPartialSample); ok {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return envError(EnvAllowPartialSample, err)
		}
		req.Sampling.AllowPartialSample = domain.BoolPtr(b)
	}

	ints := []struct {
		key string
		set func(int)
	}{
		{EnvEscalationBudget, func(n int) { req.Oracle.EscalationBudget = domain.IntPtr(n) }},
		{EnvToolTimeout, func(n int) { req.Tool.TimeoutSeconds = n }},
		{EnvMaxReportedPairs, func(n int) { req.Tool.MaxReportedPairs = n }},
		{EnvSampleSize, func(n int) { req.Sampling.SampleSize = n }},
		{EnvMaxWorkers, func(n int) { req.MaxWorkers = n }},
		{EnvOracleTimeout, func(n int) { req.Oracle.TimeoutSeconds = n }},
	}
	for _, e := range ints {
		s, ok := get(e.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return envError(e.key, err)
		}
		e.set(n)
	}

	if s, ok := get(EnvToolWorkingDir); ok {
		req.Tool.WorkingDir = s
	}
	if s, ok := get(EnvCorpusIndex); ok {
		req.CorpusIndexPath = s
	}
	if s, ok := get(EnvReferencePath); ok {
		req.ReferencePath = s
	}
	if s, ok := get(EnvIntervalMethod); ok {
		req.Sampling.IntervalMethod = domain.IntervalMethod(s)
	}
	if s, ok := get(EnvOutputFormat); ok {
		format, err := domain.ParseOutputFormat(s)
		if err != nil {
			return envError(EnvOutputFormat, err)
		}
		req.OutputFormat = format
	}
	return nil
}

func envError(key string, err error) error {
	name := EnvPrefix + "_" + strings.ToUpper(key)
	return domain.NewConfigError(fmt.Sprintf("invalid value for %s", name), err)
}
