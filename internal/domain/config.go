package domain

// KeyPrefix namespaces every key dishola writes to a shared KV store.
const KeyPrefix = "dishola:"

// PipelineConfig holds aggregation tuning, not exposed to clients.
type PipelineConfig struct {
	RadiusMiles   float64
	DBCandidates  int
	DBLimit       int
	AIResults     int
	ProgressiveAI bool
	ProgressEvery int
}

// DefaultPipelineConfig returns the defaults used when nothing is configured.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		RadiusMiles:   75,
		DBCandidates:  50,
		DBLimit:       15,
		AIResults:     15,
		ProgressiveAI: false,
		ProgressEvery: 20,
	}
}
