package models

// BenchmarkSample is one timed run of a benchmark feature
type BenchmarkSample struct {
	Mode      string  `json:"mode" yaml:"mode"`
	Iteration int     `json:"iteration" yaml:"iteration"`
	Seconds   float64 `json:"seconds" yaml:"seconds"`
}
