package world

// WorldMetrics is the latest per-tick summary. Big counters are decimal strings.
type WorldMetrics struct {
	Tick  string `json:"tick"`
	Day   string `json:"day"`
	Year  string `json:"year"`
	Steps uint64 `json:"steps"`

	Objects int `json:"objects"`
	Memory  int `json:"memory"`

	StepMS float64 `json:"step_ms"`
	Digest string  `json:"digest"`
}

func (w *World[E, O]) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}
