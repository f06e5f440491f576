package observer

import (
	"fmt"
	"net/http"
)

// MetricsHandler serves the latest world metrics in the Prometheus text format.
func (s *Server) MetricsHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := s.src.Metrics()
		id := s.src.ID()
		tick := m.Tick
		if tick == "" {
			tick = "0"
		}

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP hakoniwa_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE hakoniwa_world_tick gauge\n")
		fmt.Fprintf(rw, "hakoniwa_world_tick{world=%q} %s\n", id, tick)

		fmt.Fprintf(rw, "# HELP hakoniwa_world_steps_total Ticks applied by this process.\n")
		fmt.Fprintf(rw, "# TYPE hakoniwa_world_steps_total counter\n")
		fmt.Fprintf(rw, "hakoniwa_world_steps_total{world=%q} %d\n", id, m.Steps)

		fmt.Fprintf(rw, "# HELP hakoniwa_world_objects Live objects.\n")
		fmt.Fprintf(rw, "# TYPE hakoniwa_world_objects gauge\n")
		fmt.Fprintf(rw, "hakoniwa_world_objects{world=%q} %d\n", id, m.Objects)

		fmt.Fprintf(rw, "# HELP hakoniwa_world_memory Events held in world memory.\n")
		fmt.Fprintf(rw, "# TYPE hakoniwa_world_memory gauge\n")
		fmt.Fprintf(rw, "hakoniwa_world_memory{world=%q} %d\n", id, m.Memory)

		fmt.Fprintf(rw, "# HELP hakoniwa_world_step_ms Last tick step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE hakoniwa_world_step_ms gauge\n")
		fmt.Fprintf(rw, "hakoniwa_world_step_ms{world=%q} %.3f\n", id, m.StepMS)

		fmt.Fprintf(rw, "# HELP hakoniwa_observer_sessions Connected observer sessions.\n")
		fmt.Fprintf(rw, "# TYPE hakoniwa_observer_sessions gauge\n")
		fmt.Fprintf(rw, "hakoniwa_observer_sessions{world=%q} %d\n", id, s.bcast.Subscribers())

		fmt.Fprintf(rw, "# HELP hakoniwa_observer_dropped_total Ticks dropped from slow observer sessions.\n")
		fmt.Fprintf(rw, "# TYPE hakoniwa_observer_dropped_total counter\n")
		fmt.Fprintf(rw, "hakoniwa_observer_dropped_total{world=%q} %d\n", id, s.bcast.Dropped())
	}
}
