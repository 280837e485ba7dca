package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/raceiq/raceiq-console-go/pkg/report"
)

// handleCharts serves the lap trend page for one race. Debugging-only
// route for eyeballing the derived data without the dashboard frontend.
func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	data, err := s.data.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, statusFromErr(err), err.Error())
		return
	}
	var buf bytes.Buffer
	if err := report.Render(&buf, data, s.catalog.Heuristics.ConsistencyWindow); err != nil {
		s.writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
