package api

import (
	"encoding/json"
	"net/http"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

type inspectResponse struct {
	Path    string `json:"path"`
	Results []any  `json:"results"`
}

// handleInspect evaluates a JSONPath expression against the loaded
// race data. Debugging aid: one route answers ad hoc questions about
// what the loader actually produced.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	arg := r.URL.Query().Get("path")
	if arg == "" {
		s.writeError(w, http.StatusBadRequest, "path query parameter is required")
		return
	}
	path, err := jp.ParseString(arg)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid path: "+err.Error())
		return
	}
	data, err := s.data.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, statusFromErr(err), err.Error())
		return
	}
	// Round-trip through encoding/json so field names and the Metric
	// null convention match what the regular routes serve.
	doc, err := json.Marshal(map[string]any{
		"race":          data.Race,
		"laps":          data.Laps,
		"samples":       data.Samples,
		"preaggregated": data.Preaggregated,
		"weather":       data.Weather,
		"results":       data.Results,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	obj, err := oj.Parse(doc)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	results := path.Get(obj)
	if results == nil {
		results = []any{}
	}
	s.writeJSON(w, inspectResponse{Path: arg, Results: results})
}
