package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/raceiq/raceiq-console-go/log"
	"github.com/raceiq/raceiq-console-go/pkg/dataset"
	"github.com/raceiq/raceiq-console-go/pkg/model"
	"github.com/raceiq/raceiq-console-go/pkg/processing/laps"
)

// Handler returns the route table. Start wraps it with CORS and h2c;
// tests mount it directly.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/races", s.handleRaces)
	mux.HandleFunc("GET /api/races/{id}/laps", s.handleLaps)
	mux.HandleFunc("GET /api/races/{id}/consistency", s.handleConsistency)
	mux.HandleFunc("GET /api/races/{id}/aggregates", s.handleAggregates)
	mux.HandleFunc("GET /api/races/{id}/kpis", s.handleKPIs)
	mux.HandleFunc("GET /api/races/{id}/standings", s.handleStandings)
	mux.HandleFunc("GET /api/races/{id}/pacedelta", s.handlePaceDelta)
	mux.HandleFunc("GET /api/races/{id}/weather", s.handleWeather)
	mux.HandleFunc("GET /api/races/{id}/results", s.handleResults)
	mux.HandleFunc("GET /api/races/{id}/inspect", s.handleInspect)
	mux.HandleFunc("GET /api/session", s.handleSessionGet)
	mux.HandleFunc("PUT /api/session", s.requireAdmin(s.handleSessionPut))
	mux.HandleFunc("POST /api/session/live/start", s.requireAdmin(s.handleLiveStart))
	mux.HandleFunc("POST /api/session/live/stop", s.requireAdmin(s.handleLiveStop))
	mux.HandleFunc("GET /api/live/stream", s.handleLiveStream)
	mux.HandleFunc("GET /debug/charts/{id}", s.handleCharts)
	return mux
}

type raceInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// handleRaces lists the catalog entries. Intentionally metadata only:
// listing must not trigger a load of every race.
func (s *Server) handleRaces(w http.ResponseWriter, _ *http.Request) {
	ret := make([]raceInfo, 0, len(s.catalog.Races))
	for i := range s.catalog.Races {
		ret = append(ret, raceInfo{ID: s.catalog.Races[i].ID, Name: s.catalog.Races[i].Name})
	}
	s.writeJSON(w, ret)
}

func (s *Server) handleLaps(w http.ResponseWriter, r *http.Request) {
	data, err := s.data.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, statusFromErr(err), err.Error())
		return
	}
	records := data.Laps
	if vehicle := r.URL.Query().Get("vehicle"); vehicle != model.AllVehicles {
		records = laps.ByVehicle(records)[vehicle]
	}
	if records == nil {
		// unknown vehicles yield an empty set, never an error
		records = []model.LapRecord{}
	}
	s.writeJSON(w, records)
}

func (s *Server) handleConsistency(w http.ResponseWriter, r *http.Request) {
	series, err := s.proc.Consistency(r.Context(), model.SelectionState{
		RaceID:        r.PathValue("id"),
		VehicleFilter: r.URL.Query().Get("vehicle"),
	})
	if err != nil {
		s.writeError(w, statusFromErr(err), err.Error())
		return
	}
	s.writeJSON(w, series)
}

func (s *Server) handleAggregates(w http.ResponseWriter, r *http.Request) {
	if snap := s.snapshotForRequest(w, r); snap != nil {
		s.writeJSON(w, snap.Aggregates)
	}
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	if snap := s.snapshotForRequest(w, r); snap != nil {
		s.writeJSON(w, snap.KPI)
	}
}

func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	if snap := s.snapshotForRequest(w, r); snap != nil {
		s.writeJSON(w, snap.Standings)
	}
}

func (s *Server) handlePaceDelta(w http.ResponseWriter, r *http.Request) {
	vehicle := r.URL.Query().Get("vehicle")
	rival := r.URL.Query().Get("rival")
	if vehicle == "" || rival == "" {
		s.writeError(w, http.StatusBadRequest,
			"vehicle and rival query parameters are required")
		return
	}
	ret, err := s.proc.PaceDelta(r.Context(), r.PathValue("id"), vehicle, rival)
	if err != nil {
		s.writeError(w, statusFromErr(err), err.Error())
		return
	}
	s.writeJSON(w, ret)
}

type weatherResponse struct {
	Samples []model.WeatherSample `json:"samples"`
	Impacts []model.WeatherImpact `json:"impacts"`
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	raceID := r.PathValue("id")
	data, err := s.data.Get(r.Context(), raceID)
	if err != nil {
		s.writeError(w, statusFromErr(err), err.Error())
		return
	}
	impacts, err := s.proc.WeatherImpacts(r.Context(), raceID, r.URL.Query().Get("vehicle"))
	if err != nil {
		s.writeError(w, statusFromErr(err), err.Error())
		return
	}
	ret := weatherResponse{Samples: data.Weather, Impacts: impacts}
	if ret.Samples == nil {
		ret.Samples = []model.WeatherSample{}
	}
	s.writeJSON(w, ret)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	data, err := s.data.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, statusFromErr(err), err.Error())
		return
	}
	ret := data.Results
	if ret == nil {
		ret = []model.ResultRow{}
	}
	s.writeJSON(w, ret)
}

func (s *Server) handleSessionGet(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.sessions.Current())
}

func (s *Server) handleSessionPut(w http.ResponseWriter, r *http.Request) {
	var next model.SelectionState
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	sel, err := s.sessions.Apply(r.Context(), next)
	if err != nil {
		s.writeError(w, statusFromErr(err), err.Error())
		return
	}
	s.writeJSON(w, sel)
}

func (s *Server) handleLiveStart(w http.ResponseWriter, _ *http.Request) {
	if s.ticker == nil {
		s.writeError(w, http.StatusServiceUnavailable, "live mode not configured")
		return
	}
	sel := s.sessions.SetLive(true)
	s.ticker.Start(s.ctx)
	s.l.Info("live mode started",
		log.String("race", sel.RaceID), log.Int("lap", sel.LapFilter))
	s.writeJSON(w, sel)
}

func (s *Server) handleLiveStop(w http.ResponseWriter, _ *http.Request) {
	if s.ticker == nil {
		s.writeError(w, http.StatusServiceUnavailable, "live mode not configured")
		return
	}
	s.ticker.Stop()
	sel := s.sessions.SetLive(false)
	s.l.Info("live mode stopped",
		log.String("race", sel.RaceID), log.Int("lap", sel.LapFilter))
	s.writeJSON(w, sel)
}

// snapshotForRequest recomputes a snapshot for the race in the path
// plus the optional vehicle/lap query filters. A missing lap selects
// the whole race. Errors are written to w, callers bail out on nil.
func (s *Server) snapshotForRequest(w http.ResponseWriter, r *http.Request) *model.Snapshot {
	sel := model.SelectionState{
		RaceID:        r.PathValue("id"),
		VehicleFilter: r.URL.Query().Get("vehicle"),
	}
	if arg := r.URL.Query().Get("lap"); arg != "" {
		lap, err := strconv.Atoi(arg)
		if err != nil || lap < 1 {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid lap %q", arg))
			return nil
		}
		sel.LapFilter = lap
	} else {
		data, err := s.data.Get(r.Context(), sel.RaceID)
		if err != nil {
			s.writeError(w, statusFromErr(err), err.Error())
			return nil
		}
		sel.LapFilter = data.MaxLap(sel.VehicleFilter)
	}
	snap, err := s.proc.Recompute(r.Context(), sel)
	if err != nil {
		s.writeError(w, statusFromErr(err), err.Error())
		return nil
	}
	return snap
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.l.Error("encoding response", log.ErrorField(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // nothing left to report on a failed error write
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// statusFromErr maps the dataset sentinels to their HTTP status: an
// unknown race is 404, unavailable source data 503, the rest 500.
func statusFromErr(err error) int {
	switch {
	case errors.Is(err, dataset.ErrUnknownRace):
		return http.StatusNotFound
	case errors.Is(err, dataset.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
