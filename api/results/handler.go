// Package results exposes the latest pipeline run over HTTP. All endpoints
// are read-only and serve from the in-memory run store, so responses never
// block on a running pipeline.
package results

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/runstore"
)

// Handler serves run results from a store.
type Handler struct {
	store runstore.Store
}

// NewHandler returns a Handler reading from store.
func NewHandler(store runstore.Store) *Handler {
	return &Handler{store: store}
}

// Router mounts every endpoint and returns the router.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.GetHealth).Methods(http.MethodGet)
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/run", h.GetRun).Methods(http.MethodGet)
	api.HandleFunc("/forecasts", h.GetForecasts).Methods(http.MethodGet)
	api.HandleFunc("/forecasts/{station}", h.GetStationForecasts).Methods(http.MethodGet)
	api.HandleFunc("/evaluations", h.GetEvaluations).Methods(http.MethodGet)
	api.HandleFunc("/stations", h.GetStations).Methods(http.MethodGet)
	return r
}

// GetHealth handles GET /healthz.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	_, ok := h.store.Latest()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "run_loaded": ok})
}

// GetRun handles GET /api/run and returns the latest run summary.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	res, ok := h.store.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no completed run yet")
		return
	}
	writeJSON(w, http.StatusOK, res.Summary())
}

// GetForecasts handles GET /api/forecasts. An optional station query
// parameter narrows the rows to one station.
func (h *Handler) GetForecasts(w http.ResponseWriter, r *http.Request) {
	res, ok := h.store.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no completed run yet")
		return
	}
	rows := res.Forecasts
	if id := r.URL.Query().Get("station"); id != "" {
		rows = res.StationForecasts(id)
	}
	if rows == nil {
		rows = []model.ForecastRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// GetStationForecasts handles GET /api/forecasts/{station} and returns 404
// when the station has no rows in the latest run.
func (h *Handler) GetStationForecasts(w http.ResponseWriter, r *http.Request) {
	res, ok := h.store.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no completed run yet")
		return
	}
	id := mux.Vars(r)["station"]
	rows := res.StationForecasts(id)
	if len(rows) == 0 {
		writeError(w, http.StatusNotFound, "no forecasts for station "+id)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// GetEvaluations handles GET /api/evaluations. The list is empty when the
// run used no holdout.
func (h *Handler) GetEvaluations(w http.ResponseWriter, r *http.Request) {
	res, ok := h.store.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no completed run yet")
		return
	}
	recs := res.Evaluations
	if recs == nil {
		recs = []model.EvaluationRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// GetStations handles GET /api/stations and returns the station directory
// attached to the latest run.
func (h *Handler) GetStations(w http.ResponseWriter, r *http.Request) {
	res, ok := h.store.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no completed run yet")
		return
	}
	stations := res.Stations
	if stations == nil {
		stations = []model.StationInfo{}
	}
	writeJSON(w, http.StatusOK, stations)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
