// CLAUDE:SUMMARY HTTP surface: report, recommendation, trip streaming, and registry admin endpoints.
package hatch

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/riverbind/hatchwatch/internal/store"
	"github.com/riverbind/hatchwatch/internal/trip"
)

// RegisterHTTP mounts the service API on a chi router.
func (s *Service) RegisterHTTP(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/recommendations", s.handleRecommendations)
		r.Post("/reports", s.handleReports)
		r.Post("/trips/recommendations", s.handleTripRecommendations)

		r.Get("/waters", s.handleListWaters)
		r.Post("/waters", s.handleCreateWater)
		r.Get("/waters/{id}", s.handleGetWater)

		r.Get("/sources", s.handleListSources)
		r.Post("/sources", s.handleAddSource)
		r.Post("/sources/{id}/reset", s.handleResetSource)
		r.Delete("/sources/{id}", s.handleRemoveSource)
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RecommendationRequest is the body for POST /api/v1/recommendations.
type RecommendationRequest struct {
	WaterBodyID  string `json:"water_body_id"`
	ForceRefresh bool   `json:"force_refresh"`
}

// RecommendationResponse is the success shape for POST /api/v1/recommendations.
type RecommendationResponse struct {
	Recommendations   []store.FlyRecommendation `json:"recommendations"`
	ConditionsSummary string                    `json:"conditions_summary"`
	FishingReport     *store.FishingReport      `json:"fishing_report,omitempty"`
}

func (s *Service) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var req RecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.WaterBodyID == "" {
		writeError(w, http.StatusBadRequest, "water_body_id required")
		return
	}

	set, err := s.Recommendations(r.Context(), req.WaterBodyID, req.ForceRefresh)
	if err != nil {
		s.writeServiceError(w, err, "recommendations")
		return
	}
	writeJSON(w, http.StatusOK, RecommendationResponse{
		Recommendations:   set.Recommendations,
		ConditionsSummary: set.ConditionsSummary,
		FishingReport:     set.Report,
	})
}

// ReportRequest is the body for POST /api/v1/reports. One of id or name is
// required.
type ReportRequest struct {
	WaterBodyID   string `json:"water_body_id,omitempty"`
	WaterBodyName string `json:"water_body_name,omitempty"`
	ForceRefresh  bool   `json:"force_refresh"`
}

func (s *Service) handleReports(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.WaterBodyID == "" && req.WaterBodyName == "" {
		writeError(w, http.StatusBadRequest, "water_body_id or water_body_name required")
		return
	}

	res, err := s.WaterReport(r.Context(), req.WaterBodyID, req.WaterBodyName, req.ForceRefresh)
	if err != nil {
		// Empty result sets are informational, not failures.
		if errors.Is(err, ErrNoSources) || errors.Is(err, ErrNoReport) {
			writeJSON(w, http.StatusOK, map[string]any{"report": nil, "message": err.Error()})
			return
		}
		s.writeServiceError(w, err, "reports")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// TripRequest is the body for POST /api/v1/trips/recommendations.
type TripRequest struct {
	Waters []trip.Water `json:"waters"`
}

// handleTripRecommendations streams NDJSON: one {done,total} progress event
// per completed water, then a terminal {recommendations} or {error} line.
func (s *Service) handleTripRecommendations(w http.ResponseWriter, r *http.Request) {
	var req TripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	emit := func(v any) {
		enc.Encode(v)
		if flusher != nil {
			flusher.Flush()
		}
	}

	recs, err := s.TripRecommendations(r.Context(), req.Waters, func(p trip.Progress) {
		emit(map[string]any{"done": p.Done, "total": p.Total})
	})
	if err != nil {
		emit(map[string]string{"error": err.Error()})
		return
	}
	emit(map[string]any{"recommendations": recs})
}

func (s *Service) handleListWaters(w http.ResponseWriter, r *http.Request) {
	waters, err := s.ListWaters(r.Context())
	if err != nil {
		s.writeServiceError(w, err, "list waters")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"waters": waters})
}

func (s *Service) handleCreateWater(w http.ResponseWriter, r *http.Request) {
	var body store.WaterBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	water, err := s.CreateWater(r.Context(), &body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, water)
}

func (s *Service) handleGetWater(w http.ResponseWriter, r *http.Request) {
	water, err := s.GetWater(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, err, "get water")
		return
	}
	writeJSON(w, http.StatusOK, water)
}

func (s *Service) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.ListSources(r.Context())
	if err != nil {
		s.writeServiceError(w, err, "list sources")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
}

func (s *Service) handleAddSource(w http.ResponseWriter, r *http.Request) {
	var body store.ShopSource
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	src, err := s.AddSource(r.Context(), &body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, src)
}

func (s *Service) handleResetSource(w http.ResponseWriter, r *http.Request) {
	if err := s.ResetSource(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, err, "reset source")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Service) handleRemoveSource(w http.ResponseWriter, r *http.Request) {
	if err := s.RemoveSource(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, err, "remove source")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// writeServiceError maps sentinel errors onto status codes and hides
// internals behind a generic 500.
func (s *Service) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrWaterNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNoSources), errors.Is(err, ErrNoReport), errors.Is(err, trip.ErrNoWaters), errors.Is(err, trip.ErrAllWatersFailed):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("request failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
