package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"pricetrack/internal/domain"
	"pricetrack/internal/extractor"
	"pricetrack/internal/storage"
)

// handleValidateURL checks whether a URL points at an extractable
// product before the caller commits to tracking it. An unsupported
// platform and a failed extraction are distinct outcomes, not errors.
func (s *Server) handleValidateURL(w http.ResponseWriter, r *http.Request) {
	var req domain.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.URL == "" {
		s.respondWithJSON(w, http.StatusOK, domain.ValidateResponse{
			Valid: false, Message: "No URL provided",
		})
		return
	}

	// URL-only pre-check: cheap, and markup detection gets its say
	// during extraction anyway.
	platform := extractor.DetectPlatform(req.URL, "")
	if platform == domain.PlatformUnknown {
		s.respondWithJSON(w, http.StatusOK, domain.ValidateResponse{
			Valid: false, Message: "Unsupported platform",
		})
		return
	}

	rec := s.pipeline.Extract(r.Context(), req.URL)
	if !rec.HasPrice() {
		s.respondWithJSON(w, http.StatusOK, domain.ValidateResponse{
			Valid: false, Message: "Could not extract product information",
		})
		return
	}

	s.respondWithJSON(w, http.StatusOK, domain.ValidateResponse{
		Valid:    true,
		Platform: rec.Platform,
		Name:     rec.Name,
		Price:    rec.Price,
		Currency: rec.Currency,
	})
}

// handleTrack registers URLs for periodic price checks. URLs that do
// not parse or belong to no supported platform are reported back as
// skipped rather than failing the whole request.
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	var req domain.TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.URLs) == 0 {
		s.respondWithError(w, http.StatusBadRequest, "URLs list cannot be empty")
		return
	}

	resp := domain.TrackResponse{Skipped: make(map[string]string)}
	for _, u := range req.URLs {
		if _, err := url.ParseRequestURI(u); err != nil {
			resp.Skipped[u] = "invalid URL"
			continue
		}
		platform := extractor.DetectPlatform(u, "")
		if platform == domain.PlatformUnknown {
			resp.Skipped[u] = "unsupported platform"
			continue
		}
		if _, err := s.store.TrackURL(r.Context(), u, platform); err != nil {
			s.logger.Error("failed to track URL", zap.String("url", u), zap.Error(err))
			resp.Skipped[u] = "storage error"
			continue
		}
		resp.Tracked = append(resp.Tracked, u)
	}
	if len(resp.Skipped) == 0 {
		resp.Skipped = nil
	}

	s.respondWithJSON(w, http.StatusAccepted, resp)
}

// handleUpdatePrices triggers a full price run. Guarded by a shared
// API key so external schedulers can call it.
func (s *Server) handleUpdatePrices(w http.ResponseWriter, r *http.Request) {
	if s.config.APIKey == "" || r.Header.Get("X-API-Key") != s.config.APIKey {
		s.respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	updated := s.checker.RunOnce(r.Context())
	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"updated": updated,
	})
}

func (s *Server) handleStatusRequest(w http.ResponseWriter, r *http.Request) {
	urlParam := r.URL.Query().Get("url")
	if urlParam == "" {
		s.respondWithError(w, http.StatusBadRequest, "URL query parameter is required")
		return
	}

	status, err := s.store.URLStatus(r.Context(), urlParam)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondWithError(w, http.StatusNotFound, "URL is not tracked")
			return
		}
		s.logger.Error("failed to get URL status", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not retrieve status")
		return
	}

	s.respondWithJSON(w, http.StatusOK, domain.URLStatusResponse{
		URL:         status.URL,
		Platform:    status.Platform,
		IsValid:     status.IsValid,
		LastChecked: status.LastChecked,
	})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.Products(r.Context())
	if err != nil {
		s.logger.Error("failed to list products", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not list products")
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	s.respondWithJSON(w, http.StatusOK, products)
}

func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid product id")
		return
	}

	entries, err := s.store.PriceHistory(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to load price history", zap.Int64("product_id", id), zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not load price history")
		return
	}
	if entries == nil {
		entries = []domain.PriceEntry{}
	}
	s.respondWithJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	healthStatus := make(map[string]string)

	if err := s.store.Ping(ctx); err != nil {
		healthStatus["postgres"] = "unhealthy"
		s.logger.Error("health check failed for postgres", zap.Error(err))
	} else {
		healthStatus["postgres"] = "healthy"
	}

	if err := s.cache.Ping(ctx); err != nil {
		healthStatus["redis"] = "unhealthy"
		s.logger.Error("health check failed for redis", zap.Error(err))
	} else {
		healthStatus["redis"] = "healthy"
	}

	isHealthy := healthStatus["postgres"] == "healthy" && healthStatus["redis"] == "healthy"
	if !isHealthy {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}

	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
