package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"testgen/app/usecase"
	"testgen/internal/domain/entity"
	"testgen/internal/domain/repository"
	"testgen/internal/infrastructure/events"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	settingsService  usecase.SettingsUseCase
	jobService       usecase.JobUsecase
	testFilesService usecase.TestFilesUseCase
	broker           *events.Broker
	logger           *slog.Logger
	upgrader         websocket.Upgrader
}

func NewHandler(
	settingsService usecase.SettingsUseCase,
	jobService usecase.JobUsecase,
	testFilesService usecase.TestFilesUseCase,
	broker *events.Broker,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		settingsService:  settingsService,
		jobService:       jobService,
		testFilesService: testFilesService,
		broker:           broker,
		logger:           logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes mounts the API under prefix ("" mounts at the root).
func (h *Handler) RegisterRoutes(r *mux.Router, prefix string) {
	r.Use(h.withRequestLog, withMetrics)

	api := r
	if prefix != "" {
		api = r.PathPrefix(prefix).Subrouter()
	}

	api.HandleFunc("/config", h.handleGetConfig).Methods(http.MethodGet)
	api.HandleFunc("/config", h.handleUpdateConfig).Methods(http.MethodPost)
	api.HandleFunc("/generate-tests", h.handleGenerateTests).Methods(http.MethodPost)
	api.HandleFunc("/presets", h.handlePresets).Methods(http.MethodGet)

	api.HandleFunc("/jobs", h.handleListJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", h.handleGetJob).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}/files", h.handleGetFiles).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}/events", h.handleJobEvents).Methods(http.MethodGet)

	api.HandleFunc("/status", h.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/posts", h.handlePosts).Methods(http.MethodGet)
	api.HandleFunc("/greet", h.handleGreet).Methods(http.MethodPost)
	api.HandleFunc("/ask", h.handleAsk).Methods(http.MethodPost)
	api.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)

	// Prometheus
	r.Handle("/metrics", promhttp.Handler())
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func decode[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return v, err
	}
	return v, nil
}

// GET /config
func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsService.Get(r.Context())
	if err != nil {
		h.logger.Error("get settings failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve configuration")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type updateConfigResp struct {
	Success bool            `json:"success"`
	Config  entity.Settings `json:"config"`
}

// POST /config
func (h *Handler) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	patch, err := decode[entity.SettingsPatch](w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to update configuration")
		return
	}

	merged, err := h.settingsService.Update(r.Context(), patch)
	if err != nil {
		h.logger.Error("update settings failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to update configuration")
		return
	}
	writeJSON(w, http.StatusOK, updateConfigResp{Success: true, Config: merged})
}

type generateTestsReq struct {
	AnthropicAPIKey      string `json:"anthropicApiKey"`
	SentryAPIKey         string `json:"sentryApiKey"`
	TechSpecification    string `json:"techSpecification"`
	ProductSpecification string `json:"productSpecification"`
	Prompt               string `json:"prompt"`
	PresetID             string `json:"presetId"`
}

type generateTestsResp struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	JobID   string `json:"jobId"`
}

// POST /generate-tests
func (h *Handler) handleGenerateTests(w http.ResponseWriter, r *http.Request) {
	req, err := decode[generateTestsReq](w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Bad request, %v", err))
		return
	}

	settings := entity.Settings{
		AnthropicAPIKey:      req.AnthropicAPIKey,
		SentryAPIKey:         req.SentryAPIKey,
		TechSpecification:    req.TechSpecification,
		ProductSpecification: req.ProductSpecification,
	}
	job, err := h.jobService.Submit(r.Context(), settings, req.Prompt, req.PresetID)
	switch {
	case errors.Is(err, usecase.ErrMissingConfiguration):
		writeError(w, http.StatusBadRequest, "Missing required configuration")
		return
	case errors.Is(err, usecase.ErrUnknownPreset):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("submit job failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate tests")
		return
	}

	writeJSON(w, http.StatusOK, generateTestsResp{
		Success: true,
		Message: "Test generation initiated",
		JobID:   job.ID,
	})
}

// GET /presets
func (h *Handler) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"presets": entity.Presets})
}

// GET /jobs
func (h *Handler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobService.ListJobs(r.Context())
	if err != nil {
		h.logger.Error("list jobs failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []*entity.Job{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

// GET /jobs/{id}
func (h *Handler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, err := h.jobService.GetJob(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, "get job failed", id, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// GET /jobs/{id}/files
func (h *Handler) handleGetFiles(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	files, err := h.testFilesService.GetFilesByJobID(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, "get files failed", id, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"files": files})
}

func (h *Handler) writeLookupError(w http.ResponseWriter, msg, id string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	h.logger.Error(msg, "job_id", id, "err", err)
	writeError(w, http.StatusInternalServerError, "Failed to retrieve job")
}

// GET /health
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok": true,
		"ts": time.Now().UTC(),
	})
}
