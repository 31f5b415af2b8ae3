package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	horuserrors "horus/internal/errors"
	"horus/internal/hostmonitor"
	"horus/internal/service"
	"horus/pkg/models"
)

type handlers struct {
	svc     *service.Context
	hostMon *hostmonitor.Monitor
	log     zerolog.Logger
}

func (h *handlers) submitJob(w http.ResponseWriter, r *http.Request) {
	var req models.JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	jobID, err := h.svc.SubmitJob(req)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"job_id": jobID})
}

func (h *handlers) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	rec, ok := h.svc.GetJob(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handlers) getArtifact(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	name := chi.URLParam(r, "name")

	if _, ok := h.svc.GetJob(jobID); !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	path, ok := h.svc.ArtifactPath(jobID, name)
	if !ok {
		writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	http.ServeFile(w, r, path)
}

func (h *handlers) reloadConfig(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ReloadConfig(r.Context()); err != nil {
		var cfgErr *horuserrors.ConfigError
		if errors.As(err, &cfgErr) {
			writeError(w, http.StatusBadRequest, cfgErr.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ok"}
	if h.hostMon != nil {
		if stats, err := h.hostMon.Stats(r.Context()); err == nil {
			resp["host"] = stats
		}
	}
	resp["queue_depth"] = h.svc.QueueDepth()
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) healthProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ProviderStatuses())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
