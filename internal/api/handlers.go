package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"applyd/internal/connectors"
	"applyd/internal/logging"
	"applyd/internal/queue"
)

const maxRequestBody = 4 << 20

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Jobs) == 0 {
		s.writeError(w, http.StatusBadRequest, "no jobs in request")
		return
	}

	resp := ApplyResponse{Results: make([]ApplyEntry, 0, len(req.Jobs))}
	for _, job := range req.Jobs {
		payload, err := json.Marshal(job)
		if err != nil {
			resp.Results = append(resp.Results, ApplyEntry{Error: "encode job: " + err.Error()})
			continue
		}
		taskID, err := s.engine.Enqueue(r.Context(), payload)
		if err != nil {
			resp.Results = append(resp.Results, ApplyEntry{Error: err.Error()})
			continue
		}
		resp.Results = append(resp.Results, ApplyEntry{TaskID: taskID})
		resp.Queued++
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleApplications(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListApplications(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := ApplicationsResponse{Items: make([]ApplicationItem, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, toApplicationItem(item))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleApplication(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid application id")
		return
	}
	item, err := s.store.GetApplicationStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "application not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, toApplicationItem(item))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.searcher == nil {
		s.writeError(w, http.StatusServiceUnavailable, "search is not configured")
		return
	}
	var req connectors.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	results, err := s.searcher.Search(r.Context(), req)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	counts := make(map[string]int, len(stats))
	for status, n := range stats {
		counts[string(status)] = n
	}
	s.writeJSON(w, http.StatusOK, StatusResponse{
		Running:     true,
		PID:         currentPID(),
		QueueDBPath: s.store.Path(),
		Workers:     s.workers,
		Counts:      counts,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.store.CheckHealth(r.Context())
	if err != nil {
		s.logger.Warn("health check failed", logging.Error(err))
		s.writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Healthy: false,
			DBPath:  health.DBPath,
			Error:   err.Error(),
		})
		return
	}
	healthy := health.DatabaseExists && health.DatabaseReadable &&
		health.IntegrityCheck && len(health.MissingColumns) == 0 && health.Error == ""
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, HealthResponse{
		Healthy:        healthy,
		DBPath:         health.DBPath,
		TablesPresent:  health.TablesPresent,
		MissingColumns: health.MissingColumns,
		IntegrityCheck: health.IntegrityCheck,
		TotalTasks:     health.TotalTasks,
		Error:          health.Error,
	})
}

func toApplicationItem(src *queue.ApplicationStatus) ApplicationItem {
	return ApplicationItem{
		ApplicationID: src.Application.ID,
		URL:           src.Application.URL,
		Company:       src.Application.Company,
		Title:         src.Application.Title,
		Portal:        src.Application.Portal,
		TaskID:        src.TaskID,
		Status:        src.Status,
		Attempts:      src.Attempts,
		Error:         src.Error,
		Artifacts:     src.Artifacts,
		CreatedAt:     src.Application.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     src.Application.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
