package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/doughub/engine/internal/engine"
	"github.com/doughub/engine/internal/task"
)

// maxRequestBody bounds task inputs; note bodies are expected to stay
// well under this.
const maxRequestBody = 4 << 20

// runRequest is the body of POST /api/tasks/{id}.
type runRequest struct {
	Input task.Input `json:"input"`
}

// batchRequest is the body of POST /api/tasks.
type batchRequest struct {
	Runs        []batchRun `json:"runs"`
	Concurrency int        `json:"concurrency"`
}

type batchRun struct {
	TaskID string     `json:"task_id"`
	Input  task.Input `json:"input"`
}

type batchResponse struct {
	Results []batchResult `json:"results"`
}

type batchResult struct {
	Outcome *engine.Outcome `json:"outcome,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tasks": s.eng.Tasks()})
}

func (s *Server) handleRunTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req runRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	out, err := s.eng.RunTask(r.Context(), id, req.Input)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, task.ErrNotFound) {
			status = http.StatusNotFound
		}
		s.log.Warn().Err(err).Str("task", id).Msg("task run failed")
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRunBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if len(req.Runs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty batch"})
		return
	}

	reqs := make([]engine.BatchRequest, len(req.Runs))
	for i, run := range req.Runs {
		reqs[i] = engine.BatchRequest{TaskID: run.TaskID, Input: run.Input}
	}

	results, err := s.eng.RunTasks(r.Context(), reqs, req.Concurrency)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	resp := batchResponse{Results: make([]batchResult, len(results))}
	for i, res := range results {
		if res.Err != nil {
			resp.Results[i] = batchResult{Error: res.Err.Error()}
			continue
		}
		resp.Results[i] = batchResult{Outcome: res.Outcome}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{}
	if s.status != nil {
		resp["provider"] = s.status(r.Context())
	}
	if s.state != nil {
		resp["backend"] = s.state().String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClearCache(w http.ResponseWriter, _ *http.Request) {
	s.eng.ClearCache()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// decodeBody decodes a JSON request body into v. An empty body decodes
// to the zero value so POST endpoints work without a payload.
func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return errors.New("reading request body")
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
