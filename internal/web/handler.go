// Package web exposes the suggestion store and apply engine over a JSON
// HTTP API. The review pipeline registers suggestions here; reviewers (or
// the MCP bridge) apply or reject them.
package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/patchops/suggestd/internal/apply"
	"github.com/patchops/suggestd/internal/suggestion"
)

// Handler handles suggestion API requests
type Handler struct {
	store *suggestion.Store
	orch  *apply.Orchestrator
}

// NewHandler creates a new suggestion API handler
func NewHandler(store *suggestion.Store, orch *apply.Orchestrator) *Handler {
	return &Handler{store: store, orch: orch}
}

// RegisterRoutes registers the suggestion API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/suggestions", h.handleCreate).Methods("POST")
	r.HandleFunc("/suggestions", h.handleList).Methods("GET")
	r.HandleFunc("/suggestions/{id}", h.handleGet).Methods("GET")
	r.HandleFunc("/suggestions/{id}/apply", h.handleApply).Methods("POST")
	r.HandleFunc("/suggestions/{id}/reject", h.handleReject).Methods("POST")
	r.HandleFunc("/healthz", h.handleHealth).Methods("GET")
}

type createRequest struct {
	Agent    string `json:"agent"`
	Message  string `json:"message"`
	Patch    string `json:"patch"`
	FilePath string `json:"file_path"`
}

type suggestionResponse struct {
	ID       string `json:"id"`
	Agent    string `json:"agent,omitempty"`
	Message  string `json:"message,omitempty"`
	FilePath string `json:"file_path"`
	Status   string `json:"status"`
	PRNumber int    `json:"pr_number,omitempty"`
	PRURL    string `json:"pr_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Patch == "" || req.FilePath == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "patch and file_path are required"})
		return
	}

	id := h.store.Create(&suggestion.Suggestion{
		Agent:    req.Agent,
		Message:  req.Message,
		Patch:    req.Patch,
		FilePath: req.FilePath,
	})
	log.Printf("[Web] Registered suggestion %s for %s from agent %q", id, req.FilePath, req.Agent)

	sugg, err := h.store.Get(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(sugg))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list := h.store.List()
	out := make([]suggestionResponse, 0, len(list))
	for _, sugg := range list {
		out = append(out, toResponse(sugg))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	sugg, err := h.store.Get(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "suggestion not found"})
		return
	}
	writeJSON(w, http.StatusOK, toResponse(sugg))
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	result, err := h.orch.ApplySuggestion(r.Context(), id)
	if err != nil {
		writeApplyError(w, id, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.orch.RejectSuggestion(id); err != nil {
		writeApplyError(w, id, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(suggestion.StatusRejected)})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeApplyError maps guard failures to HTTP statuses: unknown ids are
// 404, status-guard losses ("already applying", "already applied") and
// file-lock losses are 409.
func writeApplyError(w http.ResponseWriter, id string, err error) {
	var statusErr *suggestion.StatusError
	switch {
	case errors.Is(err, suggestion.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "suggestion not found"})
	case errors.As(err, &statusErr), errors.Is(err, apply.ErrFileBusy):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		log.Printf("[Web] Suggestion %s: internal error: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func toResponse(sugg *suggestion.Suggestion) suggestionResponse {
	return suggestionResponse{
		ID:       sugg.ID,
		Agent:    sugg.Agent,
		Message:  sugg.Message,
		FilePath: sugg.FilePath,
		Status:   string(sugg.Status),
		PRNumber: sugg.PRNumber,
		PRURL:    sugg.PRURL,
		Error:    sugg.Error,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Web] Failed to encode response: %v", err)
	}
}
