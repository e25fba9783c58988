package cmd

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/tsundoku-app/tsundoku/internal/config"
	"github.com/tsundoku-app/tsundoku/internal/core"
	"github.com/tsundoku-app/tsundoku/internal/download"
	"github.com/tsundoku-app/tsundoku/internal/utils"
)

// APIHandler handles HTTP API requests
type APIHandler struct {
	service core.Service
	port    int
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(service core.Service, port int) *APIHandler {
	return &APIHandler{service: service, port: port}
}

// Routes registers every endpoint on a new mux.
func (h *APIHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/events", h.Events)
	mux.HandleFunc("/status", h.Status)
	mux.HandleFunc("/queue", h.Queue)
	mux.HandleFunc("/add", h.Add)
	mux.HandleFunc("/pause", h.Pause)
	mux.HandleFunc("/resume", h.Resume)
	mux.HandleFunc("/clear", h.Clear)
	mux.HandleFunc("/remove", h.Remove)
	mux.HandleFunc("/history", h.History)
	mux.HandleFunc("/toggles", h.Toggles)
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Debug("Failed to encode response: %v", err)
	}
}

// writeError maps service errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, download.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, download.ErrInvalidItem):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// Health check endpoint (Public)
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "ok",
		"port":    h.port,
		"version": Version,
	})
}

// Events streams queue status changes and download events as SSE (Protected)
func (h *APIHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	statuses, err := h.service.StreamStatus(r.Context())
	if err != nil {
		http.Error(w, "Failed to subscribe to status", http.StatusInternalServerError)
		return
	}
	events, err := h.service.StreamEvents(r.Context())
	if err != nil {
		http.Error(w, "Failed to subscribe to events", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	send := func(msg any) bool {
		name := core.EventName(msg)
		if name == "" {
			return true
		}
		data, err := json.Marshal(msg)
		if err != nil {
			utils.Debug("Error marshaling event: %v", err)
			return true
		}
		// event: <type>
		// data: <json>
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	for statuses != nil || events != nil {
		select {
		case <-r.Context().Done():
			return
		case st, ok := <-statuses:
			if !ok {
				statuses = nil
				continue
			}
			if !send(st) {
				return
			}
		case msg, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !send(msg) {
				return
			}
		}
	}
}

// Status endpoint (Protected)
func (h *APIHandler) Status(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	st, err := h.service.Status()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, st)
}

// Queue endpoint (Protected)
func (h *APIHandler) Queue(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	items, err := h.service.Queue()
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []download.Item{}
	}
	writeJSON(w, items)
}

// Add endpoint (Protected)
func (h *APIHandler) Add(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			utils.Debug("Error closing body: %v", err)
		}
	}()

	var req core.AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Kind == "" {
		req.Kind = download.KindManga
	}
	if strings.Contains(req.DestDir, "..") {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}

	utils.Debug("Received add request: kind=%s urls=%d dest=%s", req.Kind, len(req.URLs), req.DestDir)

	added, err := h.service.Add(req)
	if err != nil {
		writeError(w, err)
		return
	}
	if added == nil {
		added = []download.Item{}
	}
	writeJSON(w, added)
}

// Pause endpoint (Protected)
func (h *APIHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "paused", h.service.Pause)
}

// Resume endpoint (Protected)
func (h *APIHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "resumed", h.service.Resume)
}

// Clear endpoint (Protected)
func (h *APIHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "cleared", h.service.Clear)
}

func (h *APIHandler) action(w http.ResponseWriter, r *http.Request, done string, fn func() error) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if err := fn(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": done})
}

// Remove endpoint (Protected)
func (h *APIHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete && r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}

	if err := h.service.Remove(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "removed", "id": id})
}

// History endpoint (Protected)
func (h *APIHandler) History(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	history, err := h.service.History(limit)
	if err != nil {
		http.Error(w, "Failed to retrieve history: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []download.HistoryEntry{}
	}
	writeJSON(w, history)
}

// Toggles endpoint: GET reads, POST changes (Protected)
func (h *APIHandler) Toggles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		t, err := h.service.Toggles()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, t)
	case http.MethodPost:
		var req core.ToggleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		t, err := h.service.SetToggles(req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, t)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// newServerHandler wraps the API with auth and CORS (CORS outermost so
// 401 responses carry its headers)
func newServerHandler(service core.Service, port int, token string) http.Handler {
	return corsMiddleware(authMiddleware(token, NewAPIHandler(service, port).Routes()))
}

// startHTTPServer serves the API on an existing listener until it is closed
func startHTTPServer(ln net.Listener, port int, service core.Service) *http.Server {
	server := &http.Server{Handler: newServerHandler(service, port, ensureAuthToken())}
	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			utils.Debug("HTTP server error: %v", err)
		}
	}()
	return server
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func authMiddleware(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Allow health check without auth
		if r.URL.Path == "/health" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		provided, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if ok && len(provided) == len(token) && subtle.ConstantTimeCompare([]byte(provided), []byte(token)) == 1 {
			next.ServeHTTP(w, r)
			return
		}

		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}

func tokenPath() string {
	return filepath.Join(config.GetStateDir(), "token")
}

// ensureAuthToken returns the API token, creating one on first use
func ensureAuthToken() string {
	data, err := os.ReadFile(tokenPath())
	if err == nil {
		if token := strings.TrimSpace(string(data)); token != "" {
			return token
		}
	}

	token := uuid.New().String()
	if err := os.MkdirAll(filepath.Dir(tokenPath()), 0o755); err != nil {
		utils.Debug("Failed to create state dir: %v", err)
	}
	if err := os.WriteFile(tokenPath(), []byte(token), 0o600); err != nil {
		utils.Debug("Failed to write token file: %v", err)
	}
	return token
}
