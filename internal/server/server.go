package server

import (
	"encoding/json"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/jpkmiller/coach/internal/app"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// maxErrorMessageLength caps error messages echoed back to clients.
const maxErrorMessageLength = 200

// Server exposes the stores over HTTP for the view layer.
type Server struct {
	app      *app.App
	logger   *zap.Logger
	validate *validator.Validate
}

// New creates the HTTP surface over the application graph.
func New(a *app.App, logger *zap.Logger) *Server {
	return &Server{app: a, logger: logger, validate: validator.New()}
}

// Handler builds the router with all routes registered.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/briefing", s.handleBriefing).Methods("GET")

	tasks := api.PathPrefix("/tasks").Subrouter()
	tasks.HandleFunc("", s.handleListTasks).Methods("GET")
	tasks.HandleFunc("", s.handleCreateTask).Methods("POST")
	tasks.HandleFunc("/sort", s.handleSortTasks).Methods("POST")
	tasks.HandleFunc("/suggestions", s.handleListSuggestions).Methods("GET")
	tasks.HandleFunc("/suggestions/generate", s.handleGenerateSuggestions).Methods("POST")
	tasks.HandleFunc("/suggestions/promote", s.handlePromoteSuggestion).Methods("POST")
	tasks.HandleFunc("/{id}", s.handleUpdateTask).Methods("PATCH")
	tasks.HandleFunc("/{id}", s.handleDeleteTask).Methods("DELETE")
	tasks.HandleFunc("/{id}/subtasks", s.handleBreakIntoSubtasks).Methods("POST")

	mails := api.PathPrefix("/mails").Subrouter()
	mails.HandleFunc("", s.handleListMails).Methods("GET")
	mails.HandleFunc("/fetch", s.handleFetchMails).Methods("POST")
	mails.HandleFunc("/selection", s.handleSelection).Methods("POST")
	mails.HandleFunc("/summarize", s.handleSummarizeAll).Methods("POST")
	mails.HandleFunc("/replies", s.handleGenerateReplies).Methods("POST")
	mails.HandleFunc("/triage", s.handleTriageAll).Methods("POST")
	mails.HandleFunc("/{id}/summarize", s.handleSummarize).Methods("POST")
	mails.HandleFunc("/{id}/reply", s.handleGenerateReply).Methods("POST")
	mails.HandleFunc("/{id}/triage", s.handleTriage).Methods("POST")

	var handler http.Handler = r
	if s.app.Config.EnableCORS {
		handler = cors.New(cors.Options{
			AllowedOrigins: []string{s.app.Config.FrontendURL},
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		}).Handler(r)
	}
	return handler
}

// decodeBody reads and validates a JSON request body.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		respondJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return false
	}
	if err := s.validate.Struct(out); err != nil {
		respondJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// Cut on a rune boundary so a multi-byte character straddling the limit
	// never yields invalid UTF-8.
	if len(message) > maxErrorMessageLength {
		cut := maxErrorMessageLength
		for cut > 0 && !utf8.RuneStart(message[cut]) {
			cut--
		}
		message = message[:cut] + "..."
	}

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"backend_reachable": s.app.API.IsReachable(),
	})
}

// LoginRequest carries backend credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if !s.app.Users.Login(r.Context(), req.Username, req.Password) {
		respondJSONError(w, http.StatusUnauthorized, "login_failed", "Invalid credentials or backend unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"logged_in": true})
}

func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	summary := s.app.JeanPhilippe.GenerateSummary(r.Context(), force)
	respondJSON(w, http.StatusOK, map[string]any{"summary": summary})
}
