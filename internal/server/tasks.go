package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jpkmiller/coach/internal/models"
	"github.com/jpkmiller/coach/internal/task"
)

// CreateTaskRequest creates a task at root level or under a parent.
type CreateTaskRequest struct {
	Title    string     `json:"title" validate:"required,min=1,max=500"`
	Priority *int       `json:"priority,omitempty" validate:"omitempty,min=1,max=3"`
	DueDate  *time.Time `json:"dueDate,omitempty"`
	ParentID string     `json:"parentId,omitempty"`
}

// UpdateTaskRequest shallow-merges fields into an existing task.
type UpdateTaskRequest struct {
	Title     *string    `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Completed *bool      `json:"completed,omitempty"`
	Priority  *int       `json:"priority,omitempty" validate:"omitempty,min=1,max=3"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
}

// SortTasksRequest orders the root-level tasks.
type SortTasksRequest struct {
	By        string `json:"by" validate:"required,oneof=priority dueDate createdDate"`
	Ascending *bool  `json:"ascending,omitempty"`
}

// GenerateSuggestionsRequest selects a suggestion source. For source "text"
// Input is the text to extract tasks from.
type GenerateSuggestionsRequest struct {
	Source string `json:"source" validate:"required,oneof=calendar mail text"`
	Input  string `json:"input,omitempty"`
	Prompt string `json:"prompt,omitempty"`
}

// PromoteSuggestionRequest promotes the suggestion at Index into a task.
type PromoteSuggestionRequest struct {
	Index *int `json:"index" validate:"required,min=0"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("flat") == "true" {
		respondJSON(w, http.StatusOK, s.app.Tasks.FlatTasks())
		return
	}
	respondJSON(w, http.StatusOK, s.app.Tasks.Tasks())
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	priority := models.PriorityMedium
	if req.Priority != nil {
		priority = models.Priority(*req.Priority)
	}

	id := s.app.Tasks.Add(r.Context(), task.AddRequest{
		Title:    req.Title,
		Priority: priority,
		DueDate:  req.DueDate,
	}, req.ParentID)
	if id == "" {
		respondJSONError(w, http.StatusNotFound, "parent_not_found", "Parent task does not exist")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	updates := task.Updates{
		Title:     req.Title,
		Completed: req.Completed,
		DueDate:   req.DueDate,
	}
	if req.Priority != nil {
		p := models.Priority(*req.Priority)
		updates.Priority = &p
	}

	if !s.app.Tasks.Update(r.Context(), mux.Vars(r)["id"], updates) {
		respondJSONError(w, http.StatusNotFound, "task_not_found", "Task does not exist")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if !s.app.Tasks.Remove(r.Context(), mux.Vars(r)["id"]) {
		respondJSONError(w, http.StatusNotFound, "task_not_found", "Task does not exist")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

func (s *Server) handleSortTasks(w http.ResponseWriter, r *http.Request) {
	var req SortTasksRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	ascending := true
	if req.Ascending != nil {
		ascending = *req.Ascending
	}
	s.app.Tasks.Sort(r.Context(), models.TaskSortKey(req.By), ascending)
	respondJSON(w, http.StatusOK, s.app.Tasks.Tasks())
}

func (s *Server) handleBreakIntoSubtasks(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.app.Tasks.BreakIntoSubtasks(r.Context(), id) {
		respondJSONError(w, http.StatusBadGateway, "generation_failed", "Could not generate subtasks")
		return
	}
	respondJSON(w, http.StatusOK, s.app.Tasks.Get(id))
}

func (s *Server) handleListSuggestions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.app.Tasks.Suggestions())
}

func (s *Server) handleGenerateSuggestions(w http.ResponseWriter, r *http.Request) {
	var req GenerateSuggestionsRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	var ok bool
	switch req.Source {
	case "calendar":
		ok = s.app.Tasks.GenerateFromCalendar(r.Context())
	case "mail":
		ok = s.app.Tasks.GenerateFromMail(r.Context())
	default:
		ok = s.app.Tasks.GenerateSuggestionsFromInput(r.Context(), req.Input, req.Prompt)
	}
	if !ok {
		respondJSONError(w, http.StatusBadGateway, "generation_failed", "Could not generate suggestions")
		return
	}
	respondJSON(w, http.StatusOK, s.app.Tasks.Suggestions())
}

func (s *Server) handlePromoteSuggestion(w http.ResponseWriter, r *http.Request) {
	var req PromoteSuggestionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	id := s.app.Tasks.PromoteSuggestion(r.Context(), *req.Index)
	if id == "" {
		respondJSONError(w, http.StatusNotFound, "suggestion_not_found", "No suggestion at that index")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}
