package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SelectionRequest changes the mail selection: "all", "none", or the listed
// ids.
type SelectionRequest struct {
	Mode string   `json:"mode" validate:"required,oneof=all none ids"`
	IDs  []string `json:"ids,omitempty"`
}

func (s *Server) handleListMails(w http.ResponseWriter, r *http.Request) {
	if filter := r.URL.Query().Get("filter"); filter != "" {
		s.app.Mails.SetFilter(filter)
	} else {
		s.app.Mails.SetFilter("")
	}
	respondJSON(w, http.StatusOK, s.app.Mails.FilteredMails())
}

func (s *Server) handleFetchMails(w http.ResponseWriter, r *http.Request) {
	s.app.Mails.Fetch(r.Context())
	respondJSON(w, http.StatusOK, s.app.Mails.Mails())
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	switch req.Mode {
	case "all":
		s.app.Mails.SelectAll()
	case "none":
		s.app.Mails.DeselectAll()
	default:
		for _, id := range req.IDs {
			s.app.Mails.Select(id, true)
		}
	}
	respondJSON(w, http.StatusOK, s.app.Mails.SelectedMails())
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.app.Mails.Summarize(r.Context(), id) {
		respondJSONError(w, http.StatusBadGateway, "generation_failed", "Could not summarize mail")
		return
	}
	m, _ := s.app.Mails.Get(id)
	respondJSON(w, http.StatusOK, m)
}

func (s *Server) handleGenerateReply(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.app.Mails.GenerateReply(r.Context(), id) {
		respondJSONError(w, http.StatusBadGateway, "generation_failed", "Could not generate reply")
		return
	}
	m, _ := s.app.Mails.Get(id)
	respondJSON(w, http.StatusOK, m)
}

func (s *Server) handleTriage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.app.Mails.Triage(r.Context(), id) {
		respondJSONError(w, http.StatusBadGateway, "triage_failed", "Triage produced no applicable tool calls")
		return
	}
	m, _ := s.app.Mails.Get(id)
	respondJSON(w, http.StatusOK, m)
}

func (s *Server) handleSummarizeAll(w http.ResponseWriter, r *http.Request) {
	s.app.Mails.SummarizeAll(r.Context())
	respondJSON(w, http.StatusOK, s.app.Mails.Mails())
}

func (s *Server) handleGenerateReplies(w http.ResponseWriter, r *http.Request) {
	s.app.Mails.GenerateReplies(r.Context())
	respondJSON(w, http.StatusOK, s.app.Mails.Mails())
}

func (s *Server) handleTriageAll(w http.ResponseWriter, r *http.Request) {
	s.app.Mails.TriageAll(r.Context())
	respondJSON(w, http.StatusOK, s.app.Mails.Mails())
}
