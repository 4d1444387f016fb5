package http

import (
	"net/http"

	"farmtrack/internal/core"
)

func (s *Server) handleListMilestones(w http.ResponseWriter, r *http.Request) {
	user := s.userFrom(r)
	milestones, err := s.farm.ListMilestones(r.Context(), user)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, milestones)
}

func (s *Server) handleCreateMilestone(w http.ResponseWriter, r *http.Request) {
	user := s.userFrom(r)
	var m core.Milestone
	if err := decodeJSON(w, r, &m); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	m.Title = sanitizeInput(m.Title)
	m.Description = sanitizeInput(m.Description)

	saved, err := s.farm.CreateMilestone(r.Context(), user, m)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteMilestone(w http.ResponseWriter, r *http.Request) {
	user := s.userFrom(r)
	if err := s.farm.DeleteMilestone(r.Context(), user, r.PathValue("id")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleGetFarmInfo(w http.ResponseWriter, r *http.Request) {
	user := s.userFrom(r)
	info, err := s.farm.GetFarmInfo(r.Context(), user)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handlePutFarmInfo(w http.ResponseWriter, r *http.Request) {
	user := s.userFrom(r)
	var info core.FarmInfo
	if err := decodeJSON(w, r, &info); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	info.Name = sanitizeInput(info.Name)
	info.Location = sanitizeInput(info.Location)

	saved, err := s.farm.PutFarmInfo(r.Context(), user, info)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, saved)
}
