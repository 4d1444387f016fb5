package http

import (
	"log/slog"
	"net/http"

	"farmtrack/internal/core"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	user := s.userFrom(r)
	cats, err := s.registry.ListCategories(r.Context(), user)
	if err != nil {
		slog.ErrorContext(r.Context(), "List categories error", "error", err, "user", user)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cats)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	user := s.userFrom(r)

	var c core.Category
	if err := decodeJSON(w, r, &c); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c.Name = sanitizeInput(c.Name)
	c.Description = sanitizeInput(c.Description)

	saved, err := s.registry.CreateCategory(r.Context(), user, c)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create category error", "error", err, "user", user)
		respondServiceError(w, err)
		return
	}

	s.invalidateViews(user)
	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	user := s.userFrom(r)
	id := r.PathValue("id")

	var c core.Category
	if err := decodeJSON(w, r, &c); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c.ID = id
	c.Name = sanitizeInput(c.Name)
	c.Description = sanitizeInput(c.Description)

	saved, err := s.registry.UpdateCategory(r.Context(), user, c)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.invalidateViews(user)
	respondJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	user := s.userFrom(r)
	id := r.PathValue("id")

	if err := s.registry.DeleteCategory(r.Context(), user, id); err != nil {
		respondServiceError(w, err)
		return
	}

	s.invalidateViews(user)
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListSubcategories(w http.ResponseWriter, r *http.Request) {
	user := s.userFrom(r)
	subs, err := s.registry.ListSubcategories(r.Context(), user)
	if err != nil {
		slog.ErrorContext(r.Context(), "List subcategories error", "error", err, "user", user)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, subs)
}

func (s *Server) handleCreateSubcategory(w http.ResponseWriter, r *http.Request) {
	user := s.userFrom(r)

	var sc core.Subcategory
	if err := decodeJSON(w, r, &sc); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sc.Name = sanitizeInput(sc.Name)
	sc.Description = sanitizeInput(sc.Description)

	saved, err := s.registry.CreateSubcategory(r.Context(), user, sc)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create subcategory error", "error", err, "user", user)
		respondServiceError(w, err)
		return
	}

	s.invalidateViews(user)
	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteSubcategory(w http.ResponseWriter, r *http.Request) {
	user := s.userFrom(r)
	id := r.PathValue("id")

	if err := s.registry.DeleteSubcategory(r.Context(), user, id); err != nil {
		respondServiceError(w, err)
		return
	}

	s.invalidateViews(user)
	respondJSON(w, http.StatusNoContent, nil)
}
