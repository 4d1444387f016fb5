package http

import (
	"log/slog"
	"net/http"
	"time"

	"farmtrack/internal/core"
	"farmtrack/internal/services"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	user := s.userFrom(r)
	q := r.URL.Query()
	filter := services.SearchFilter{
		Query:      sanitizeInput(q.Get("q")),
		CategoryID: sanitizeInput(q.Get("category")),
		From:       sanitizeInput(q.Get("from")),
		To:         sanitizeInput(q.Get("to")),
	}
	// month=2006-01 is shorthand for bounding a single month.
	if month := sanitizeInput(q.Get("month")); month != "" {
		if t, err := time.Parse("2006-01", month); err == nil {
			filter.From = t.Format("2006-01-02")
			filter.To = t.AddDate(0, 1, -1).Format("2006-01-02")
		}
	}

	expenses, err := s.expenses.ListExpenses(r.Context(), user, filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "List expenses error", "error", err, "user", user)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	user := s.userFrom(r)

	var e core.Expense
	if err := decodeJSON(w, r, &e); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	e.ItemName = sanitizeInput(e.ItemName)
	e.Description = sanitizeInput(e.Description)

	saved, err := s.expenses.CreateExpense(r.Context(), user, e)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create expense error", "error", err, "user", user)
		respondServiceError(w, err)
		return
	}

	s.invalidateViews(user)
	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	user := s.userFrom(r)
	id := r.PathValue("id")

	e, err := s.expenses.GetExpense(r.Context(), user, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	user := s.userFrom(r)
	id := r.PathValue("id")

	var e core.Expense
	if err := decodeJSON(w, r, &e); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	e.ID = id
	e.ItemName = sanitizeInput(e.ItemName)
	e.Description = sanitizeInput(e.Description)

	saved, err := s.expenses.UpdateExpense(r.Context(), user, e)
	if err != nil {
		slog.ErrorContext(r.Context(), "Update expense error",
			"error", err, "user", user, "id", id)
		respondServiceError(w, err)
		return
	}

	s.invalidateViews(user)
	respondJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	user := s.userFrom(r)
	id := r.PathValue("id")

	if err := s.expenses.DeleteExpense(r.Context(), user, id); err != nil {
		slog.ErrorContext(r.Context(), "Delete expense error",
			"error", err, "user", user, "id", id)
		respondServiceError(w, err)
		return
	}

	s.invalidateViews(user)
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleExpenseBreakdown(w http.ResponseWriter, r *http.Request) {
	user := s.userFrom(r)
	id := r.PathValue("id")

	breakdown, err := s.reports.ExpenseBreakdown(r.Context(), user, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, breakdown)
}
