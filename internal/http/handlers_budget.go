package http

import (
	"net/http"

	"kanakku/internal/core"
)

type budgetRequest struct {
	Category string `json:"category"`
	Limit    string `json:"limit"`
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if category := r.URL.Query().Get("category"); category != "" {
			parsed, err := core.ParseExpenseCategory(category)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
				return
			}
			limit, err := s.budgets.GetBudget(r.Context(), parsed)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, core.Budget{Category: parsed, Limit: limit})
			return
		}

		budgets, err := s.budgets.ListBudgets(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, budgets)

	case http.MethodPut:
		var req budgetRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		category, err := core.ParseExpenseCategory(req.Category)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
			return
		}
		cents, err := core.ParseDecimalToCents(req.Limit)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid limit: "+req.Limit)
			return
		}

		if err := s.budgets.SetBudget(r.Context(), category, core.Money{Cents: cents}); err != nil {
			writeDomainError(w, err)
			return
		}

		s.logger.InfoContext(r.Context(), "Budget set",
			"category", category,
			"limit_cents", cents)
		writeJSON(w, http.StatusOK, core.Budget{Category: category, Limit: core.Money{Cents: cents}})

	default:
		methodNotAllowed(w, "GET, PUT")
	}
}
