package http

import (
	"net/http"

	"kanakku/internal/core"
	"kanakku/internal/ledger"
)

type expenseRequest struct {
	Amount        string `json:"amount"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	Date          string `json:"date"`
	PaymentMethod string `json:"paymentMethod"`
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		expenses, err := s.expenses.ListExpenses(r.Context())
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Expense list error", "error", err)
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, expenses)

	case http.MethodPost:
		var req expenseRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		cents, err := core.ParseDecimalToCents(req.Amount)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid amount: "+req.Amount)
			return
		}
		category, err := core.ParseExpenseCategory(req.Category)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
			return
		}
		method, err := core.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
			return
		}

		expense, err := s.expenses.AddExpense(r.Context(), ledger.NewExpense{
			Amount:        core.Money{Cents: cents},
			Category:      category,
			Description:   req.Description,
			Date:          core.Day(req.Date),
			PaymentMethod: method,
		})
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Expense create error", "error", err)
			writeDomainError(w, err)
			return
		}

		s.logger.InfoContext(r.Context(), "Expense created",
			"description", expense.Description,
			"amount_cents", expense.Amount.Cents,
			"category", expense.Category)
		writeJSON(w, http.StatusCreated, expense)

	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleExpenseByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, "DELETE")
		return
	}

	id := r.PathValue("id")
	if err := s.expenses.DeleteExpense(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Expense deleted", "id", id)
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleRestoreExpense(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var expense core.Expense
	if !decodeJSON(w, r, &expense) {
		return
	}

	if err := s.expenses.RestoreExpense(r.Context(), expense); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, expense)
}
