package http

import (
	"net/http"

	"kanakku/internal/core"
	"kanakku/internal/ledger"
)

type incomeRequest struct {
	Amount        string `json:"amount"`
	Category      string `json:"category"`
	Source        string `json:"source"`
	Date          string `json:"date"`
	Recurrence    string `json:"recurrence"`
	TenantContact string `json:"tenantContact"`
}

func (s *Server) handleIncomes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		incomes, err := s.incomes.ListIncomes(r.Context())
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Income list error", "error", err)
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, incomes)

	case http.MethodPost:
		var req incomeRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		in, ok := s.parseIncomeRequest(w, req)
		if !ok {
			return
		}

		created, err := s.incomes.AddIncome(r.Context(), in)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Income create error", "error", err)
			writeDomainError(w, err)
			return
		}

		s.logger.InfoContext(r.Context(), "Income created",
			"source", in.Source,
			"amount_cents", in.Amount.Cents,
			"recurrence", in.Recurrence,
			"records", len(created))
		writeJSON(w, http.StatusCreated, created)

	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) parseIncomeRequest(w http.ResponseWriter, req incomeRequest) (ledger.NewIncome, bool) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid amount: "+req.Amount)
		return ledger.NewIncome{}, false
	}

	category, err := core.ParseIncomeCategory(req.Category)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return ledger.NewIncome{}, false
	}

	recurrence := core.RecurNone
	if req.Recurrence != "" {
		recurrence, err = core.ParseRecurrence(req.Recurrence)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
			return ledger.NewIncome{}, false
		}
	}

	return ledger.NewIncome{
		Amount:        core.Money{Cents: cents},
		Category:      category,
		Source:        req.Source,
		Date:          core.Day(req.Date),
		Recurrence:    recurrence,
		TenantContact: req.TenantContact,
	}, true
}

func (s *Server) handleIncomeByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, "DELETE")
		return
	}

	id := r.PathValue("id")
	if err := s.incomes.DeleteIncome(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Income deleted", "id", id)
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleMarkReceived(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	id := r.PathValue("id")
	updated, err := s.incomes.MarkReceived(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Income marked received",
		"id", id,
		"records", len(updated))
	writeJSON(w, http.StatusOK, updated)
}

// handleRestoreIncome reinserts a previously deleted record, undo style. The
// caller sends back the full record it was given before the delete.
func (s *Server) handleRestoreIncome(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var income core.Income
	if !decodeJSON(w, r, &income) {
		return
	}

	if err := s.incomes.RestoreIncome(r.Context(), income); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, income)
}

func (s *Server) handleIncomeBuckets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	overdue, upcoming, err := s.incomes.Buckets(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Overdue  []core.Income `json:"overdue"`
		Upcoming []core.Income `json:"upcoming"`
	}{Overdue: overdue, Upcoming: upcoming})
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	changed, err := s.incomes.Reconcile(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Reconcile error", "error", err)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Changed int `json:"changed"`
	}{Changed: changed})
}
