package core

import (
	"errors"
	"strings"
	"testing"
)

func TestParseEnumsRejectUnknown(t *testing.T) {
	if _, err := ParseRecurrence("Weekly"); err == nil {
		t.Error("ParseRecurrence accepted Weekly")
	}
	if _, err := ParseIncomeStatus("Pending"); err == nil {
		t.Error("ParseIncomeStatus accepted Pending")
	}
	if _, err := ParseIncomeCategory("Lottery"); err == nil {
		t.Error("ParseIncomeCategory accepted Lottery")
	}
	if _, err := ParseExpenseCategory("Travel"); err == nil {
		t.Error("ParseExpenseCategory accepted Travel")
	}
	if _, err := ParsePaymentMethod("Cheque"); err == nil {
		t.Error("ParsePaymentMethod accepted Cheque")
	}

	// Casing matters: stored values are canonical.
	if _, err := ParseRecurrence("monthly"); err == nil {
		t.Error("ParseRecurrence accepted lowercase value")
	}

	if r, err := ParseRecurrence("Monthly"); err != nil || r != RecurMonthly {
		t.Errorf("ParseRecurrence(Monthly) = %v, %v", r, err)
	}
}

func TestIncomeValidate(t *testing.T) {
	valid := Income{
		ID:         "i1",
		Amount:     Money{Cents: 50000},
		Category:   IncomeSalary,
		Source:     "Employer",
		Date:       "2025-06-01",
		Recurrence: RecurMonthly,
		Status:     StatusExpected,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid income rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Income)
		want   error
	}{
		{"zero amount", func(i *Income) { i.Amount.Cents = 0 }, ErrInvalidAmount},
		{"negative amount", func(i *Income) { i.Amount.Cents = -5 }, ErrInvalidAmount},
		{"blank source", func(i *Income) { i.Source = "   " }, ErrEmptySource},
		{"bad date", func(i *Income) { i.Date = "2025-02-30" }, ErrInvalidDate},
		{"bad category", func(i *Income) { i.Category = "Lottery" }, nil},
		{"bad status", func(i *Income) { i.Status = "Pending" }, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			income := valid
			tc.mutate(&income)
			err := income.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestExpenseValidate(t *testing.T) {
	valid := Expense{
		ID:            "e1",
		Amount:        Money{Cents: 1250},
		Category:      ExpenseFood,
		Description:   "Groceries",
		Date:          "2025-06-01",
		PaymentMethod: PayUPI,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid expense rejected: %v", err)
	}

	blank := valid
	blank.Description = "  "
	if err := blank.Validate(); !errors.Is(err, ErrEmptyDescription) {
		t.Errorf("blank description: got %v", err)
	}

	long := valid
	long.Description = strings.Repeat("x", 201)
	if err := long.Validate(); err == nil {
		t.Error("201-char description accepted")
	}

	badMethod := valid
	badMethod.PaymentMethod = "Cheque"
	if err := badMethod.Validate(); err == nil {
		t.Error("unknown payment method accepted")
	}
}

func TestBudgetValidate(t *testing.T) {
	if err := (Budget{Category: ExpenseFood, Limit: Money{Cents: 0}}).Validate(); err != nil {
		t.Errorf("zero budget rejected: %v", err)
	}
	if err := (Budget{Category: ExpenseFood, Limit: Money{Cents: -1}}).Validate(); err == nil {
		t.Error("negative budget accepted")
	}
	if err := (Budget{Category: "Travel", Limit: Money{Cents: 100}}).Validate(); err == nil {
		t.Error("unknown category accepted")
	}
}
