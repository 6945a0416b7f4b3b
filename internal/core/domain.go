package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	RecurNone    Recurrence = "None"
	RecurMonthly Recurrence = "Monthly"
	RecurYearly  Recurrence = "Yearly"
)

const (
	StatusExpected IncomeStatus = "Expected"
	StatusOverdue  IncomeStatus = "Overdue"
	StatusReceived IncomeStatus = "Received"
)

const (
	IncomeSalary   IncomeCategory = "Salary"
	IncomeRent     IncomeCategory = "Rent"
	IncomeInterest IncomeCategory = "Interest"
	IncomeBusiness IncomeCategory = "Business"
	IncomeGift     IncomeCategory = "Gift"
	IncomeOther    IncomeCategory = "Other"
)

const (
	ExpenseFood          ExpenseCategory = "Food"
	ExpenseTransport     ExpenseCategory = "Transport"
	ExpenseHousing       ExpenseCategory = "Housing"
	ExpenseShopping      ExpenseCategory = "Shopping"
	ExpenseEntertainment ExpenseCategory = "Entertainment"
	ExpenseBills         ExpenseCategory = "Bills"
	ExpenseOther         ExpenseCategory = "Other"
)

const (
	PayCash  PaymentMethod = "Cash"
	PayCard  PaymentMethod = "Card"
	PayUPI   PaymentMethod = "UPI"
	PayOther PaymentMethod = "Other"
)

type (
	Recurrence      string
	IncomeStatus    string
	IncomeCategory  string
	ExpenseCategory string
	PaymentMethod   string

	Money struct {
		Cents int64 `json:"cents"`
	}

	// Income is one dated occurrence of an inflow, possibly one link in a
	// recurring chain. CreatedAt is a millisecond timestamp used as a
	// tiebreaker so a generated successor sorts after its originator.
	Income struct {
		ID            string         `json:"id"`
		Amount        Money          `json:"amount"`
		Category      IncomeCategory `json:"category"`
		Source        string         `json:"source"`
		Date          Day            `json:"date"`
		Recurrence    Recurrence     `json:"recurrence"`
		Status        IncomeStatus   `json:"status"`
		TenantContact string         `json:"tenantContact,omitempty"`
		CreatedAt     int64          `json:"createdAt"`
	}

	Expense struct {
		ID            string          `json:"id"`
		Amount        Money           `json:"amount"`
		Category      ExpenseCategory `json:"category"`
		Description   string          `json:"description"`
		Date          Day             `json:"date"`
		PaymentMethod PaymentMethod   `json:"paymentMethod"`
		CreatedAt     int64           `json:"createdAt"`
	}

	// Budget is a per-category spending limit. One entry per category;
	// setting a budget replaces any existing entry for that category.
	Budget struct {
		Category ExpenseCategory `json:"category"`
		Limit    Money           `json:"limit"`
	}

	UserProfile struct {
		ID                    string `json:"id"`
		Name                  string `json:"name"`
		Email                 string `json:"email"`
		Mobile                string `json:"mobile"`
		Language              string `json:"language"`
		Currency              string `json:"currency"`
		Password              string `json:"password"`
		BiometricEnabled      bool   `json:"biometricEnabled,omitempty"`
		BiometricCredentialID string `json:"biometricCredentialId,omitempty"`
	}

	// LocalBackup is one entry of the bounded backup ring: an encrypted
	// snapshot plus enough metadata to list it without decrypting.
	LocalBackup struct {
		ID       string `json:"id"`
		Date     string `json:"date"`
		UserName string `json:"userName"`
		Content  string `json:"content"`
		Size     int    `json:"size"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrEmptySource        = errors.New("empty source")
	ErrEmptyDescription   = errors.New("empty description")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDecryptionFailed   = errors.New("decryption failed")
	ErrInvalidFormat      = errors.New("invalid backup format")
)

func (r Recurrence) Valid() bool {
	switch r {
	case RecurNone, RecurMonthly, RecurYearly:
		return true
	}
	return false
}

func (s IncomeStatus) Valid() bool {
	switch s {
	case StatusExpected, StatusOverdue, StatusReceived:
		return true
	}
	return false
}

func (c IncomeCategory) Valid() bool {
	switch c {
	case IncomeSalary, IncomeRent, IncomeInterest, IncomeBusiness, IncomeGift, IncomeOther:
		return true
	}
	return false
}

func (c ExpenseCategory) Valid() bool {
	switch c {
	case ExpenseFood, ExpenseTransport, ExpenseHousing, ExpenseShopping,
		ExpenseEntertainment, ExpenseBills, ExpenseOther:
		return true
	}
	return false
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PayCash, PayCard, PayUPI, PayOther:
		return true
	}
	return false
}

// ParseRecurrence rejects unrecognized values at the data-store boundary.
func ParseRecurrence(s string) (Recurrence, error) {
	r := Recurrence(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown recurrence %q", s)
	}
	return r, nil
}

func ParseIncomeStatus(s string) (IncomeStatus, error) {
	st := IncomeStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown income status %q", s)
	}
	return st, nil
}

func ParseIncomeCategory(s string) (IncomeCategory, error) {
	c := IncomeCategory(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown income category %q", s)
	}
	return c, nil
}

func ParseExpenseCategory(s string) (ExpenseCategory, error) {
	c := ExpenseCategory(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown expense category %q", s)
	}
	return c, nil
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown payment method %q", s)
	}
	return m, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (i Income) Validate() error {
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	if !i.Category.Valid() {
		return fmt.Errorf("unknown income category %q", i.Category)
	}
	if len(strings.TrimSpace(i.Source)) == 0 {
		return ErrEmptySource
	}
	if !i.Date.Valid() {
		return ErrInvalidDate
	}
	if !i.Recurrence.Valid() {
		return fmt.Errorf("unknown recurrence %q", i.Recurrence)
	}
	if !i.Status.Valid() {
		return fmt.Errorf("unknown income status %q", i.Status)
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.Category.Valid() {
		return fmt.Errorf("unknown expense category %q", e.Category)
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if !e.Date.Valid() {
		return ErrInvalidDate
	}
	if !e.PaymentMethod.Valid() {
		return fmt.Errorf("unknown payment method %q", e.PaymentMethod)
	}
	return nil
}

func (b Budget) Validate() error {
	if !b.Category.Valid() {
		return fmt.Errorf("unknown expense category %q", b.Category)
	}
	if b.Limit.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}
