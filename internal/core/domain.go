package core

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Outcome TransactionType = "outcome"
)

const (
	Daily   BudgetPeriod = "daily"
	Weekly  BudgetPeriod = "weekly"
	Monthly BudgetPeriod = "monthly"
	Yearly  BudgetPeriod = "yearly"
)

type (
	TransactionType string

	BudgetPeriod string

	// Draft is an in-memory, unpersisted transaction produced by the parser.
	Draft struct {
		Type        TransactionType
		Amount      decimal.Decimal
		Category    string
		Account     string
		OccurredAt  time.Time // always UTC
		Description string
	}

	// Transaction is a persisted ledger row.
	Transaction struct {
		ID          int64
		UserID      int64
		Type        TransactionType
		Amount      decimal.Decimal
		Category    string // empty when the category row is gone
		Account     string
		Description string
		OccurredAt  time.Time
	}

	// Budget is a spending limit for one user+category, read-only to this core.
	Budget struct {
		ID         int64
		UserID     int64
		CategoryID int64
		Category   string
		Amount     decimal.Decimal
		Period     BudgetPeriod
		Currency   string
		StartDate  time.Time
		EndDate    *time.Time // nil means open-ended
	}

	// TransactionAmount is the minimal shape budget evaluation sums over.
	TransactionAmount struct {
		Type   TransactionType
		Amount decimal.Decimal
	}

	// MonthlySummary aggregates one month of a user's ledger.
	MonthlySummary struct {
		Year             int
		Month            int // 1-12
		TotalIncome      decimal.Decimal
		TotalOutcome     decimal.Decimal
		Balance          decimal.Decimal
		TransactionCount int
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidPeriod = errors.New("invalid budget period")
)

// ParseTransactionType matches income/outcome case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(Income):
		return Income, nil
	case string(Outcome):
		return Outcome, nil
	default:
		return "", ErrInvalidType
	}
}

// ParseBudgetPeriod matches daily/weekly/monthly/yearly case-insensitively.
func ParseBudgetPeriod(s string) (BudgetPeriod, error) {
	switch BudgetPeriod(strings.ToLower(strings.TrimSpace(s))) {
	case Daily:
		return Daily, nil
	case Weekly:
		return Weekly, nil
	case Monthly:
		return Monthly, nil
	case Yearly:
		return Yearly, nil
	default:
		return "", ErrInvalidPeriod
	}
}

// NormalizeName capitalizes the first rune and lowercases the rest.
// Categories are stored and compared in this form.
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func (b Budget) Validate() error {
	if !b.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if _, err := ParseBudgetPeriod(string(b.Period)); err != nil {
		return err
	}
	if b.StartDate.IsZero() {
		return errors.New("budget start date cannot be zero")
	}
	if b.EndDate != nil && !b.EndDate.After(b.StartDate) {
		return errors.New("budget end date must be after start date")
	}
	return nil
}

// ActiveAt reports whether the budget's own bounds cover the given instant.
// The end bound is exclusive.
func (b Budget) ActiveAt(at time.Time) bool {
	if at.Before(b.StartDate) {
		return false
	}
	if b.EndDate != nil && !at.Before(*b.EndDate) {
		return false
	}
	return true
}

func (d Draft) Validate() error {
	if _, err := ParseTransactionType(string(d.Type)); err != nil {
		return err
	}
	if d.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(d.Category) == "" {
		return errors.New("empty category")
	}
	if strings.TrimSpace(d.Account) == "" {
		return errors.New("empty account")
	}
	if d.OccurredAt.IsZero() {
		return errors.New("occurred-at cannot be zero")
	}
	if len(d.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}
