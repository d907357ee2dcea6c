package parser

import (
	"errors"
	"testing"
	"time"

	"duitbot/internal/core"
	"duitbot/internal/dates"
)

var parseNow = time.Date(2025, 8, 29, 4, 30, 0, 0, time.UTC)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantType core.TransactionType
		wantAmt  string
		wantCat  string
		wantAcc  string
		wantDesc string
		wantAt   time.Time
	}{
		{
			name:     "outcome with description",
			in:       "outcome 75000 Food BCA Lunch at warung",
			wantType: core.Outcome,
			wantAmt:  "75000",
			wantCat:  "Food",
			wantAcc:  "BCA",
			wantDesc: "Lunch at warung",
			wantAt:   parseNow,
		},
		{
			name:     "income without description",
			in:       "income 5000000 Salary Mandiri",
			wantType: core.Income,
			wantAmt:  "5000000",
			wantCat:  "Salary",
			wantAcc:  "Mandiri",
			wantAt:   parseNow,
		},
		{
			name:     "uppercase type and category normalized",
			in:       "OUTCOME 12,5 TRANSPORT gopay ojek",
			wantType: core.Outcome,
			wantAmt:  "12.5",
			wantCat:  "Transport",
			wantAcc:  "gopay",
			wantDesc: "ojek",
			wantAt:   parseNow,
		},
		{
			name:     "embedded timestamp",
			in:       "outcome 30000 Food BCA [2025-08-29 11:30] late lunch",
			wantType: core.Outcome,
			wantAmt:  "30000",
			wantCat:  "Food",
			wantAcc:  "BCA",
			wantDesc: "late lunch",
			wantAt:   time.Date(2025, 8, 29, 4, 30, 0, 0, time.UTC),
		},
		{
			name:     "timestamp without description",
			in:       "income 100000 Gift BCA [2025-01-01 00:00]",
			wantType: core.Income,
			wantAmt:  "100000",
			wantCat:  "Gift",
			wantAcc:  "BCA",
			wantAt:   time.Date(2024, 12, 31, 17, 0, 0, 0, time.UTC),
		},
		{
			name:     "whitespace runs collapsed",
			in:       "  outcome   75000\tFood  BCA   Lunch  at warung ",
			wantType: core.Outcome,
			wantAmt:  "75000",
			wantCat:  "Food",
			wantAcc:  "BCA",
			wantDesc: "Lunch at warung",
			wantAt:   parseNow,
		},
		{
			name:     "grouped thousands amount",
			in:       "outcome 1.250,50 Food BCA",
			wantType: core.Outcome,
			wantAmt:  "1250.5",
			wantCat:  "Food",
			wantAcc:  "BCA",
			wantAt:   parseNow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in, parseNow)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.in, err)
			}
			if got.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", got.Type, tt.wantType)
			}
			if got.Amount.String() != tt.wantAmt {
				t.Errorf("Amount = %s, want %s", got.Amount, tt.wantAmt)
			}
			if got.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", got.Category, tt.wantCat)
			}
			if got.Account != tt.wantAcc {
				t.Errorf("Account = %q, want %q", got.Account, tt.wantAcc)
			}
			if got.Description != tt.wantDesc {
				t.Errorf("Description = %q, want %q", got.Description, tt.wantDesc)
			}
			if !got.OccurredAt.Equal(tt.wantAt) {
				t.Errorf("OccurredAt = %v, want %v", got.OccurredAt, tt.wantAt)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{name: "empty", in: "", wantErr: ErrFormat},
		{name: "too few tokens", in: "outcome 75000 Food", wantErr: ErrFormat},
		{name: "unknown type", in: "expense 75000 Food BCA", wantErr: ErrFormat},
		{name: "negative amount", in: "outcome -500 Food BCA", wantErr: ErrFormat},
		{name: "non-numeric amount", in: "outcome lots Food BCA", wantErr: ErrFormat},
		{name: "bad timestamp", in: "outcome 500 Food BCA [2025-13-01 10:00]", wantErr: dates.ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in, parseNow)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
		})
	}
}

// occurredAt must track the caller-supplied now on every call, not a value
// captured on the first call.
func TestParseUsesCallerNow(t *testing.T) {
	first, err := Parse("outcome 1000 Food BCA", parseNow)
	if err != nil {
		t.Fatal(err)
	}
	later := parseNow.Add(42 * time.Minute)
	second, err := Parse("outcome 1000 Food BCA", later)
	if err != nil {
		t.Fatal(err)
	}
	if !first.OccurredAt.Equal(parseNow) || !second.OccurredAt.Equal(later) {
		t.Errorf("occurredAt not taken from caller now: %v, %v", first.OccurredAt, second.OccurredAt)
	}
}
