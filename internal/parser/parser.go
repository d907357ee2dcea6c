// Package parser turns one line of chat text into a transaction draft.
//
// The accepted grammar is
//
//	<type> <amount> <category> <account> ["[YYYY-MM-DD HH:MM]"] [description]
//
// where type is income or outcome (any case), amount is a decimal literal with
// a dot or comma fraction, category and account are single tokens and the
// bracketed timestamp is Jakarta-local. Everything after the fixed tokens is
// the free-text description.
package parser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"duitbot/internal/core"
	"duitbot/internal/dates"
)

// Usage is the grammar reminder quoted back in error replies.
const Usage = "<income|outcome> <amount> <category> <account> [\"[YYYY-MM-DD HH:MM]\"] [description]"

// ErrFormat reports a message that does not match the transaction grammar.
var ErrFormat = errors.New("message does not match the transaction format")

// Parse tokenizes one line into a draft. When the optional bracketed timestamp
// is absent, occurredAt is the caller-supplied now; it is never cached between
// calls.
func Parse(line string, now time.Time) (core.Draft, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return core.Draft{}, fmt.Errorf("%w: expected %s", ErrFormat, Usage)
	}

	txType, err := core.ParseTransactionType(fields[0])
	if err != nil {
		return core.Draft{}, fmt.Errorf("%w: %q is not income or outcome", ErrFormat, fields[0])
	}

	amount, err := core.ParseAmount(fields[1])
	if err != nil {
		return core.Draft{}, fmt.Errorf("%w: %q is not a valid amount: %w", ErrFormat, fields[1], err)
	}

	category := core.NormalizeName(fields[2])
	account := fields[3]
	rest := fields[4:]

	occurredAt := now.UTC()
	if ts, remaining, ok := takeTimestamp(rest); ok {
		occurredAt, err = dates.ParseJakartaLocal(ts)
		if err != nil {
			return core.Draft{}, err
		}
		rest = remaining
	}

	draft := core.Draft{
		Type:        txType,
		Amount:      amount,
		Category:    category,
		Account:     account,
		OccurredAt:  occurredAt,
		Description: strings.Join(rest, " "),
	}
	if err := draft.Validate(); err != nil {
		return core.Draft{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return draft, nil
}

// takeTimestamp pops a leading "[YYYY-MM-DD HH:MM]" pair off the token list.
// The timestamp spans two whitespace-delimited tokens because of the space
// between date and time.
func takeTimestamp(fields []string) (ts string, rest []string, ok bool) {
	if len(fields) < 2 {
		return "", fields, false
	}
	if !strings.HasPrefix(fields[0], "[") || !strings.HasSuffix(fields[1], "]") {
		return "", fields, false
	}
	ts = strings.TrimPrefix(fields[0], "[") + " " + strings.TrimSuffix(fields[1], "]")
	return ts, fields[2:], true
}
