package budget

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"duitbot/internal/core"
	"duitbot/internal/log"
)

// warnThresholdPercent is the usage percentage at which a warning fires.
var warnThresholdPercent = decimal.NewFromInt(90)

var hundred = decimal.NewFromInt(100)

type (
	// BudgetReader fetches the budgets scoped to one user and category whose
	// active window covers the given instant.
	BudgetReader interface {
		ActiveBudgets(ctx context.Context, userID, categoryID int64, asOf time.Time) ([]core.Budget, error)
	}

	// LedgerReader fetches the type and amount of every non-deleted
	// transaction of a user+category inside [start, end).
	LedgerReader interface {
		AmountsInWindow(ctx context.Context, userID, categoryID int64, start, end time.Time) ([]core.TransactionAmount, error)
	}

	// Evaluator computes budget consumption for newly recorded transactions.
	Evaluator struct {
		budgets BudgetReader
		ledger  LedgerReader
		logger  *log.Logger
	}

	// Status holds the rendered result of one evaluation. Progress and Alerts
	// are parallel: Alerts[i] is empty when budget i raised no alert.
	Status struct {
		Progress []string
		Alerts   []string
	}
)

func NewEvaluator(budgets BudgetReader, ledger LedgerReader, logger *log.Logger) *Evaluator {
	return &Evaluator{
		budgets: budgets,
		ledger:  ledger,
		logger:  logger.WithComponent(log.ComponentBudget),
	}
}

// Evaluate computes progress and alert text for every budget applicable to
// the given user, category and instant. Fetch failures are logged and
// reported as an empty status; they never block the transaction save that
// triggered the evaluation.
func (e *Evaluator) Evaluate(ctx context.Context, userID, categoryID int64, categoryName string, amount decimal.Decimal, occurredAt time.Time) Status {
	budgets, err := e.budgets.ActiveBudgets(ctx, userID, categoryID, occurredAt)
	if err != nil {
		e.logger.ErrorContext(ctx, "Budget fetch failed, skipping evaluation",
			log.FieldUserID, userID,
			log.FieldCategory, categoryName,
			log.FieldAmount, amount.String(),
			log.FieldError, err)
		return Status{}
	}

	var status Status
	for _, b := range budgets {
		if !b.ActiveAt(occurredAt) {
			continue
		}
		resolver, err := ResolverFor(b.Period)
		if err != nil {
			e.logger.WarnContext(ctx, "Skipping budget with unknown period",
				log.FieldBudgetID, b.ID, log.FieldPeriod, string(b.Period))
			continue
		}
		window := resolver.Window(occurredAt).Clamp(b)
		if window.Empty() {
			continue
		}

		rows, err := e.ledger.AmountsInWindow(ctx, userID, categoryID, window.Start, window.End)
		if err != nil {
			e.logger.ErrorContext(ctx, "Transaction fetch failed, skipping budget",
				log.FieldBudgetID, b.ID, log.FieldError, err)
			continue
		}

		netSpend := decimal.Zero
		for _, row := range rows {
			switch row.Type {
			case core.Outcome:
				netSpend = netSpend.Add(row.Amount)
			case core.Income:
				netSpend = netSpend.Sub(row.Amount)
			}
		}

		progress, alert := renderBudget(b, categoryName, netSpend)
		status.Progress = append(status.Progress, progress)
		status.Alerts = append(status.Alerts, alert)
	}
	return status
}

// renderBudget builds the progress line and optional alert line for one
// budget. Displayed spend is clamped to zero when income exceeds outcome,
// but percentage used is taken from the unclamped net spend when positive;
// negative net spend reads as 0% used.
func renderBudget(b core.Budget, categoryName string, netSpend decimal.Decimal) (progress, alert string) {
	percentUsed := decimal.Zero
	if netSpend.IsPositive() {
		percentUsed = netSpend.Div(b.Amount).Mul(hundred)
	}
	remaining := b.Amount.Sub(netSpend)

	displaySpend := netSpend
	if displaySpend.IsNegative() {
		displaySpend = decimal.Zero
	}

	progress = fmt.Sprintf("Budget %s (%s): spent %s of %s (%s%%), remaining %s",
		categoryName, b.Period, displaySpend, b.Amount, formatPercent(percentUsed), remaining)

	switch {
	case netSpend.GreaterThan(b.Amount):
		alert = fmt.Sprintf("Budget %s (%s) exceeded by %s!", categoryName, b.Period, netSpend.Sub(b.Amount))
	case netSpend.IsPositive() && percentUsed.GreaterThanOrEqual(warnThresholdPercent):
		alert = fmt.Sprintf("Warning: budget %s (%s) is at %s%%", categoryName, b.Period, formatPercent(percentUsed))
	}
	return progress, alert
}

// Empty reports whether no budget applied.
func (s Status) Empty() bool {
	return len(s.Progress) == 0
}

// Text renders the status as per-budget blocks separated by blank lines,
// preserving the order budgets were returned. An alert line precedes its
// budget's progress line.
func (s Status) Text() string {
	blocks := make([]string, 0, len(s.Progress))
	for i, progress := range s.Progress {
		if i < len(s.Alerts) && s.Alerts[i] != "" {
			blocks = append(blocks, s.Alerts[i]+"\n"+progress)
			continue
		}
		blocks = append(blocks, progress)
	}
	return strings.Join(blocks, "\n\n")
}

func formatPercent(p decimal.Decimal) string {
	return p.StringFixed(1)
}
