// Package report renders outcome and summary reports as chat replies.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"duitbot/internal/core"
	"duitbot/internal/dates"
)

// recentLimit caps how many individual transactions an outcome report lists.
const recentLimit = 5

var hundred = decimal.NewFromInt(100)

type categoryGroup struct {
	name   string
	amount decimal.Decimal
	count  int
}

// FormatOutcomeReport renders a category-grouped outcome report for one
// period. Transactions must arrive in descending occurred-at order; the five
// most recent are listed individually.
func FormatOutcomeReport(txs []core.Transaction, period dates.Period) string {
	if len(txs) == 0 {
		return fmt.Sprintf("No outcomes found for %s.", period)
	}

	total := decimal.Zero
	groups := make(map[string]*categoryGroup)
	for _, tx := range txs {
		total = total.Add(tx.Amount)
		name := tx.Category
		if name == "" {
			name = "Unknown"
		}
		g, ok := groups[name]
		if !ok {
			g = &categoryGroup{name: name}
			groups[name] = g
		}
		g.amount = g.amount.Add(tx.Amount)
		g.count++
	}

	sorted := make([]*categoryGroup, 0, len(groups))
	for _, g := range groups {
		sorted = append(sorted, g)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].amount.Equal(sorted[j].amount) {
			return sorted[i].amount.GreaterThan(sorted[j].amount)
		}
		return sorted[i].name < sorted[j].name
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Outcome report for %s\n", period)
	fmt.Fprintf(&b, "Total: %s\n\n", total)

	for _, g := range sorted {
		percent := g.amount.Div(total).Mul(hundred)
		fmt.Fprintf(&b, "%s: %s (%s%%) [%dx]\n", g.name, g.amount, percent.StringFixed(1), g.count)
	}

	b.WriteString("\nRecent:\n")
	for i, tx := range txs {
		if i == recentLimit {
			fmt.Fprintf(&b, "+ %d more\n", len(txs)-recentLimit)
			break
		}
		name := tx.Category
		if name == "" {
			name = "Unknown"
		}
		fmt.Fprintf(&b, "- %s %s %s/%s", dates.FormatLocalDate(tx.OccurredAt), tx.Amount, name, tx.Account)
		if tx.Description != "" {
			fmt.Fprintf(&b, ": %s", tx.Description)
		}
		b.WriteByte('\n')
	}

	return strings.TrimRight(b.String(), "\n")
}

// FormatSummaryReport renders per-month income/outcome/balance blocks. The
// balance line reads Surplus when balance is non-negative and Deficit
// otherwise, always showing the magnitude. With more than one month an
// overall total is appended under the same labelling rule.
func FormatSummaryReport(summaries []core.MonthlySummary) string {
	if len(summaries) == 0 {
		return "No transactions found."
	}

	var b strings.Builder
	totalIncome, totalOutcome := decimal.Zero, decimal.Zero
	for i, s := range summaries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%02d/%d\n", s.Month, s.Year)
		writeBalanceBlock(&b, s.TotalIncome, s.TotalOutcome, s.Balance)
		totalIncome = totalIncome.Add(s.TotalIncome)
		totalOutcome = totalOutcome.Add(s.TotalOutcome)
	}

	if len(summaries) > 1 {
		b.WriteString("\nTotal\n")
		writeBalanceBlock(&b, totalIncome, totalOutcome, totalIncome.Sub(totalOutcome))
	}

	return strings.TrimRight(b.String(), "\n")
}

func writeBalanceBlock(b *strings.Builder, income, outcome, balance decimal.Decimal) {
	fmt.Fprintf(b, "Income: %s\n", income)
	fmt.Fprintf(b, "Outcome: %s\n", outcome)
	label := "Surplus"
	if balance.IsNegative() {
		label = "Deficit"
	}
	fmt.Fprintf(b, "%s: %s\n", label, balance.Abs())
}
