// Package bot turns inbound chat messages into replies. The controller owns
// the conversation flow; the transport only moves text in and out.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"duitbot/internal/budget"
	"duitbot/internal/cache"
	"duitbot/internal/core"
	"duitbot/internal/dates"
	"duitbot/internal/log"
	"duitbot/internal/parser"
	"duitbot/internal/report"
)

const (
	replyInternalError = "Sorry, something went wrong. Please try again."

	welcomeText = "Welcome! Send a transaction as one line and I will track it for you.\n\n" +
		"Format: " + parser.Usage + "\n" +
		"Example: outcome 75000 Food BCA Lunch at warung\n\n" +
		"Send /help for the full command list."

	helpText = "Record a transaction:\n" +
		parser.Usage + "\n" +
		"I will echo it back; reply \"yes\" within 5 minutes to save it.\n\n" +
		"Commands:\n" +
		"/report [range] - outcome report (this month by default)\n" +
		"/summary [range] - income/outcome summary per month\n" +
		"/budget - list your budgets\n" +
		"/budget <category> <amount> <daily|weekly|monthly|yearly> - add a budget\n" +
		"/undo - remove your last transaction\n" +
		"/cancel - discard the pending transaction\n\n" +
		"Ranges: " + dates.AcceptedRangeForms
)

// Store is the persistence surface the controller drives.
type Store interface {
	ResolveOrRegisterUser(ctx context.Context, telegramID int64, username string) (int64, error)
	EnsureCategory(ctx context.Context, name string, allowedType core.TransactionType) (int64, error)
	EnsureAccount(ctx context.Context, name string) (int64, error)
	InsertTransaction(ctx context.Context, userID, categoryID, accountID int64, d core.Draft) (int64, error)
	SoftDeleteLast(ctx context.Context, userID int64) (core.Transaction, bool, error)
	ListOutcomes(ctx context.Context, userID int64, start, end time.Time) ([]core.Transaction, error)
	Summaries(ctx context.Context, userID int64, months []dates.YearMonth) ([]core.MonthlySummary, error)
	ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error)
	CreateBudget(ctx context.Context, b core.Budget) (int64, error)
}

// Publisher emits a transaction-saved event after a successful insert.
type Publisher interface {
	PublishTransactionSaved(ctx context.Context, transactionID int64) error
}

// Replier sends one outbound message. Rich selects formatted rendering when
// the transport supports it.
type Replier interface {
	SendReply(ctx context.Context, chatID int64, text string, rich bool) error
}

// Incoming is one chat message as the transport hands it over.
type Incoming struct {
	ChatID     int64
	TelegramID int64
	Username   string
	Text       string
}

type Controller struct {
	store     Store
	evaluator *budget.Evaluator
	pending   *cache.Pending[core.Draft]
	publisher Publisher // nil disables event publishing
	replier   Replier
	logger    *log.Logger
	now       func() time.Time
}

func NewController(store Store, evaluator *budget.Evaluator, pending *cache.Pending[core.Draft], publisher Publisher, replier Replier, logger *log.Logger) *Controller {
	return &Controller{
		store:     store,
		evaluator: evaluator,
		pending:   pending,
		publisher: publisher,
		replier:   replier,
		logger:    logger.WithComponent(log.ComponentBot),
		now:       time.Now,
	}
}

// SetClock overrides the controller's clock. Tests only.
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
}

// Handle processes one inbound message end to end and sends the reply.
func (c *Controller) Handle(ctx context.Context, msg Incoming) error {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	userID, err := c.store.ResolveOrRegisterUser(ctx, msg.TelegramID, msg.Username)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to resolve user",
			log.FieldTelegramID, msg.TelegramID,
			log.FieldError, err)
		return c.reply(ctx, msg.ChatID, replyInternalError)
	}

	if strings.HasPrefix(text, "/") {
		return c.handleCommand(ctx, msg.ChatID, userID, text)
	}

	if strings.EqualFold(text, "yes") {
		return c.handleConfirmation(ctx, msg.ChatID, userID)
	}

	return c.handleDraft(ctx, msg.ChatID, text)
}

func (c *Controller) handleDraft(ctx context.Context, chatID int64, text string) error {
	draft, err := parser.Parse(text, c.now())
	if err != nil {
		c.logger.InfoContext(ctx, "Rejected message",
			log.FieldChatID, chatID,
			log.FieldOperation, log.OpParse,
			log.FieldError, err)
		return c.reply(ctx, chatID, parseErrorReply(err))
	}

	c.pending.Set(chatID, draft)
	return c.reply(ctx, chatID, confirmationEcho(draft))
}

func (c *Controller) handleConfirmation(ctx context.Context, chatID, userID int64) error {
	draft, ok := c.pending.Take(chatID)
	if !ok {
		return c.reply(ctx, chatID, "Nothing to confirm. Send a transaction first, or /help for the format.")
	}

	categoryID, err := c.store.EnsureCategory(ctx, draft.Category, draft.Type)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to resolve category",
			log.FieldChatID, chatID,
			log.FieldCategory, draft.Category,
			log.FieldError, err)
		return c.reply(ctx, chatID, replyInternalError)
	}

	accountID, err := c.store.EnsureAccount(ctx, draft.Account)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to resolve account",
			log.FieldChatID, chatID,
			log.FieldAccount, draft.Account,
			log.FieldError, err)
		return c.reply(ctx, chatID, replyInternalError)
	}

	txID, err := c.store.InsertTransaction(ctx, userID, categoryID, accountID, draft)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to save transaction",
			log.FieldChatID, chatID,
			log.FieldUserID, userID,
			log.FieldError, err)
		return c.reply(ctx, chatID, replyInternalError)
	}

	c.logger.InfoContext(ctx, "Transaction saved",
		log.FieldChatID, chatID,
		log.FieldUserID, userID,
		log.FieldTxID, txID,
		log.FieldType, string(draft.Type),
		log.FieldAmount, draft.Amount.String())

	if c.publisher != nil {
		if err := c.publisher.PublishTransactionSaved(ctx, txID); err != nil {
			// The pending-mirror sweep will pick the row up later.
			c.logger.WarnContext(ctx, "Failed to publish saved event",
				log.FieldTxID, txID,
				log.FieldError, err)
		}
	}

	reply := fmt.Sprintf("Saved %s %s for %s/%s.",
		draft.Type, draft.Amount.String(), draft.Category, draft.Account)

	status := c.evaluator.Evaluate(ctx, userID, categoryID, draft.Category, draft.Amount, draft.OccurredAt)
	if !status.Empty() {
		reply += "\n\n" + status.Text()
	}
	return c.reply(ctx, chatID, reply)
}

func (c *Controller) handleCommand(ctx context.Context, chatID, userID int64, text string) error {
	cmd, args, _ := strings.Cut(text, " ")
	args = strings.TrimSpace(args)

	switch cmd {
	case "/start":
		return c.reply(ctx, chatID, welcomeText)
	case "/help":
		return c.reply(ctx, chatID, helpText)
	case "/cancel":
		if _, ok := c.pending.Take(chatID); ok {
			return c.reply(ctx, chatID, "Cancelled.")
		}
		return c.reply(ctx, chatID, "Nothing to cancel.")
	case "/undo":
		return c.handleUndo(ctx, chatID, userID)
	case "/report":
		return c.handleReport(ctx, chatID, userID, args)
	case "/summary":
		return c.handleSummary(ctx, chatID, userID, args)
	case "/budget":
		return c.handleBudget(ctx, chatID, userID, args)
	default:
		return c.reply(ctx, chatID, "Unknown command. Send /help for the list.")
	}
}

func (c *Controller) handleUndo(ctx context.Context, chatID, userID int64) error {
	tx, ok, err := c.store.SoftDeleteLast(ctx, userID)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to undo transaction",
			log.FieldChatID, chatID,
			log.FieldUserID, userID,
			log.FieldError, err)
		return c.reply(ctx, chatID, replyInternalError)
	}
	if !ok {
		return c.reply(ctx, chatID, "Nothing to undo.")
	}
	return c.reply(ctx, chatID, fmt.Sprintf("Removed %s %s for %s/%s.",
		tx.Type, tx.Amount.String(), tx.Category, tx.Account))
}

func (c *Controller) handleReport(ctx context.Context, chatID, userID int64, args string) error {
	period, err := dates.ParseReportPeriod(args, c.now())
	if err != nil {
		return c.reply(ctx, chatID, rangeErrorReply(err))
	}

	start, end := period.Window()
	txs, err := c.store.ListOutcomes(ctx, userID, start, end)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to load outcomes",
			log.FieldChatID, chatID,
			log.FieldUserID, userID,
			log.FieldOperation, log.OpReport,
			log.FieldError, err)
		return c.reply(ctx, chatID, replyInternalError)
	}
	return c.reply(ctx, chatID, report.FormatOutcomeReport(txs, period))
}

func (c *Controller) handleSummary(ctx context.Context, chatID, userID int64, args string) error {
	months, err := dates.ParseSummaryRange(args, c.now())
	if err != nil {
		return c.reply(ctx, chatID, rangeErrorReply(err))
	}

	summaries, err := c.store.Summaries(ctx, userID, months)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to build summary",
			log.FieldChatID, chatID,
			log.FieldUserID, userID,
			log.FieldOperation, log.OpSummary,
			log.FieldError, err)
		return c.reply(ctx, chatID, replyInternalError)
	}
	return c.reply(ctx, chatID, report.FormatSummaryReport(summaries))
}

func (c *Controller) handleBudget(ctx context.Context, chatID, userID int64, args string) error {
	if args == "" {
		return c.listBudgets(ctx, chatID, userID)
	}
	return c.createBudget(ctx, chatID, userID, args)
}

func (c *Controller) listBudgets(ctx context.Context, chatID, userID int64) error {
	budgets, err := c.store.ListBudgets(ctx, userID)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to list budgets",
			log.FieldChatID, chatID,
			log.FieldUserID, userID,
			log.FieldError, err)
		return c.reply(ctx, chatID, replyInternalError)
	}
	if len(budgets) == 0 {
		return c.reply(ctx, chatID, "No budgets configured. Add one with /budget <category> <amount> <period>.")
	}

	var sb strings.Builder
	sb.WriteString("Your budgets:\n")
	for _, b := range budgets {
		name := b.Category
		if name == "" {
			name = "Unknown"
		}
		fmt.Fprintf(&sb, "- %s: %s %s (%s, from %s",
			name, b.Amount.String(), b.Currency, b.Period, dates.FormatLocalDate(b.StartDate))
		if b.EndDate != nil {
			fmt.Fprintf(&sb, " until %s", dates.FormatLocalDate(*b.EndDate))
		}
		sb.WriteString(")\n")
	}
	return c.reply(ctx, chatID, strings.TrimRight(sb.String(), "\n"))
}

func (c *Controller) createBudget(ctx context.Context, chatID, userID int64, args string) error {
	const usage = "Usage: /budget <category> <amount> <daily|weekly|monthly|yearly>"

	fields := strings.Fields(args)
	if len(fields) != 3 {
		return c.reply(ctx, chatID, usage)
	}

	amount, err := core.ParseAmount(fields[1])
	if err != nil {
		return c.reply(ctx, chatID, "That amount does not look right. "+usage)
	}
	period, err := core.ParseBudgetPeriod(fields[2])
	if err != nil {
		return c.reply(ctx, chatID, "Unknown period. "+usage)
	}

	categoryName := core.NormalizeName(fields[0])
	categoryID, err := c.store.EnsureCategory(ctx, categoryName, core.Outcome)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to resolve category",
			log.FieldChatID, chatID,
			log.FieldCategory, categoryName,
			log.FieldError, err)
		return c.reply(ctx, chatID, replyInternalError)
	}

	b := core.Budget{
		UserID:     userID,
		CategoryID: categoryID,
		Amount:     amount,
		Period:     period,
		Currency:   "IDR",
		StartDate:  c.now().UTC(),
	}
	if _, err := c.store.CreateBudget(ctx, b); err != nil {
		c.logger.ErrorContext(ctx, "Failed to create budget",
			log.FieldChatID, chatID,
			log.FieldUserID, userID,
			log.FieldCategory, categoryName,
			log.FieldError, err)
		return c.reply(ctx, chatID, replyInternalError)
	}

	c.logger.InfoContext(ctx, "Budget created",
		log.FieldUserID, userID,
		log.FieldCategory, categoryName,
		log.FieldAmount, amount.String(),
		log.FieldPeriod, string(period))

	return c.reply(ctx, chatID, fmt.Sprintf("Budget set: %s %s %s.",
		categoryName, amount.String(), period))
}

func (c *Controller) reply(ctx context.Context, chatID int64, text string) error {
	return c.replier.SendReply(ctx, chatID, text, false)
}

func confirmationEcho(d core.Draft) string {
	var sb strings.Builder
	sb.WriteString("Please confirm (reply \"yes\" within 5 minutes):\n")
	fmt.Fprintf(&sb, "%s %s %s/%s\n", d.Type, d.Amount.String(), d.Category, d.Account)
	sb.WriteString(dates.FormatLocalDate(d.OccurredAt))
	if d.Description != "" {
		sb.WriteString(": " + d.Description)
	}
	return sb.String()
}

func parseErrorReply(err error) string {
	switch {
	case errors.Is(err, dates.ErrInvalidDate):
		return "That timestamp is not a valid date. Use [YYYY-MM-DD HH:MM] in Jakarta time."
	case errors.Is(err, core.ErrInvalidAmount):
		return "That amount does not look right. Use digits, e.g. 75000 or 1.250,50."
	default:
		return "I could not read that. Expected:\n" + parser.Usage
	}
}

func rangeErrorReply(err error) string {
	if errors.Is(err, dates.ErrInvalidDate) {
		return "That date is out of range. Accepted forms: " + dates.AcceptedRangeForms
	}
	return "I could not read that range. Accepted forms: " + dates.AcceptedRangeForms
}
