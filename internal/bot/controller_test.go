package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"duitbot/internal/budget"
	"duitbot/internal/cache"
	"duitbot/internal/core"
	"duitbot/internal/dates"
	"duitbot/internal/log"
	"duitbot/internal/parser"
)

var fixedNow = time.Date(2025, 8, 29, 4, 30, 0, 0, time.UTC)

type fakeStore struct {
	userID     int64
	categories map[string]int64
	accounts   map[string]int64
	inserted   []core.Draft
	budgets    []core.Budget
	created    []core.Budget
	lastTx     *core.Transaction
	outcomes   []core.Transaction
	summaries  []core.MonthlySummary
	insertErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		userID:     1,
		categories: map[string]int64{},
		accounts:   map[string]int64{},
	}
}

func (f *fakeStore) ResolveOrRegisterUser(_ context.Context, _ int64, _ string) (int64, error) {
	return f.userID, nil
}

func (f *fakeStore) EnsureCategory(_ context.Context, name string, _ core.TransactionType) (int64, error) {
	if id, ok := f.categories[name]; ok {
		return id, nil
	}
	id := int64(len(f.categories) + 1)
	f.categories[name] = id
	return id, nil
}

func (f *fakeStore) EnsureAccount(_ context.Context, name string) (int64, error) {
	if id, ok := f.accounts[name]; ok {
		return id, nil
	}
	id := int64(len(f.accounts) + 1)
	f.accounts[name] = id
	return id, nil
}

func (f *fakeStore) InsertTransaction(_ context.Context, _, _, _ int64, d core.Draft) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.inserted = append(f.inserted, d)
	return int64(len(f.inserted)), nil
}

func (f *fakeStore) SoftDeleteLast(_ context.Context, _ int64) (core.Transaction, bool, error) {
	if f.lastTx == nil {
		return core.Transaction{}, false, nil
	}
	tx := *f.lastTx
	f.lastTx = nil
	return tx, true, nil
}

func (f *fakeStore) ListOutcomes(_ context.Context, _ int64, _, _ time.Time) ([]core.Transaction, error) {
	return f.outcomes, nil
}

func (f *fakeStore) Summaries(_ context.Context, _ int64, months []dates.YearMonth) ([]core.MonthlySummary, error) {
	return f.summaries, nil
}

func (f *fakeStore) ListBudgets(_ context.Context, _ int64) ([]core.Budget, error) {
	return f.budgets, nil
}

func (f *fakeStore) CreateBudget(_ context.Context, b core.Budget) (int64, error) {
	f.created = append(f.created, b)
	return int64(len(f.created)), nil
}

type fakeReplier struct {
	chatIDs []int64
	texts   []string
}

func (f *fakeReplier) SendReply(_ context.Context, chatID int64, text string, _ bool) error {
	f.chatIDs = append(f.chatIDs, chatID)
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeReplier) last(t *testing.T) string {
	t.Helper()
	if len(f.texts) == 0 {
		t.Fatal("no reply was sent")
	}
	return f.texts[len(f.texts)-1]
}

type fakePublisher struct {
	published []int64
	err       error
}

func (f *fakePublisher) PublishTransactionSaved(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, id)
	return nil
}

type fakeBudgetReader struct{ budgets []core.Budget }

func (f *fakeBudgetReader) ActiveBudgets(_ context.Context, _, _ int64, _ time.Time) ([]core.Budget, error) {
	return f.budgets, nil
}

type fakeLedgerReader struct{ amounts []core.TransactionAmount }

func (f *fakeLedgerReader) AmountsInWindow(_ context.Context, _, _ int64, _, _ time.Time) ([]core.TransactionAmount, error) {
	return f.amounts, nil
}

func newTestController(store *fakeStore, replier *fakeReplier, pub Publisher, budgets []core.Budget, amounts []core.TransactionAmount) *Controller {
	logger := log.New(log.DefaultConfig())
	eval := budget.NewEvaluator(&fakeBudgetReader{budgets: budgets}, &fakeLedgerReader{amounts: amounts}, logger)
	pending := cache.NewPending[core.Draft](cache.DefaultTTL)
	c := NewController(store, eval, pending, pub, replier, logger)
	c.SetClock(func() time.Time { return fixedNow })
	return c
}

func incoming(text string) Incoming {
	return Incoming{ChatID: 10, TelegramID: 99, Username: "budi", Text: text}
}

func TestDraftThenConfirmSaves(t *testing.T) {
	store := newFakeStore()
	replier := &fakeReplier{}
	pub := &fakePublisher{}
	c := newTestController(store, replier, pub, nil, nil)
	ctx := context.Background()

	if err := c.Handle(ctx, incoming("outcome 75000 Food BCA Lunch at warung")); err != nil {
		t.Fatalf("Handle draft: %v", err)
	}
	echo := replier.last(t)
	if !strings.Contains(echo, "outcome 75000 Food/BCA") {
		t.Errorf("confirmation echo = %q, want draft summary", echo)
	}
	if !strings.Contains(echo, "Lunch at warung") {
		t.Errorf("confirmation echo = %q, want description", echo)
	}
	if len(store.inserted) != 0 {
		t.Fatal("draft must not be persisted before confirmation")
	}

	if err := c.Handle(ctx, incoming("yes")); err != nil {
		t.Fatalf("Handle confirm: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected 1 inserted transaction, got %d", len(store.inserted))
	}
	if got := store.inserted[0]; got.Category != "Food" || got.Account != "BCA" {
		t.Errorf("inserted draft = %+v", got)
	}
	if got := replier.last(t); !strings.Contains(got, "Saved outcome 75000 for Food/BCA.") {
		t.Errorf("save reply = %q", got)
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.published))
	}
}

func TestConfirmWithoutPendingDraft(t *testing.T) {
	store := newFakeStore()
	replier := &fakeReplier{}
	c := newTestController(store, replier, nil, nil, nil)

	if err := c.Handle(context.Background(), incoming("yes")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got := replier.last(t); !strings.Contains(got, "Nothing to confirm") {
		t.Errorf("reply = %q", got)
	}
	if len(store.inserted) != 0 {
		t.Fatal("nothing should be persisted")
	}
}

func TestConfirmIsSingleUse(t *testing.T) {
	store := newFakeStore()
	replier := &fakeReplier{}
	c := newTestController(store, replier, nil, nil, nil)
	ctx := context.Background()

	if err := c.Handle(ctx, incoming("outcome 500 Food BCA")); err != nil {
		t.Fatalf("Handle draft: %v", err)
	}
	if err := c.Handle(ctx, incoming("yes")); err != nil {
		t.Fatalf("Handle confirm: %v", err)
	}
	if err := c.Handle(ctx, incoming("yes")); err != nil {
		t.Fatalf("Handle second confirm: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("second yes must not save again, got %d inserts", len(store.inserted))
	}
	if got := replier.last(t); !strings.Contains(got, "Nothing to confirm") {
		t.Errorf("reply = %q", got)
	}
}

func TestCancelDiscardsPendingDraft(t *testing.T) {
	store := newFakeStore()
	replier := &fakeReplier{}
	c := newTestController(store, replier, nil, nil, nil)
	ctx := context.Background()

	if err := c.Handle(ctx, incoming("outcome 500 Food BCA")); err != nil {
		t.Fatalf("Handle draft: %v", err)
	}
	if err := c.Handle(ctx, incoming("/cancel")); err != nil {
		t.Fatalf("Handle cancel: %v", err)
	}
	if got := replier.last(t); got != "Cancelled." {
		t.Errorf("reply = %q", got)
	}

	if err := c.Handle(ctx, incoming("yes")); err != nil {
		t.Fatalf("Handle confirm: %v", err)
	}
	if len(store.inserted) != 0 {
		t.Fatal("cancelled draft must not be saved")
	}
}

func TestParseErrorQuotesUsage(t *testing.T) {
	store := newFakeStore()
	replier := &fakeReplier{}
	c := newTestController(store, replier, nil, nil, nil)

	if err := c.Handle(context.Background(), incoming("hello bot")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got := replier.last(t); !strings.Contains(got, parser.Usage) {
		t.Errorf("reply = %q, want usage hint", got)
	}
}

func TestBadTimestampGetsDateReply(t *testing.T) {
	store := newFakeStore()
	replier := &fakeReplier{}
	c := newTestController(store, replier, nil, nil, nil)

	if err := c.Handle(context.Background(), incoming("outcome 500 Food BCA [2025-13-01 10:00]")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got := replier.last(t); !strings.Contains(got, "not a valid date") {
		t.Errorf("reply = %q", got)
	}
}

func TestSaveReplyIncludesBudgetStatus(t *testing.T) {
	store := newFakeStore()
	replier := &fakeReplier{}
	budgets := []core.Budget{{
		ID:         1,
		UserID:     1,
		CategoryID: 1,
		Amount:     decimal.NewFromInt(100000),
		Period:     core.Monthly,
		StartDate:  fixedNow.AddDate(0, -1, 0),
	}}
	amounts := []core.TransactionAmount{
		{Type: core.Outcome, Amount: decimal.NewFromInt(95000)},
	}
	c := newTestController(store, replier, nil, budgets, amounts)
	ctx := context.Background()

	if err := c.Handle(ctx, incoming("outcome 75000 Food BCA")); err != nil {
		t.Fatalf("Handle draft: %v", err)
	}
	if err := c.Handle(ctx, incoming("yes")); err != nil {
		t.Fatalf("Handle confirm: %v", err)
	}

	got := replier.last(t)
	if !strings.Contains(got, "Saved outcome 75000") {
		t.Errorf("reply = %q, want save line", got)
	}
	if !strings.Contains(got, "Warning: budget") {
		t.Errorf("reply = %q, want budget warning", got)
	}
}

func TestPublishFailureDoesNotFailSave(t *testing.T) {
	store := newFakeStore()
	replier := &fakeReplier{}
	pub := &fakePublisher{err: errors.New("broker down")}
	c := newTestController(store, replier, pub, nil, nil)
	ctx := context.Background()

	if err := c.Handle(ctx, incoming("income 500000 Salary BCA")); err != nil {
		t.Fatalf("Handle draft: %v", err)
	}
	if err := c.Handle(ctx, incoming("yes")); err != nil {
		t.Fatalf("Handle confirm: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatal("save must succeed even when publishing fails")
	}
	if got := replier.last(t); !strings.Contains(got, "Saved income 500000") {
		t.Errorf("reply = %q", got)
	}
}

func TestNilPublisherIsAllowed(t *testing.T) {
	store := newFakeStore()
	replier := &fakeReplier{}
	c := newTestController(store, replier, nil, nil, nil)
	ctx := context.Background()

	if err := c.Handle(ctx, incoming("outcome 500 Food BCA")); err != nil {
		t.Fatalf("Handle draft: %v", err)
	}
	if err := c.Handle(ctx, incoming("yes")); err != nil {
		t.Fatalf("Handle confirm: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatal("save must work without a publisher")
	}
}

func TestReportCommand(t *testing.T) {
	store := newFakeStore()
	replier := &fakeReplier{}
	c := newTestController(store, replier, nil, nil, nil)

	if err := c.Handle(context.Background(), incoming("/report 2024-01")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got := replier.last(t); got != "No outcomes found for 01/2024." {
		t.Errorf("reply = %q", got)
	}
}

func TestReportBadRangeQuotesAcceptedForms(t *testing.T) {
	store := newFakeStore()
	replier := &fakeReplier{}
	c := newTestController(store, replier, nil, nil, nil)

	if err := c.Handle(context.Background(), incoming("/report Sept2025")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got := replier.last(t); !strings.Contains(got, dates.AcceptedRangeForms) {
		t.Errorf("reply = %q, want accepted forms", got)
	}
}

func TestSummaryCommand(t *testing.T) {
	store := newFakeStore()
	store.summaries = []core.MonthlySummary{{
		Year:         2025,
		Month:        8,
		TotalIncome:  decimal.NewFromInt(500000),
		TotalOutcome: decimal.NewFromInt(200000),
		Balance:      decimal.NewFromInt(300000),
	}}
	replier := &fakeReplier{}
	c := newTestController(store, replier, nil, nil, nil)

	if err := c.Handle(context.Background(), incoming("/summary 2025-08")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	got := replier.last(t)
	if !strings.Contains(got, "08/2025") || !strings.Contains(got, "Surplus: 300000") {
		t.Errorf("reply = %q", got)
	}
}

func TestUndo(t *testing.T) {
	store := newFakeStore()
	store.lastTx = &core.Transaction{
		Type:     core.Outcome,
		Amount:   decimal.NewFromInt(75000),
		Category: "Food",
		Account:  "BCA",
	}
	replier := &fakeReplier{}
	c := newTestController(store, replier, nil, nil, nil)
	ctx := context.Background()

	if err := c.Handle(ctx, incoming("/undo")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got := replier.last(t); !strings.Contains(got, "Removed outcome 75000 for Food/BCA.") {
		t.Errorf("reply = %q", got)
	}

	if err := c.Handle(ctx, incoming("/undo")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got := replier.last(t); got != "Nothing to undo." {
		t.Errorf("reply = %q", got)
	}
}

func TestBudgetListEmpty(t *testing.T) {
	store := newFakeStore()
	replier := &fakeReplier{}
	c := newTestController(store, replier, nil, nil, nil)

	if err := c.Handle(context.Background(), incoming("/budget")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got := replier.last(t); !strings.Contains(got, "No budgets configured") {
		t.Errorf("reply = %q", got)
	}
}

func TestBudgetList(t *testing.T) {
	end := time.Date(2025, 12, 31, 17, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.budgets = []core.Budget{{
		Category:  "Food",
		Amount:    decimal.NewFromInt(100000),
		Period:    core.Monthly,
		Currency:  "IDR",
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   &end,
	}}
	replier := &fakeReplier{}
	c := newTestController(store, replier, nil, nil, nil)

	if err := c.Handle(context.Background(), incoming("/budget")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	got := replier.last(t)
	if !strings.Contains(got, "Food: 100000 IDR (monthly") {
		t.Errorf("reply = %q", got)
	}
	if !strings.Contains(got, "until 01/01/2026") {
		// 31 Dec 2025 17:00 UTC is 1 Jan 2026 in Jakarta
		t.Errorf("reply = %q, want Jakarta-local end date", got)
	}
}

func TestBudgetCreate(t *testing.T) {
	store := newFakeStore()
	replier := &fakeReplier{}
	c := newTestController(store, replier, nil, nil, nil)

	if err := c.Handle(context.Background(), incoming("/budget food 100000 monthly")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected 1 budget created, got %d", len(store.created))
	}
	b := store.created[0]
	if b.Period != core.Monthly || !b.Amount.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("created budget = %+v", b)
	}
	if got := replier.last(t); !strings.Contains(got, "Budget set: Food 100000 monthly.") {
		t.Errorf("reply = %q", got)
	}
}

func TestBudgetCreateBadPeriod(t *testing.T) {
	store := newFakeStore()
	replier := &fakeReplier{}
	c := newTestController(store, replier, nil, nil, nil)

	if err := c.Handle(context.Background(), incoming("/budget Food 100000 fortnightly")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(store.created) != 0 {
		t.Fatal("no budget should be created")
	}
	if got := replier.last(t); !strings.Contains(got, "Unknown period") {
		t.Errorf("reply = %q", got)
	}
}

func TestUnknownCommand(t *testing.T) {
	store := newFakeStore()
	replier := &fakeReplier{}
	c := newTestController(store, replier, nil, nil, nil)

	if err := c.Handle(context.Background(), incoming("/frobnicate")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got := replier.last(t); !strings.Contains(got, "Unknown command") {
		t.Errorf("reply = %q", got)
	}
}

func TestEmptyMessageIgnored(t *testing.T) {
	store := newFakeStore()
	replier := &fakeReplier{}
	c := newTestController(store, replier, nil, nil, nil)

	if err := c.Handle(context.Background(), incoming("   ")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(replier.texts) != 0 {
		t.Fatalf("expected no reply, got %q", replier.texts)
	}
}
