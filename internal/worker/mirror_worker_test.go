package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"duitbot/internal/core"
	"duitbot/internal/events"
)

type fakeStorage struct {
	transactions map[int64]core.Transaction
	pending      []int64
	mirrored     []int64
	getErr       error
	markErr      error
}

func (f *fakeStorage) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	if f.getErr != nil {
		return core.Transaction{}, f.getErr
	}
	tx, ok := f.transactions[id]
	if !ok {
		return core.Transaction{}, errors.New("not found")
	}
	return tx, nil
}

func (f *fakeStorage) PendingMirror(_ context.Context, limit int) ([]int64, error) {
	if limit < len(f.pending) {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeStorage) MarkMirrored(_ context.Context, id int64) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.mirrored = append(f.mirrored, id)
	return nil
}

type fakeAppender struct {
	rows []core.Transaction
	err  error
}

func (f *fakeAppender) AppendTransaction(_ context.Context, tx core.Transaction) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.rows = append(f.rows, tx)
	return "Ledger!A7:F7", nil
}

func sampleTransaction(id int64) core.Transaction {
	return core.Transaction{
		ID:          id,
		UserID:      1,
		Type:        core.Outcome,
		Amount:      decimal.NewFromInt(75000),
		Category:    "Food",
		Account:     "BCA",
		Description: "lunch",
		OccurredAt:  time.Date(2025, 8, 29, 4, 30, 0, 0, time.UTC),
	}
}

func TestHandleEventMirrorsAndMarks(t *testing.T) {
	store := &fakeStorage{transactions: map[int64]core.Transaction{42: sampleTransaction(42)}}
	appender := &fakeAppender{}
	w := NewMirrorWorker(store, appender, 10)

	evt := events.NewTransactionSavedEvent(42)
	if err := w.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if len(appender.rows) != 1 || appender.rows[0].ID != 42 {
		t.Fatalf("expected transaction 42 appended, got %+v", appender.rows)
	}
	if len(store.mirrored) != 1 || store.mirrored[0] != 42 {
		t.Fatalf("expected transaction 42 marked mirrored, got %v", store.mirrored)
	}
}

func TestHandleEventStorageFailure(t *testing.T) {
	store := &fakeStorage{getErr: errors.New("db locked")}
	w := NewMirrorWorker(store, &fakeAppender{}, 10)

	if err := w.HandleEvent(context.Background(), events.NewTransactionSavedEvent(1)); err == nil {
		t.Fatal("expected error when storage read fails")
	}
}

func TestHandleEventAppendFailureLeavesUnmarked(t *testing.T) {
	store := &fakeStorage{transactions: map[int64]core.Transaction{7: sampleTransaction(7)}}
	appender := &fakeAppender{err: errors.New("quota exceeded")}
	w := NewMirrorWorker(store, appender, 10)

	if err := w.HandleEvent(context.Background(), events.NewTransactionSavedEvent(7)); err == nil {
		t.Fatal("expected error when append fails")
	}
	if len(store.mirrored) != 0 {
		t.Fatalf("transaction must stay pending after append failure, got %v", store.mirrored)
	}
}

func TestProcessPendingContinuesPastFailures(t *testing.T) {
	store := &fakeStorage{
		transactions: map[int64]core.Transaction{
			1: sampleTransaction(1),
			3: sampleTransaction(3),
		},
		pending: []int64{1, 2, 3}, // 2 has no row, GetTransaction fails
	}
	appender := &fakeAppender{}
	w := NewMirrorWorker(store, appender, 10)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}

	if len(appender.rows) != 2 {
		t.Fatalf("expected 2 rows appended, got %d", len(appender.rows))
	}
	if len(store.mirrored) != 2 || store.mirrored[0] != 1 || store.mirrored[1] != 3 {
		t.Fatalf("expected 1 and 3 mirrored, got %v", store.mirrored)
	}
}

func TestProcessPendingRespectsBatchSize(t *testing.T) {
	store := &fakeStorage{
		transactions: map[int64]core.Transaction{
			1: sampleTransaction(1),
			2: sampleTransaction(2),
			3: sampleTransaction(3),
		},
		pending: []int64{1, 2, 3},
	}
	appender := &fakeAppender{}
	w := NewMirrorWorker(store, appender, 2)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if len(appender.rows) != 2 {
		t.Fatalf("expected batch of 2, got %d rows", len(appender.rows))
	}
}

func TestProcessPendingNothingToDo(t *testing.T) {
	store := &fakeStorage{}
	appender := &fakeAppender{}
	w := NewMirrorWorker(store, appender, 10)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if len(appender.rows) != 0 {
		t.Fatalf("expected no appends, got %d", len(appender.rows))
	}
}
