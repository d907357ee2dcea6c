// Package worker mirrors saved transactions from SQLite to Google Sheets.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"duitbot/internal/core"
	"duitbot/internal/events"
	"duitbot/internal/sheets"
)

// TransactionReader is the slice of storage the worker needs.
type TransactionReader interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	PendingMirror(ctx context.Context, limit int) ([]int64, error)
	MarkMirrored(ctx context.Context, id int64) error
}

// MirrorWorker consumes transaction-saved events and appends the rows to a
// spreadsheet, marking each one mirrored on success.
type MirrorWorker struct {
	storage   TransactionReader
	sheets    sheets.RowAppender
	batchSize int
}

func NewMirrorWorker(storage TransactionReader, appender sheets.RowAppender, batchSize int) *MirrorWorker {
	return &MirrorWorker{
		storage:   storage,
		sheets:    appender,
		batchSize: batchSize,
	}
}

// HandleEvent processes a single transaction-saved event from the queue.
func (w *MirrorWorker) HandleEvent(ctx context.Context, evt *events.TransactionSavedEvent) error {
	slog.InfoContext(ctx, "Processing transaction-saved event",
		"event_id", evt.EventID,
		"transaction_id", evt.TransactionID)

	return w.mirrorOne(ctx, evt.TransactionID)
}

// ProcessPending mirrors rows that never made it onto the sheet. This is a
// backup mechanism in case queue messages are lost.
func (w *MirrorWorker) ProcessPending(ctx context.Context) error {
	ids, err := w.storage.PendingMirror(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}

	if len(ids) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(ids))

	for _, id := range ids {
		if err := w.mirrorOne(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror transaction", "transaction_id", id, "error", err)
			continue
		}
	}

	return nil
}

// StartupCheck sweeps a larger pending batch once at worker startup, to
// recover from missed messages or worker downtime.
func (w *MirrorWorker) StartupCheck(ctx context.Context) error {
	ids, err := w.storage.PendingMirror(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}

	if len(ids) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup, processing...",
		"count", len(ids))

	mirrored := 0
	failed := 0
	for _, id := range ids {
		if err := w.mirrorOne(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror transaction during startup",
				"transaction_id", id, "error", err)
			failed++
			continue
		}
		mirrored++
	}

	slog.InfoContext(ctx, "Startup mirror sweep completed",
		"total", len(ids),
		"mirrored", mirrored,
		"errors", failed)

	return nil
}

func (w *MirrorWorker) mirrorOne(ctx context.Context, id int64) error {
	tx, err := w.storage.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	ref, err := w.sheets.AppendTransaction(ctx, tx)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.storage.MarkMirrored(ctx, id); err != nil {
		// The row is on the sheet already, so the pending sweep may append it
		// again. Surface the bookkeeping failure rather than dropping it.
		slog.ErrorContext(ctx, "Failed to mark transaction mirrored",
			"transaction_id", id, "error", err)
	}

	slog.InfoContext(ctx, "Successfully mirrored transaction",
		"transaction_id", id,
		"sheets_ref", ref,
		"amount", tx.Amount.String(),
		"category", tx.Category)

	return nil
}
