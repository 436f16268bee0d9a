package writer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	cbigquery "cloud.google.com/go/bigquery"

	"github.com/pennyekart/pennyekart-backend/internal/analytics/types"
	pkgbigquery "github.com/pennyekart/pennyekart-backend/pkg/bigquery"
)

const (
	defaultBatchSize      = 1
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 250 * time.Millisecond
	defaultMaximumBackoff = 2 * time.Second
)

// Config controls the fulfillment writer.
type Config struct {
	FulfillmentTable string
	BatchSize        int
	RetryPolicy      RetryPolicy
}

// RetryPolicy bounds retries of transient BigQuery failures.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []pkgbigquery.Row) error
}

// ErrRejected marks a batch BigQuery refused for reasons a retry cannot fix.
var ErrRejected = errors.New("bigquery rejected rows")

// BigQueryWriter streams fulfillment facts into BigQuery, buffering up to
// BatchSize rows per insert. Every row is keyed by its event id.
type BigQueryWriter struct {
	client    tableInserter
	table     string
	batchSize int
	retry     RetryPolicy

	mu     sync.Mutex
	buffer []types.FulfillmentFactRow
}

func New(client *pkgbigquery.Client, cfg Config) (*BigQueryWriter, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	table := strings.TrimSpace(cfg.FulfillmentTable)
	if table == "" {
		return nil, errors.New("fulfillment table is required")
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &BigQueryWriter{
		client:    client,
		table:     table,
		batchSize: batchSize,
		retry:     cfg.RetryPolicy.withDefaults(),
	}, nil
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = defaultInitialBackoff
	}
	if p.MaximumBackoff <= 0 {
		p.MaximumBackoff = defaultMaximumBackoff
	}
	p.MaximumBackoff = max(p.MaximumBackoff, p.InitialBackoff)
	return p
}

// InsertFulfillment buffers rows and flushes once the batch is full.
func (w *BigQueryWriter) InsertFulfillment(ctx context.Context, rows ...types.FulfillmentFactRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buffer = append(w.buffer, rows...)
	if len(w.buffer) >= w.batchSize {
		return w.flushLocked(ctx)
	}
	return nil
}

// Flush writes any buffered rows immediately.
func (w *BigQueryWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked(ctx)
}

// flushLocked keeps the buffer after transient failures so the next flush
// retries it. A rejected batch is dropped so it cannot wedge later rows.
func (w *BigQueryWriter) flushLocked(ctx context.Context) error {
	if len(w.buffer) == 0 {
		return nil
	}
	rows := make([]pkgbigquery.Row, len(w.buffer))
	for i := range w.buffer {
		rows[i] = pkgbigquery.Row{InsertID: w.buffer[i].EventID, Value: &w.buffer[i]}
	}
	err := w.insertWithRetry(ctx, rows)
	if err == nil || errors.Is(err, ErrRejected) {
		w.buffer = nil
	}
	return err
}

func (w *BigQueryWriter) insertWithRetry(ctx context.Context, rows []pkgbigquery.Row) error {
	backoff := w.retry.InitialBackoff
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := w.client.InsertRows(ctx, w.table, rows)
		if err == nil {
			return nil
		}
		if !transient(err) {
			return fmt.Errorf("%w: insert %d rows into %s: %w", ErrRejected, len(rows), w.table, err)
		}
		if attempt >= w.retry.MaxAttempts {
			return fmt.Errorf("insert %d rows into %s after %d attempts: %w", len(rows), w.table, attempt, err)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, w.retry.MaximumBackoff)
	}
}

// EncodeJSON prepares a value for a BigQuery JSON column. Empty input maps
// to a NULL column.
func EncodeJSON(payload any) (cbigquery.NullJSON, error) {
	var raw []byte
	switch value := payload.(type) {
	case nil:
	case cbigquery.NullJSON:
		return value, nil
	case json.RawMessage:
		raw = value
	case []byte:
		raw = value
	default:
		encoded, err := json.Marshal(payload)
		if err != nil {
			return cbigquery.NullJSON{}, fmt.Errorf("marshal json: %w", err)
		}
		raw = encoded
	}
	if len(raw) == 0 {
		return cbigquery.NullJSON{}, nil
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(raw)}, nil
}
