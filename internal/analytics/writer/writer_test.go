package writer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/pennyekart/pennyekart-backend/internal/analytics/types"
	pkgbigquery "github.com/pennyekart/pennyekart-backend/pkg/bigquery"
)

func TestNewWriterValidation(t *testing.T) {
	if _, err := New(nil, Config{}); err == nil {
		t.Fatal("expected error when client missing")
	}
	if _, err := New(&pkgbigquery.Client{}, Config{FulfillmentTable: " "}); err == nil {
		t.Fatal("expected error when fulfillment table missing")
	}
}

func TestEncodeJSON(t *testing.T) {
	raw := map[string]any{"foo": "bar"}
	nj, err := EncodeJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error encoding json: %v", err)
	}
	if !nj.Valid {
		t.Fatal("expected json to be marked valid")
	}

	nj, err = EncodeJSON(nil)
	if err != nil {
		t.Fatalf("unexpected error for nil json: %v", err)
	}
	if nj.Valid {
		t.Fatal("expected nil json to be invalid")
	}

	rawMessage := json.RawMessage(`{"foo":"baz"}`)
	nj, err = EncodeJSON(rawMessage)
	if err != nil {
		t.Fatalf("unexpected error encoding raw json: %v", err)
	}
	if nj.JSONVal != string(rawMessage) {
		t.Fatalf("expected raw json passed through, got %s", nj.JSONVal)
	}
}

func TestWriterRetriesOnTransientError(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{
		&googleapi.Error{Code: http.StatusServiceUnavailable},
		nil,
	}

	if err := writer.InsertFulfillment(context.Background(), types.FulfillmentFactRow{EventID: "1"}); err != nil {
		t.Fatalf("unexpected error writing row: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected two insert attempts, got %d", len(fake.calls))
	}
	if fake.calls[1].table != "fulfillment_facts" {
		t.Fatalf("expected fulfillment table on retry, got %s", fake.calls[1].table)
	}
	if len(writer.buffer) != 0 {
		t.Fatal("expected buffer to be empty after success")
	}
}

func TestWriterBatching(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	writer.batchSize = 2

	if err := writer.InsertFulfillment(context.Background(), types.FulfillmentFactRow{EventID: "1"}); err != nil {
		t.Fatalf("unexpected error on first insert: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatalf("expected no insert before batch full, got %d", len(fake.calls))
	}

	if err := writer.InsertFulfillment(context.Background(), types.FulfillmentFactRow{EventID: "2"}); err != nil {
		t.Fatalf("unexpected error on second insert: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected single insert after batch flush, got %d", len(fake.calls))
	}
	if fake.calls[0].rowCount != 2 {
		t.Fatalf("expected two rows inserted, got %d", fake.calls[0].rowCount)
	}
}

func TestWriterFlush(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	writer.batchSize = 10
	if err := writer.InsertFulfillment(context.Background(), types.FulfillmentFactRow{EventID: "1"}); err != nil {
		t.Fatalf("unexpected insert error: %v", err)
	}
	if err := writer.Flush(context.Background()); err != nil {
		t.Fatalf("unexpected flush error: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected flush to insert once, got %d", len(fake.calls))
	}
	if len(writer.buffer) != 0 {
		t.Fatalf("expected buffer to be empty after flush, got %d", len(writer.buffer))
	}
}

func TestWriterStopsOnPermanentError(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{&googleapi.Error{Code: http.StatusBadRequest}}

	err := writer.InsertFulfillment(context.Background(), types.FulfillmentFactRow{EventID: "1"})
	if err == nil {
		t.Fatal("expected error on permanent failure")
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected single attempt, got %d", len(fake.calls))
	}
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if len(writer.buffer) != 0 {
		t.Fatalf("expected rejected batch dropped, got %d", len(writer.buffer))
	}
}

func TestWriterKeepsBufferAfterTransientExhaustion(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	unavailable := &googleapi.Error{Code: http.StatusServiceUnavailable}
	fake.responses = []error{unavailable, unavailable, unavailable}

	err := writer.InsertFulfillment(context.Background(), types.FulfillmentFactRow{EventID: "1"})
	if err == nil || errors.Is(err, ErrRejected) {
		t.Fatalf("expected transient failure, got %v", err)
	}
	if len(fake.calls) != 3 {
		t.Fatalf("expected default 3 attempts, got %d", len(fake.calls))
	}
	if len(writer.buffer) != 1 {
		t.Fatalf("expected row kept for a later flush, got %d", len(writer.buffer))
	}
}

func TestWriterKeysRowsByEventID(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	writer.batchSize = 2

	_ = writer.InsertFulfillment(context.Background(),
		types.FulfillmentFactRow{EventID: "evt-1:a"},
		types.FulfillmentFactRow{EventID: "evt-1:b"},
	)
	if len(fake.calls) != 1 {
		t.Fatalf("expected one insert, got %d", len(fake.calls))
	}
	if got := fake.calls[0].insertIDs; len(got) != 2 || got[0] != "evt-1:a" || got[1] != "evt-1:b" {
		t.Fatalf("unexpected insert ids %v", got)
	}
}

func TestRetryPolicyDefaults(t *testing.T) {
	p := RetryPolicy{}.withDefaults()
	if p.MaxAttempts != defaultMaxAttempts || p.InitialBackoff != defaultInitialBackoff || p.MaximumBackoff != defaultMaximumBackoff {
		t.Fatalf("unexpected defaults %+v", p)
	}
	p = RetryPolicy{InitialBackoff: time.Second, MaximumBackoff: time.Millisecond}.withDefaults()
	if p.MaximumBackoff != time.Second {
		t.Fatalf("expected maximum raised to initial, got %v", p.MaximumBackoff)
	}
}

func TestFulfillmentTableCoversRowColumns(t *testing.T) {
	rowType := reflect.TypeOf(types.FulfillmentFactRow{})
	spec := FulfillmentTable("fulfillment_events")
	if len(spec.Schema) != rowType.NumField() {
		t.Fatalf("schema has %d columns, row has %d", len(spec.Schema), rowType.NumField())
	}
	for i := 0; i < rowType.NumField(); i++ {
		if tag := rowType.Field(i).Tag.Get("bigquery"); spec.Schema[i].Name != tag {
			t.Fatalf("column %d: schema %q, row %q", i, spec.Schema[i].Name, tag)
		}
	}
	if spec.PartitionField != "occurred_at" {
		t.Fatalf("unexpected partition field %q", spec.PartitionField)
	}
}

type insertCall struct {
	table     string
	rowCount  int
	insertIDs []string
}

type fakeInserter struct {
	responses []error
	calls     []insertCall
	index     int
}

func (f *fakeInserter) InsertRows(_ context.Context, table string, rows []pkgbigquery.Row) error {
	call := insertCall{table: table, rowCount: len(rows)}
	for _, row := range rows {
		call.insertIDs = append(call.insertIDs, row.InsertID)
	}
	f.calls = append(f.calls, call)
	var err error
	if f.index < len(f.responses) {
		err = f.responses[f.index]
	}
	f.index++
	return err
}

func newWriterWithFakeInserter(t *testing.T) (*BigQueryWriter, *fakeInserter) {
	t.Helper()
	writer, err := New(&pkgbigquery.Client{}, Config{
		FulfillmentTable: "fulfillment_facts",
		RetryPolicy:      RetryPolicy{InitialBackoff: time.Millisecond, MaximumBackoff: time.Millisecond},
	})
	if err != nil {
		t.Fatalf("construct writer: %v", err)
	}

	fake := &fakeInserter{}
	writer.client = fake
	return writer, fake
}
