package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pennyekart/pennyekart-backend/pkg/db/dbtest"
	pkgerrors "github.com/pennyekart/pennyekart-backend/pkg/errors"
)

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -3: DefaultLimit, 10: 10, 500: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
	if LimitWithBuffer(10) != 11 {
		t.Fatalf("expected buffer of one extra row")
	}
}

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 123, time.UTC), ID: uuid.New()}
	got, err := ParseCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Fatalf("cursor mismatch: %+v vs %+v", got, want)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if c, err := ParseCursor("  "); err != nil || c != nil {
		t.Fatalf("blank cursor should be nil, got %v %v", c, err)
	}
	for _, raw := range []string{"!!!", encodeCursorRaw("no-json"), encodeCursorRaw(`{"t":"2026-03-01T00:00:00Z"}`)} {
		if _, err := ParseCursor(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestPage(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	type row struct {
		id uuid.UUID
		at time.Time
	}
	rows := []row{{uuid.New(), base}, {uuid.New(), base.Add(-time.Hour)}, {uuid.New(), base.Add(-2 * time.Hour)}}
	cursorOf := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page, next := Page(rows, 2, cursorOf)
	if len(page) != 2 || next == "" {
		t.Fatalf("expected 2 rows and a cursor, got %d %q", len(page), next)
	}
	c, err := ParseCursor(next)
	if err != nil || c.ID != rows[1].id {
		t.Fatalf("cursor should point at last returned row: %+v %v", c, err)
	}

	page, next = Page(rows, 5, cursorOf)
	if len(page) != 3 || next != "" {
		t.Fatalf("expected final page without cursor, got %d %q", len(page), next)
	}
}

func encodeCursorRaw(payload string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

type ledgerRow struct {
	ID        uuid.UUID
	CreatedAt time.Time
}

func TestKeysetWalksPagesNewestFirst(t *testing.T) {
	conn := dbtest.Open(t)
	require.NoError(t, conn.Exec(`CREATE TABLE ledger_rows (id TEXT PRIMARY KEY, created_at DATETIME)`).Error)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		row := ledgerRow{ID: uuid.New(), CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, conn.Table("ledger_rows").Create(&row).Error)
	}
	cursorOf := func(r ledgerRow) Cursor { return Cursor{CreatedAt: r.CreatedAt, ID: r.ID} }

	var seen []time.Time
	params := Params{Limit: 2}
	for pages := 0; pages < 5; pages++ {
		query, err := Keyset(conn.Table("ledger_rows"), params)
		require.NoError(t, err)
		var rows []ledgerRow
		require.NoError(t, query.Find(&rows).Error)
		page, next := Page(rows, params.Limit, cursorOf)
		for _, r := range page {
			seen = append(seen, r.CreatedAt)
		}
		if next == "" {
			break
		}
		params.Cursor = next
	}

	require.Len(t, seen, 5)
	for i := 1; i < len(seen); i++ {
		require.True(t, seen[i].Before(seen[i-1]), "rows must be strictly newest first")
	}
}

func TestKeysetRejectsBadCursor(t *testing.T) {
	conn := dbtest.Open(t)
	_, err := Keyset(conn, Params{Cursor: "%%%"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestPageNeverNil(t *testing.T) {
	page, next := Page[ledgerRow](nil, 10, func(ledgerRow) Cursor { return Cursor{} })
	require.NotNil(t, page)
	require.Empty(t, next)
}
