package router

import (
	"context"

	"github.com/pennyekart/pennyekart-backend/internal/analytics/types"
)

type fakeWriter struct {
	inserted []types.FulfillmentFactRow
	err      error
}

func (f *fakeWriter) InsertFulfillment(_ context.Context, rows ...types.FulfillmentFactRow) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, rows...)
	return nil
}
