package writer

import (
	"errors"
	"net/http"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var transientHTTP = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

var transientGRPC = map[codes.Code]bool{
	codes.Aborted:           true,
	codes.DeadlineExceeded:  true,
	codes.Internal:          true,
	codes.ResourceExhausted: true,
	codes.Unavailable:       true,
}

// transient reports whether every leaf failure inside err is one a retry can
// clear. A single permanent row error makes the whole batch permanent.
func transient(err error) bool {
	leaves := flatten(err, nil)
	if len(leaves) == 0 {
		return false
	}
	for _, leaf := range leaves {
		if !transientLeaf(leaf) {
			return false
		}
	}
	return true
}

// flatten expands the BigQuery aggregate error types into their row-level
// causes. Empty aggregates contribute nothing.
func flatten(err error, out []error) []error {
	if err == nil {
		return out
	}
	var multi *cbigquery.MultiError
	if errors.As(err, &multi) && multi != nil {
		for _, inner := range *multi {
			out = flatten(inner, out)
		}
		return out
	}
	var put *cbigquery.PutMultiError
	if errors.As(err, &put) && put != nil {
		for i := range *put {
			out = flatten(&(*put)[i], out)
		}
		return out
	}
	var row *cbigquery.RowInsertionError
	if errors.As(err, &row) && row != nil {
		for _, inner := range row.Errors {
			out = flatten(inner, out)
		}
		return out
	}
	return append(out, err)
}

func transientLeaf(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return transientHTTP[apiErr.Code]
	}
	if st, ok := status.FromError(err); ok {
		return transientGRPC[st.Code()]
	}
	return false
}
