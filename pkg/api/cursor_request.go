package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"

	"github.com/stashdb/stashdb/pkg/domain"
)

// parseBatchSize validates an optional batchSize field. An absent field
// means "no limit": the effectively unbounded sentinel keeps the batch
// assembler's counting logic uniform.
func parseBatchSize(batchSize *int64) (int64, error) {
	if batchSize == nil {
		return math.MaxInt64, nil
	}
	if *batchSize < 0 {
		return 0, fmt.Errorf("batchSize must not be negative, got %d: %w", *batchSize, domain.ErrBadValue)
	}
	return *batchSize, nil
}

// decodeCommandBody decodes a JSON request body into dst. An empty body is
// allowed and leaves dst at its zero value.
func decodeCommandBody(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("invalid request body: %v: %w", err, domain.ErrBadValue)
}
