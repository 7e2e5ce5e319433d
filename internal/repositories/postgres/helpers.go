package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/language-gems/analytics-service/internal/repositories"
	"gorm.io/gorm"
)

// DefaultChunkSize bounds the number of ids sent in one IN clause.
const DefaultChunkSize = 50

// SharedHelpers holds query plumbing used by every reader.
type SharedHelpers struct {
	db        *gorm.DB
	chunkSize int
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db, chunkSize: DefaultChunkSize}
}

// Query starts a context-bound query on the given model.
func (h *SharedHelpers) Query(ctx context.Context, model interface{}) *gorm.DB {
	return h.db.WithContext(ctx).Model(model)
}

// FindInChunks runs fn for every chunk of ids and concatenates the results.
// Duplicated ids are sent once.
func FindInChunks[T any](ids []string, size int, fn func(chunk []string) ([]*T, error)) ([]*T, error) {
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return []*T{}, nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}

	out := make([]*T, 0, len(ids))
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		rows, err := fn(ids[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// wrapError maps gorm and driver errors onto the repository error types.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.ErrNotFound
	}

	de := &repositories.DownstreamError{Op: op, Err: err}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		de.Code = pgErr.Code
		de.Details = pgErr.Detail
		if de.Details == "" {
			de.Details = pgErr.Message
		}
	} else {
		de.Details = err.Error()
	}
	return de
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
