package youtube

import "context"

// Upstream page size ceilings.
const (
	maxPlaylistPageSize = 50
	maxCommentPageSize  = 100
)

// PageFunc fetches one page starting at pageToken ("" for the first page) and
// returns its items together with the continuation token ("" when exhausted).
type PageFunc[T any] func(ctx context.Context, pageToken string, pageSize int64) ([]T, string, error)

// Paginate calls fetch until the upstream stops returning a continuation token
// or limit items have been collected. limit <= 0 means no cap. The page size is
// the smaller of maxPageSize and the remaining quota, and the result never
// exceeds limit.
//
// A failed page stops the walk: the items collected so far are returned along
// with the error, and each caller decides whether they are worth keeping.
func Paginate[T any](ctx context.Context, maxPageSize int64, limit int, fetch PageFunc[T]) ([]T, error) {
	var items []T
	pageToken := ""

	for {
		pageSize := maxPageSize
		if limit > 0 {
			if remaining := int64(limit - len(items)); remaining < pageSize {
				pageSize = remaining
			}
		}

		page, next, err := fetch(ctx, pageToken, pageSize)
		if err != nil {
			return items, err
		}
		items = append(items, page...)

		if limit > 0 && len(items) >= limit {
			return items[:limit], nil
		}
		if next == "" {
			return items, nil
		}
		pageToken = next
	}
}
