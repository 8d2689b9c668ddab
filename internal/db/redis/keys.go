package redis

import (
	"context"

	"github.com/dishola/dishola/internal/db"
)

// DeleteMatching walks the keyspace with SCAN and unlinks each page as it
// arrives. It returns how many keys were removed, including on error.
func (s *Store) DeleteMatching(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		page, err := s.client.Do(ctx, s.client.B().Scan().Cursor(cursor).Match(pattern).Count(scanPage).Build()).AsScanEntry()
		if err != nil {
			return removed, &db.Error{Op: db.OpScan, Err: err}
		}
		if len(page.Elements) > 0 {
			n, err := s.client.Do(ctx, s.client.B().Unlink().Key(page.Elements...).Build()).AsInt64()
			if err != nil {
				return removed, &db.Error{Op: db.OpUnlink, Err: err}
			}
			removed += int(n)
		}
		if cursor = page.Cursor; cursor == 0 {
			return removed, nil
		}
	}
}
