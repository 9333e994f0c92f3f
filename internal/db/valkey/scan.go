package valkey

import (
	"context"

	"github.com/kailas-cloud/tastefeed/internal/db"
)

const scanCount = 256

// ScanPrefix walks every key starting with prefix via SCAN and fetches each
// page's kept values with a single MGET. Keys deleted between SCAN and MGET
// are skipped.
func (s *Store) ScanPrefix(
	ctx context.Context, prefix string,
	keep func(key string) bool, fn func(page []db.Entry) error,
) error {
	pattern := escapeGlob(prefix) + "*"
	var cursor uint64

	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(scanCount).Build()
		res, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return &db.Error{Op: db.OpScan, Err: err}
		}

		keys := make([]string, 0, len(res.Elements))
		for _, k := range res.Elements {
			if keep == nil || keep(k) {
				keys = append(keys, k)
			}
		}

		if len(keys) > 0 {
			values, err := s.MGet(ctx, keys)
			if err != nil {
				return err
			}
			page := make([]db.Entry, 0, len(keys))
			for i, v := range values {
				if v == nil {
					continue
				}
				page = append(page, db.Entry{Key: keys[i], Value: v})
			}
			if len(page) > 0 {
				if err := fn(page); err != nil {
					return err
				}
			}
		}

		cursor = res.Cursor
		if cursor == 0 {
			return nil
		}
	}
}

// escapeGlob escapes characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
