package journal

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/jotvault/jotvault/internal/crypto"
	"github.com/jotvault/jotvault/internal/storage"
)

// decryptAll runs decrypt over records with at most s.workers in flight.
// Output keeps the store's order.
func decryptAll[T any](ctx context.Context, s *Service, records []storage.Record,
	decrypt func(context.Context, storage.Record) (T, error)) ([]T, error) {

	results := make([]T, len(records))
	errs := make([]error, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.workers, 1))
	for i, r := range records {
		i, r := i, r // per-iteration copies; go1.21 loop variables are shared
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = decrypt(gctx, r)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var (
		out       = make([]T, 0, len(records))
		failures  []error
		encrypted int
		authFails int
	)
	for i, r := range records {
		if s.hasEncryptedField(r) {
			encrypted++
		}
		if errs[i] != nil {
			if errors.Is(errs[i], crypto.ErrAuthentication) {
				authFails++
			}
			failures = append(failures, errs[i])
			continue
		}
		out = append(out, results[i])
	}

	if encrypted > 0 && authFails == encrypted {
		s.logger.ErrorContext(ctx, "no stored field could be authenticated",
			"records", len(records), "encrypted", encrypted)
		return nil, ErrKeyMismatch
	}
	if len(failures) > 0 {
		s.logger.WarnContext(ctx, "some records failed to decrypt",
			"failed", len(failures), "records", len(records))
	}
	return out, errors.Join(failures...)
}

func (s *Service) hasEncryptedField(r storage.Record) bool {
	for k, v := range r.Fields {
		if k == fieldFolderID {
			continue
		}
		if s.fields.IsEncrypted(v) {
			return true
		}
	}
	return false
}
