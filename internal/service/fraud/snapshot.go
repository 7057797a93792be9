package fraud

import (
	"context"

	"golang.org/x/sync/errgroup"

	"turnstile/internal/models"
	"turnstile/internal/service/fraud/tracer"
	dErrors "turnstile/pkg/domain-errors"
)

// snapshot is the immutable ledger view the signals evaluate against. Both
// reads complete before evaluation starts, so every signal sees the same
// state regardless of concurrent traffic.
type snapshot struct {
	// attempts is the identity's recent ledger, newest first.
	attempts []*models.PaymentAttempt

	// methodIdentities is how many distinct identities share the attempt's
	// payment instrument inside the abuse window, including this one.
	methodIdentities int64
}

// gatherSnapshot reads the signal inputs concurrently. Each goroutine writes
// to its own field, so no locking is needed; results are assembled after the
// group completes.
func (s *Service) gatherSnapshot(ctx context.Context, req Request, identityKey string) (*snapshot, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSnapshot)

	gatherCtx, cancel := context.WithTimeout(ctx, s.cfg.Fraud.LedgerTimeout)
	defer cancel()

	g, gatherCtx := errgroup.WithContext(gatherCtx)
	snap := &snapshot{}

	g.Go(func() error {
		attempts, err := s.ledger.Recent(gatherCtx, identityKey, s.cfg.Fraud.LedgerSize)
		if err != nil {
			return err
		}
		snap.attempts = attempts
		return nil
	})

	if req.Method.Fingerprint != "" {
		g.Go(func() error {
			count, err := s.ledger.BindMethod(gatherCtx, req.Method.Fingerprint, identityKey, s.cfg.Fraud.MethodAbuseWindow)
			if err != nil {
				return err
			}
			snap.methodIdentities = count
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		wrapped := dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "gather ledger snapshot")
		span.End(wrapped)
		return nil, wrapped
	}

	span.End(nil)
	return snap, nil
}
