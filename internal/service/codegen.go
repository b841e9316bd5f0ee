package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go-recycling-ledger/internal/apperror"
	"go-recycling-ledger/internal/repository"
	"go-recycling-ledger/pkg/config"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RetryPolicy bounds how often a movement is re-attempted after its code
// collided with a concurrent insert, and how long to wait in between.
type RetryPolicy struct {
	MaxAttempts int
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
}

// RetryPolicyFromConfig reads the LEDGER_CODE_* settings.
func RetryPolicyFromConfig(cfg config.LedgerConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.CodeMaxAttempts,
		MinBackoff:  cfg.CodeMinBackoff,
		MaxBackoff:  cfg.CodeMaxBackoff,
	}
}

// Backoff returns a uniformly jittered delay in [MinBackoff, MaxBackoff].
func (p RetryPolicy) Backoff() time.Duration {
	if p.MaxBackoff <= p.MinBackoff {
		return p.MinBackoff
	}
	return p.MinBackoff + time.Duration(rand.Int63n(int64(p.MaxBackoff-p.MinBackoff)+1))
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// CodePrefix is the day part of a movement code, e.g. "V-20250925-".
func CodePrefix(prefix string, day time.Time) string {
	return fmt.Sprintf("%s-%s-", prefix, day.Format("20060102"))
}

// FormatCode appends the zero-padded sequence to a day prefix.
func FormatCode(dayPrefix string, seq int64) string {
	return fmt.Sprintf("%s%03d", dayPrefix, seq)
}

// nextCode derives the next code from the number of rows already carrying
// the day prefix, cancelled ones included.
func nextCode(ctx context.Context, count func(context.Context, string) (int64, error), dayPrefix string) (string, error) {
	n, err := count(ctx, dayPrefix)
	if err != nil {
		return "", err
	}
	return FormatCode(dayPrefix, n+1), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// withCodeRetry runs fn in its own transaction until it commits, fails with
// anything other than a collision on the code index, or the policy runs out.
// fn receives the day prefix computed for that attempt.
func (s *movementService) withCodeRetry(ctx context.Context, prefix string, code repository.Constraint, fn func(tx *gorm.DB, dayPrefix string) error) error {
	attempts := s.opts.Retry.attempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		dayPrefix := CodePrefix(prefix, s.now().In(s.opts.Location))

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(tx, dayPrefix)
		})
		if err == nil {
			return nil
		}
		if _, ok := apperror.As(err); ok {
			return err
		}
		if !repository.IsUniqueViolation(err, code) {
			return apperror.Wrap(err)
		}

		lastErr = err
		s.log.Warn("movement code collision",
			zap.String("prefix", dayPrefix),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts))

		if attempt < attempts {
			if err := s.opts.Sleep(ctx, s.opts.Retry.Backoff()); err != nil {
				return apperror.Wrap(err)
			}
		}
	}

	s.log.Error("movement code generation exhausted", zap.String("prefix", prefix), zap.Error(lastErr))
	return apperror.NewCodeGenerationExhausted(prefix, attempts, lastErr)
}
