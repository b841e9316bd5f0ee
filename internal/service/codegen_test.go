package service

import (
	"testing"
	"time"

	"go-recycling-ledger/pkg/config"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyFromConfig(t *testing.T) {
	p := RetryPolicyFromConfig(config.LedgerConfig{
		CodeMaxAttempts: 5,
		CodeMinBackoff:  10 * time.Millisecond,
		CodeMaxBackoff:  20 * time.Millisecond,
	})
	assert.Equal(t, 5, p.attempts())

	for i := 0; i < 50; i++ {
		d := p.Backoff()
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.LessOrEqual(t, d, 20*time.Millisecond)
	}

	assert.Equal(t, 1, RetryPolicy{}.attempts())
	assert.Equal(t, 7*time.Millisecond, RetryPolicy{MinBackoff: 7 * time.Millisecond, MaxBackoff: time.Millisecond}.Backoff())
}

func TestFormatCode(t *testing.T) {
	day := time.Date(2025, 9, 25, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "V-20250925-", CodePrefix("V", day))
	assert.Equal(t, "V-20250925-012", FormatCode(CodePrefix("V", day), 12))
}
