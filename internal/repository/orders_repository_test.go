package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextEmailRetryAt_Backoff(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, now.Add(5*time.Minute), NextEmailRetryAt(0, now))
	assert.Equal(t, now.Add(10*time.Minute), NextEmailRetryAt(1, now))
	assert.Equal(t, now.Add(20*time.Minute), NextEmailRetryAt(2, now))
	assert.Equal(t, now.Add(40*time.Minute), NextEmailRetryAt(3, now))
}

func TestNextEmailRetryAt_CappedAtMax(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for _, retries := range []int{7, 10, 100} {
		assert.Equal(t, now.Add(EmailRetryMaxDelay), NextEmailRetryAt(retries, now))
	}
}
