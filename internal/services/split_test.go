package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeSplit(t *testing.T) {
	t.Run("80/20 on 29.99", func(t *testing.T) {
		breakdown := computeSplit(2999, 8000)

		assert.Equal(t, int64(2999), breakdown.Gross)
		assert.Equal(t, int64(2399), breakdown.CounterpartyAmount)
		assert.Equal(t, int64(600), breakdown.PlatformAmount)
		assert.Equal(t, 8000, breakdown.SplitBps)
	})

	t.Run("rounds counterparty share half up", func(t *testing.T) {
		// 70% of 15 is 10.5, rounds to 11
		breakdown := computeSplit(15, 7000)

		assert.Equal(t, int64(11), breakdown.CounterpartyAmount)
		assert.Equal(t, int64(4), breakdown.PlatformAmount)
	})

	t.Run("zero bps sends everything to platform", func(t *testing.T) {
		breakdown := computeSplit(1000, 0)

		assert.Equal(t, int64(0), breakdown.CounterpartyAmount)
		assert.Equal(t, int64(1000), breakdown.PlatformAmount)
	})

	t.Run("full bps sends everything to counterparty", func(t *testing.T) {
		breakdown := computeSplit(1000, 10000)

		assert.Equal(t, int64(1000), breakdown.CounterpartyAmount)
		assert.Equal(t, int64(0), breakdown.PlatformAmount)
	})

	t.Run("parts always sum to gross", func(t *testing.T) {
		amounts := []int64{1, 2, 3, 7, 15, 99, 100, 2999, 12345, 1_000_000, 9_999_999_999}
		for _, amount := range amounts {
			for bps := 0; bps <= 10000; bps += 317 {
				breakdown := computeSplit(amount, bps)
				assert.Equal(t, amount, breakdown.CounterpartyAmount+breakdown.PlatformAmount,
					"amount=%d bps=%d", amount, bps)
				assert.GreaterOrEqual(t, breakdown.CounterpartyAmount, int64(0))
				assert.GreaterOrEqual(t, breakdown.PlatformAmount, int64(0))
			}
		}
	})
}

func TestTierSplitBps(t *testing.T) {
	t.Run("base tier below first threshold", func(t *testing.T) {
		assert.Equal(t, 7000, tierSplitBps(0))
		assert.Equal(t, 7000, tierSplitBps(99_999))
	})

	t.Run("mid tier at and above 100k", func(t *testing.T) {
		assert.Equal(t, 7500, tierSplitBps(100_000))
		assert.Equal(t, 7500, tierSplitBps(999_999))
	})

	t.Run("top tier at and above 1m", func(t *testing.T) {
		assert.Equal(t, 8000, tierSplitBps(1_000_000))
		assert.Equal(t, 8000, tierSplitBps(50_000_000))
	})
}
