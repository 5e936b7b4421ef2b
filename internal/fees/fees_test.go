package fees

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCut(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		bps      int64
		expected int64
	}{
		{"ten percent", 5000, 1000, 500},
		{"five percent", 2000, 500, 100},
		{"two percent", 2000, 200, 40},
		{"rounds down", 999, 1000, 99},
		{"zero amount", 0, 1000, 0},
		{"zero bps", 5000, 0, 0},
		{"full amount", 5000, 10000, 5000},
		{"one minor unit", 1, 9999, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Cut(tt.amount, tt.bps))
		})
	}
}

func TestSplitPrimary(t *testing.T) {
	// Category price 5000, primary fee 10%: organizer 4500, platform 500.
	platformCut, organizerProceeds := SplitPrimary(5000, 1000)
	assert.Equal(t, int64(500), platformCut)
	assert.Equal(t, int64(4500), organizerProceeds)
}

func TestSplitPrimaryExactSum(t *testing.T) {
	amounts := []int64{1, 3, 99, 100, 999, 5000, 123457, 999999999}
	rates := []int64{0, 1, 199, 250, 1000, 3333, 9999, 10000}

	for _, amount := range amounts {
		for _, bps := range rates {
			platformCut, organizerProceeds := SplitPrimary(amount, bps)
			assert.Equal(t, amount, platformCut+organizerProceeds,
				"amount=%d bps=%d", amount, bps)
			assert.GreaterOrEqual(t, platformCut, int64(0))
			assert.GreaterOrEqual(t, organizerProceeds, int64(0))
		}
	}
}

func TestSplitResale(t *testing.T) {
	// Resale price 2000, resale fee 5%, royalty 2%:
	// platform 100, royalty 40, seller 1860.
	platformCut, organizerRoyalty, sellerProceeds := SplitResale(2000, 500, 200)
	assert.Equal(t, int64(100), platformCut)
	assert.Equal(t, int64(40), organizerRoyalty)
	assert.Equal(t, int64(1860), sellerProceeds)
	assert.Equal(t, int64(2000), platformCut+organizerRoyalty+sellerProceeds)
}

func TestSplitResaleExactSum(t *testing.T) {
	prices := []int64{1, 7, 100, 999, 2000, 12345, 7777777}
	resaleRates := []int64{0, 1, 500, 999, 2500}
	royaltyRates := []int64{0, 1, 200, 333, 2500}

	for _, price := range prices {
		for _, resaleBps := range resaleRates {
			for _, royaltyBps := range royaltyRates {
				platformCut, organizerRoyalty, sellerProceeds := SplitResale(price, resaleBps, royaltyBps)
				assert.Equal(t, price, platformCut+organizerRoyalty+sellerProceeds,
					"price=%d resale=%d royalty=%d", price, resaleBps, royaltyBps)
				assert.GreaterOrEqual(t, sellerProceeds, int64(0))
			}
		}
	}
}
