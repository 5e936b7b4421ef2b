// Package fees computes platform, organizer and seller splits from
// basis-point rates on integer minor-unit amounts.
package fees

// Cut returns floor(amount * bps / 10000). Rounding always favors the party
// receiving the remainder, so splits built from Cut plus a subtraction sum
// exactly to the original amount.
func Cut(amount, bps int64) int64 {
	if amount <= 0 || bps <= 0 {
		return 0
	}
	return amount * bps / 10000
}

// SplitPrimary splits a purchase amount into the platform cut and the
// organizer proceeds. platformCut + organizerProceeds == amount.
func SplitPrimary(amount, primaryFeeBps int64) (platformCut, organizerProceeds int64) {
	platformCut = Cut(amount, primaryFeeBps)
	return platformCut, amount - platformCut
}

// SplitResale splits a resale price three ways. The seller receives the
// remainder, so platformCut + organizerRoyalty + sellerProceeds == price.
func SplitResale(price, resaleFeeBps, royaltyFeeBps int64) (platformCut, organizerRoyalty, sellerProceeds int64) {
	platformCut = Cut(price, resaleFeeBps)
	organizerRoyalty = Cut(price, royaltyFeeBps)
	return platformCut, organizerRoyalty, price - platformCut - organizerRoyalty
}
