// internal/fees/fee_calculator.go
package fees

// The fee calculator is the only place in the service where money is split.
// It is a pure function: the orchestrator feeds it the purchase amount and
// tip, it returns how much we charge the customer and how much of that is
// routed to the creator's connected account.
//
// Everything is integer cents. Percentages are computed with integer
// arithmetic on purpose: float math gets ceil(1000 * 0.029) wrong
// (29.000000000000004 ceils to 30) and we would overcharge the platform
// cost by a cent on round amounts.

// Split is the outcome of dividing a purchase between platform and creator.
type Split struct {
	// FullAmount is what the customer's card is charged: amount + tip.
	FullAmount int64
	// CreatorTransfer is the slice of FullAmount routed to the creator's
	// payout account: the tip net of processing cost in full, plus 75% of
	// the base amount net of processing cost. The remaining 25% and all
	// processing cost is the platform margin.
	CreatorTransfer int64
}

// Processor fee schedule approximation: 2.9% + 30c on the base amount,
// 2.9% (no fixed part) on the tip.
const (
	processingRateNumerator   = 29
	processingRateDenominator = 1000
	processingFixedCents      = 30
)

// ComputeSplit calculates the charge total and the creator's cut.
// amount and tip are minor currency units and must be >= 0; negative input
// is a caller contract violation and is rejected before this point.
func ComputeSplit(amount, tip int64) Split {
	costOnAmount := ceilRate(amount) + processingFixedCents
	costOnTip := ceilRate(tip)

	netAmount := amount - costOnAmount
	netTip := tip - costOnTip

	// Creator keeps the whole net tip plus 75% of the net base amount,
	// rounded half up.
	creatorTransfer := netTip + roundThreeQuarters(netAmount)

	return Split{
		FullAmount:      amount + tip,
		CreatorTransfer: creatorTransfer,
	}
}

// ceilRate returns ceil(cents * 2.9%) using integer division.
func ceilRate(cents int64) int64 {
	return (cents*processingRateNumerator + processingRateDenominator - 1) / processingRateDenominator
}

// roundThreeQuarters returns round(cents * 0.75), half rounding up.
func roundThreeQuarters(cents int64) int64 {
	return (cents*3 + 2) / 4
}
