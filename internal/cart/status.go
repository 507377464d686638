package cart

import (
	"github.com/angelmondragon/groupcart-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// NextStatus evaluates the shared cart state machine after a participant
// change. keep is false when the cart has no participants left and must be
// deleted. Expired carts never change status.
func NextStatus(current, target, participantCount int, status enums.SharedCartStatus) (next enums.SharedCartStatus, keep bool) {
	if participantCount <= 0 {
		return status, false
	}
	if status == enums.SharedCartStatusExpired {
		return status, true
	}
	if current >= target {
		return enums.SharedCartStatusCompleted, true
	}
	return enums.SharedCartStatusActive, true
}

var hundred = decimal.NewFromInt(100)

// Progress returns current/target as a percentage rounded half away from
// zero to two places. A non-positive target yields zero.
func Progress(current, target int) decimal.Decimal {
	if target <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(current)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(target))).
		Round(2)
}
