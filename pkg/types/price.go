package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Price holds the listing price pair. Offer is optional and, when present,
// must not exceed Regular.
type Price struct {
	Regular decimal.Decimal  `json:"regular"`
	Offer   *decimal.Decimal `json:"offer,omitempty"`
}

// Validate enforces the non-negative and offer<=regular invariants.
func (p Price) Validate() error {
	if p.Regular.IsNegative() {
		return fmt.Errorf("regular price cannot be negative")
	}
	if p.Offer != nil {
		if p.Offer.IsNegative() {
			return fmt.Errorf("offer price cannot be negative")
		}
		if p.Offer.GreaterThan(p.Regular) {
			return fmt.Errorf("offer price cannot be greater than regular price")
		}
	}
	return nil
}
