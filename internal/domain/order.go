package domain

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// OrderKind discriminates the two supported order variants.
type OrderKind int

const (
	// OrderKindMarket executes immediately against the reference price.
	OrderKindMarket OrderKind = iota
	// OrderKindLimit rests at a fixed price until the bar range crosses it.
	OrderKindLimit
)

// String returns the string representation.
func (k OrderKind) String() string {
	switch k {
	case OrderKindMarket:
		return "market"
	case OrderKindLimit:
		return "limit"
	default:
		return fmt.Sprintf("OrderKind(%d)", int(k))
	}
}

// OrderRequest is a single pending order produced by a strategy.
//
// Size is signed: positive buys the base asset, negative sells it. A zero
// size is a legal no-op request that the simulation skips without emitting
// an outcome. The value is immutable; Scale returns a modified copy.
type OrderRequest struct {
	Kind OrderKind
	Size decimal.Decimal
	// Price is the resting price. Limit orders only.
	Price decimal.Decimal
	// PostOnly cancels the order instead of letting it fill as taker.
	// Limit orders only.
	PostOnly bool
}

// NewMarketOrder creates a market order of the given signed size.
func NewMarketOrder(size decimal.Decimal) OrderRequest {
	return OrderRequest{Kind: OrderKindMarket, Size: size}
}

// NewLimitOrder creates a limit order of the given signed size resting at price.
func NewLimitOrder(size, price decimal.Decimal, postOnly bool) OrderRequest {
	return OrderRequest{Kind: OrderKindLimit, Size: size, Price: price, PostOnly: postOnly}
}

// Buy reports whether the order buys the base asset.
func (o OrderRequest) Buy() bool {
	return o.Size.IsPositive()
}

// Scale returns a copy with the size multiplied by factor.
// Negative factors are rejected.
func (o OrderRequest) Scale(factor decimal.Decimal) (OrderRequest, error) {
	if factor.IsNegative() {
		return OrderRequest{}, errors.Errorf("cannot scale order by negative factor %s", factor)
	}
	o.Size = o.Size.Mul(factor)
	return o, nil
}

// String returns the string representation.
func (o OrderRequest) String() string {
	if o.Kind == OrderKindLimit {
		return fmt.Sprintf("%s size=%s price=%s post_only=%t", o.Kind, o.Size, o.Price, o.PostOnly)
	}
	return fmt.Sprintf("%s size=%s", o.Kind, o.Size)
}
