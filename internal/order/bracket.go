// Package order places single and multi-leg orders through the bridge
// and interprets the order-status stream into a simple outcome.
package order

import (
	"github.com/google/uuid"
	"github.com/yanun0323/errors"

	"main/internal/schema"
)

var (
	ErrNoParent        = errors.New("bracket has no parent leg")
	ErrLegOrder        = errors.New("bracket leg ids must increase from the parent id")
	ErrTransmitNotLast = errors.New("only the final bracket leg may transmit")
)

// Bracket is an ordered sequence of legs released atomically by the
// final transmitting leg.
type Bracket struct {
	Legs []schema.OrderLeg
}

// NewBracket builds a market entry with an attached stop-loss child.
// Ids ascend from parentID; only the stop leg transmits, which releases
// the pair to the gateway as one unit.
func NewBracket(parentID int64, action schema.Action, quantity int64, stopPrice float64) Bracket {
	group := uuid.NewString()
	parent := schema.OrderLeg{
		OrderID:  parentID,
		Action:   action,
		Kind:     schema.OrderKindMarket,
		Quantity: quantity,
		Transmit: false,
		OCAGroup: group,
	}
	stop := schema.OrderLeg{
		OrderID:   parentID + 1,
		Action:    action.Opposite(),
		Kind:      schema.OrderKindStop,
		Quantity:  quantity,
		StopPrice: stopPrice,
		ParentID:  parentID,
		Transmit:  true,
		OCAGroup:  group,
	}
	return Bracket{Legs: []schema.OrderLeg{parent, stop}}
}

// ParentID returns the id of the parent leg.
func (b Bracket) ParentID() int64 {
	for _, leg := range b.Legs {
		if leg.ParentID == 0 {
			return leg.OrderID
		}
	}
	return 0
}

// Validate checks the structural invariants of a bracket.
func (b Bracket) Validate() error {
	if len(b.Legs) < 2 {
		return errors.New("bracket needs at least two legs")
	}
	parents := 0
	for _, leg := range b.Legs {
		if leg.ParentID == 0 {
			parents++
		}
	}
	if parents != 1 {
		return ErrNoParent
	}
	prev := b.Legs[0].OrderID - 1
	for i, leg := range b.Legs {
		if leg.OrderID <= prev {
			return ErrLegOrder
		}
		prev = leg.OrderID
		last := i == len(b.Legs)-1
		if leg.Transmit != last {
			return ErrTransmitNotLast
		}
	}
	return nil
}
