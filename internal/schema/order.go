package schema

// Action is the order direction.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Opposite returns the closing side for an action.
func (a Action) Opposite() Action {
	if a == ActionBuy {
		return ActionSell
	}
	return ActionBuy
}

// OrderKind is the order type sent to the gateway.
type OrderKind string

const (
	OrderKindMarket OrderKind = "MKT"
	OrderKindLimit  OrderKind = "LMT"
	OrderKindStop   OrderKind = "STP"
)

// OrderStatus is the gateway-reported status of a working order.
type OrderStatus string

const (
	OrderStatusPendingSubmit OrderStatus = "PendingSubmit"
	OrderStatusPendingCancel OrderStatus = "PendingCancel"
	OrderStatusSubmitted     OrderStatus = "Submitted"
	OrderStatusFilled        OrderStatus = "Filled"
	OrderStatusCancelled     OrderStatus = "Cancelled"
	OrderStatusRejected      OrderStatus = "Rejected"
	OrderStatusInactive      OrderStatus = "Inactive"
)

// Working reports whether the status means the gateway accepted the order.
func (s OrderStatus) Working() bool {
	return s == OrderStatusSubmitted || s == OrderStatusFilled
}

// OrderStatusRecord is one orderStatus notification from the gateway.
// Several records may arrive for the same order id.
type OrderStatusRecord struct {
	OrderID      int64
	Status       OrderStatus
	FilledQty    float64
	RemainingQty float64
	AvgFillPrice float64
	PermID       int64
}

// Contract identifies the traded instrument on the gateway.
type Contract struct {
	Symbol          string `json:"symbol,omitempty"`
	SecType         string `json:"secType,omitempty"`
	Exchange        string `json:"exchange,omitempty"`
	PrimaryExchange string `json:"primaryExchange,omitempty"`
	Currency        string `json:"currency,omitempty"`
	LocalSymbol     string `json:"localSymbol,omitempty"`
	LastTradeDate   string `json:"lastTradeDateOrContractMonth,omitempty"`
	Multiplier      string `json:"multiplier,omitempty"`
	IncludeExpired  bool   `json:"includeExpired,omitempty"`
}

// OrderLeg is a single order of a bracket as submitted to the gateway.
// Transmit=false holds the leg on the gateway side until the final
// transmitting leg releases the whole bracket atomically.
type OrderLeg struct {
	OrderID    int64     `json:"orderId"`
	Action     Action    `json:"action"`
	Kind       OrderKind `json:"orderType"`
	Quantity   int64     `json:"totalQuantity"`
	LimitPrice float64   `json:"lmtPrice,omitempty"`
	StopPrice  float64   `json:"auxPrice,omitempty"`
	ParentID   int64     `json:"parentId,omitempty"`
	Transmit   bool      `json:"transmit"`
	OCAGroup   string    `json:"ocaGroup,omitempty"`
}
