package schema

import (
	"time"

	"github.com/yanun0323/errors"
)

// NotificationKind identifies the type of a gateway push notification.
type NotificationKind uint16

const (
	NotificationUnknown NotificationKind = iota
	NotificationNextOrderID
	NotificationManagedAccounts
	NotificationAccountSummary
	NotificationAccountSummaryEnd
	NotificationContractDetails
	NotificationContractDetailsEnd
	NotificationHistoricalBar
	NotificationHistoricalBarEnd
	NotificationOrderStatus
	NotificationOpenOrder
	NotificationOpenOrderEnd
	NotificationExecDetails
	NotificationExecDetailsEnd
	NotificationPosition
	NotificationPositionEnd
	NotificationCompletedOrder
	NotificationCompletedOrdersEnd
	NotificationCurrentTime
	NotificationError
)

// String returns a short name for logging.
func (k NotificationKind) String() string {
	switch k {
	case NotificationNextOrderID:
		return "nextOrderId"
	case NotificationManagedAccounts:
		return "managedAccounts"
	case NotificationAccountSummary:
		return "accountSummary"
	case NotificationAccountSummaryEnd:
		return "accountSummaryEnd"
	case NotificationContractDetails:
		return "contractDetails"
	case NotificationContractDetailsEnd:
		return "contractDetailsEnd"
	case NotificationHistoricalBar:
		return "historicalBar"
	case NotificationHistoricalBarEnd:
		return "historicalBarEnd"
	case NotificationOrderStatus:
		return "orderStatus"
	case NotificationOpenOrder:
		return "openOrder"
	case NotificationOpenOrderEnd:
		return "openOrderEnd"
	case NotificationExecDetails:
		return "execDetails"
	case NotificationExecDetailsEnd:
		return "execDetailsEnd"
	case NotificationPosition:
		return "position"
	case NotificationPositionEnd:
		return "positionEnd"
	case NotificationCompletedOrder:
		return "completedOrder"
	case NotificationCompletedOrdersEnd:
		return "completedOrdersEnd"
	case NotificationCurrentTime:
		return "currentTime"
	case NotificationError:
		return "error"
	default:
		return "unknown"
	}
}

// Notification is the unit delivered on the notification bus. Only the
// fields relevant to Kind are populated.
type Notification struct {
	Kind  NotificationKind
	ReqID int64

	OrderID   int64
	Accounts  string
	Account   AccountValue
	Contract  ContractDetails
	Bar       Candle
	Status    OrderStatusRecord
	OpenOrder OpenOrderEntry
	Exec      ExecutionDetail
	Position  PositionEntry
	Completed CompletedOrder
	Time      int64
	Err       GatewayError
}

// AccountValue is a single account summary tag/value pair.
type AccountValue struct {
	Account  string
	Tag      string
	Value    string
	Currency string
}

// ContractDetails holds the resolved instrument description.
type ContractDetails struct {
	LocalSymbol string
	Multiplier  string
	ConID       int64
}

// ErrUnresolvedContract reports a contract details request that came
// back without a local symbol.
var ErrUnresolvedContract = errors.New("gateway did not resolve the contract")

// Resolve adopts the gateway-assigned local symbol into c. The
// resolution wins over the configured value so downstream symbol
// matching uses what the gateway will actually report back.
func (d ContractDetails) Resolve(c Contract) (Contract, error) {
	if d.LocalSymbol == "" {
		return Contract{}, errors.Wrapf(ErrUnresolvedContract, "symbol %s", c.Symbol)
	}
	c.LocalSymbol = d.LocalSymbol
	return c, nil
}

// Candle is one OHLCV bar in arrival order.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// OpenOrderEntry maps a working order to the instrument it belongs to.
type OpenOrderEntry struct {
	LocalSymbol string
	OrderID     int64
}

// ExecutionDetail reports a fill for a placed order.
type ExecutionDetail struct {
	OrderID     int64
	LocalSymbol string
	Shares      float64
	Price       float64
}

// PositionEntry is one open position reported by the gateway.
type PositionEntry struct {
	Account     string
	LocalSymbol string
	Quantity    float64
	AvgCost     float64
}

// CompletedOrder is one entry from the completed-orders sweep.
type CompletedOrder struct {
	LocalSymbol   string
	Status        string
	CompletedTime string
}

// GatewayError carries an error notification from the gateway.
type GatewayError struct {
	ReqID   int64
	Code    int
	Message string
}
