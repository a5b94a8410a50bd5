package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"

	"main/internal/bus"
	"main/internal/schema"
)

// TWS speaks the JSON envelope of the TWS-side bridge process over a
// websocket session and posts every inbound message to the bus as a
// typed notification.
type TWS struct {
	wss      *ws.WebSocket
	bus      *bus.Bus
	clientID int
	cancel   func()
}

// NewTWS creates a transport for the bridge at host:port.
func NewTWS(ctx context.Context, host string, port int, clientID int, b *bus.Bus) *TWS {
	return &TWS{
		wss:      ws.New(ctx, fmt.Sprintf("ws://%s:%d/ws", host, port)),
		bus:      b,
		clientID: clientID,
	}
}

type twsRequest struct {
	Op         string           `json:"op"`
	ReqID      int64            `json:"reqId,omitempty"`
	ClientID   int              `json:"clientId,omitempty"`
	OrderID    int64            `json:"orderId,omitempty"`
	Contract   *schema.Contract `json:"contract,omitempty"`
	Order      *schema.OrderLeg `json:"order,omitempty"`
	Duration   string           `json:"duration,omitempty"`
	BarSize    string           `json:"barSize,omitempty"`
	WhatToShow string           `json:"whatToShow,omitempty"`
	UseRTH     bool             `json:"useRth,omitempty"`
	Group      string           `json:"group,omitempty"`
	Tags       string           `json:"tags,omitempty"`
	APIOnly    bool             `json:"apiOnly,omitempty"`
}

type twsMessage struct {
	Type     string `json:"type"`
	ReqID    int64  `json:"reqId"`
	OrderID  int64  `json:"orderId"`
	Accounts string `json:"accounts"`
	Time     int64  `json:"time"`
	Code     int    `json:"code"`
	Message  string `json:"message"`

	Account *struct {
		Account  string `json:"account"`
		Tag      string `json:"tag"`
		Value    string `json:"value"`
		Currency string `json:"currency"`
	} `json:"account"`

	Contract *struct {
		LocalSymbol string `json:"localSymbol"`
		Multiplier  string `json:"multiplier"`
		ConID       int64  `json:"conId"`
	} `json:"contract"`

	Bar *struct {
		Time   int64   `json:"time"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume float64 `json:"volume"`
	} `json:"bar"`

	Status *struct {
		OrderID      int64   `json:"orderId"`
		Status       string  `json:"status"`
		Filled       float64 `json:"filled"`
		Remaining    float64 `json:"remaining"`
		AvgFillPrice float64 `json:"avgFillPrice"`
		PermID       int64   `json:"permId"`
	} `json:"status"`

	OpenOrder *struct {
		LocalSymbol string `json:"localSymbol"`
		OrderID     int64  `json:"orderId"`
	} `json:"openOrder"`

	Exec *struct {
		OrderID     int64   `json:"orderId"`
		LocalSymbol string  `json:"localSymbol"`
		Shares      float64 `json:"shares"`
		Price       float64 `json:"price"`
	} `json:"exec"`

	Position *struct {
		Account     string  `json:"account"`
		LocalSymbol string  `json:"localSymbol"`
		Position    float64 `json:"position"`
		AvgCost     float64 `json:"avgCost"`
	} `json:"position"`

	Completed *struct {
		LocalSymbol   string `json:"localSymbol"`
		Status        string `json:"status"`
		CompletedTime string `json:"completedTime"`
	} `json:"completed"`
}

// Connect starts the websocket, performs the connect handshake, and
// launches the receive pump.
func (t *TWS) Connect(ctx context.Context) error {
	if err := t.wss.Start(ctx); err != nil {
		return errors.Wrap(err, "start wss")
	}

	if err := t.wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, client *ws.WebSocket) error {
			if err := client.WriteJSON(twsRequest{Op: "connect", ClientID: t.clientID}); err != nil {
				return errors.Wrap(err, "write connect payload")
			}
			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			resp, ok := ws.ReadMessage[twsMessage](m)
			if !ok || resp.Type != "connectAck" {
				return false, nil
			}
			return true, nil
		},
	}, true); err != nil {
		return errors.Wrap(err, "connect handshake")
	}

	ch, cancel := t.wss.Subscribe()
	t.cancel = cancel
	go t.pump(ctx, ch)
	return nil
}

// Close tears down the websocket session.
func (t *TWS) Close() error {
	if t.cancel != nil {
		t.cancel()
	}
	t.wss.Close()
	return nil
}

func (t *TWS) pump(ctx context.Context, ch <-chan ws.Message) {
	for {
		select {
		case <-sys.Shutdown():
			return
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			msg, ok := ws.ReadMessage[twsMessage](m)
			if !ok {
				logs.Warnf("unreadable gateway message: %s", m)
				continue
			}
			n, ok := decode(msg)
			if !ok {
				logs.Warnf("unknown gateway message type: %s", msg.Type)
				continue
			}
			t.bus.Publish(n)
		}
	}
}

func decode(msg twsMessage) (schema.Notification, bool) {
	n := schema.Notification{ReqID: msg.ReqID}
	switch msg.Type {
	case "nextOrderId":
		n.Kind = schema.NotificationNextOrderID
		n.OrderID = msg.OrderID
	case "managedAccounts":
		n.Kind = schema.NotificationManagedAccounts
		n.Accounts = msg.Accounts
	case "accountSummary":
		n.Kind = schema.NotificationAccountSummary
		if msg.Account != nil {
			n.Account = schema.AccountValue{
				Account:  msg.Account.Account,
				Tag:      msg.Account.Tag,
				Value:    msg.Account.Value,
				Currency: msg.Account.Currency,
			}
		}
	case "accountSummaryEnd":
		n.Kind = schema.NotificationAccountSummaryEnd
	case "contractDetails":
		n.Kind = schema.NotificationContractDetails
		if msg.Contract != nil {
			n.Contract = schema.ContractDetails{
				LocalSymbol: msg.Contract.LocalSymbol,
				Multiplier:  msg.Contract.Multiplier,
				ConID:       msg.Contract.ConID,
			}
		}
	case "contractDetailsEnd":
		n.Kind = schema.NotificationContractDetailsEnd
	case "historicalBar":
		n.Kind = schema.NotificationHistoricalBar
		if msg.Bar != nil {
			n.Bar = schema.Candle{
				Time:   time.Unix(msg.Bar.Time, 0).UTC(),
				Open:   msg.Bar.Open,
				High:   msg.Bar.High,
				Low:    msg.Bar.Low,
				Close:  msg.Bar.Close,
				Volume: msg.Bar.Volume,
			}
		}
	case "historicalBarEnd":
		n.Kind = schema.NotificationHistoricalBarEnd
	case "orderStatus":
		n.Kind = schema.NotificationOrderStatus
		if msg.Status != nil {
			n.Status = schema.OrderStatusRecord{
				OrderID:      msg.Status.OrderID,
				Status:       schema.OrderStatus(msg.Status.Status),
				FilledQty:    msg.Status.Filled,
				RemainingQty: msg.Status.Remaining,
				AvgFillPrice: msg.Status.AvgFillPrice,
				PermID:       msg.Status.PermID,
			}
		}
	case "openOrder":
		n.Kind = schema.NotificationOpenOrder
		if msg.OpenOrder != nil {
			n.OpenOrder = schema.OpenOrderEntry{
				LocalSymbol: msg.OpenOrder.LocalSymbol,
				OrderID:     msg.OpenOrder.OrderID,
			}
		}
	case "openOrderEnd":
		n.Kind = schema.NotificationOpenOrderEnd
	case "execDetails":
		n.Kind = schema.NotificationExecDetails
		if msg.Exec != nil {
			n.Exec = schema.ExecutionDetail{
				OrderID:     msg.Exec.OrderID,
				LocalSymbol: msg.Exec.LocalSymbol,
				Shares:      msg.Exec.Shares,
				Price:       msg.Exec.Price,
			}
		}
	case "execDetailsEnd":
		n.Kind = schema.NotificationExecDetailsEnd
	case "position":
		n.Kind = schema.NotificationPosition
		if msg.Position != nil {
			n.Position = schema.PositionEntry{
				Account:     msg.Position.Account,
				LocalSymbol: msg.Position.LocalSymbol,
				Quantity:    msg.Position.Position,
				AvgCost:     msg.Position.AvgCost,
			}
		}
	case "positionEnd":
		n.Kind = schema.NotificationPositionEnd
	case "completedOrder":
		n.Kind = schema.NotificationCompletedOrder
		if msg.Completed != nil {
			n.Completed = schema.CompletedOrder{
				LocalSymbol:   msg.Completed.LocalSymbol,
				Status:        msg.Completed.Status,
				CompletedTime: msg.Completed.CompletedTime,
			}
		}
	case "completedOrdersEnd":
		n.Kind = schema.NotificationCompletedOrdersEnd
	case "currentTime":
		n.Kind = schema.NotificationCurrentTime
		n.Time = msg.Time
	case "error":
		n.Kind = schema.NotificationError
		n.Err = schema.GatewayError{ReqID: msg.ReqID, Code: msg.Code, Message: msg.Message}
	default:
		return schema.Notification{}, false
	}
	return n, true
}

func (t *TWS) send(req twsRequest) error {
	if err := t.wss.WriteJSON(req); err != nil {
		return errors.Wrap(err, "write "+req.Op)
	}
	return nil
}

// RequestIDs asks for the next valid order id.
func (t *TWS) RequestIDs() error {
	return t.send(twsRequest{Op: "reqIds"})
}

// RequestAccountSummary subscribes account summary tags.
func (t *TWS) RequestAccountSummary(reqID int64, group, tags string) error {
	return t.send(twsRequest{Op: "reqAccountSummary", ReqID: reqID, Group: group, Tags: tags})
}

// CancelAccountSummary ends the account summary subscription.
func (t *TWS) CancelAccountSummary(reqID int64) error {
	return t.send(twsRequest{Op: "cancelAccountSummary", ReqID: reqID})
}

// RequestContractDetails resolves a contract.
func (t *TWS) RequestContractDetails(reqID int64, contract schema.Contract) error {
	return t.send(twsRequest{Op: "reqContractDetails", ReqID: reqID, Contract: &contract})
}

// RequestHistoricalData fetches bars.
func (t *TWS) RequestHistoricalData(reqID int64, contract schema.Contract, duration, barSize, whatToShow string, useRTH bool) error {
	return t.send(twsRequest{
		Op:         "reqHistoricalData",
		ReqID:      reqID,
		Contract:   &contract,
		Duration:   duration,
		BarSize:    barSize,
		WhatToShow: whatToShow,
		UseRTH:     useRTH,
	})
}

// RequestCurrentTime asks for the gateway clock.
func (t *TWS) RequestCurrentTime() error {
	return t.send(twsRequest{Op: "reqCurrentTime"})
}

// PlaceOrder submits one order leg.
func (t *TWS) PlaceOrder(orderID int64, contract schema.Contract, order schema.OrderLeg) error {
	return t.send(twsRequest{Op: "placeOrder", OrderID: orderID, Contract: &contract, Order: &order})
}

// CancelOrder cancels a working order.
func (t *TWS) CancelOrder(orderID int64) error {
	return t.send(twsRequest{Op: "cancelOrder", OrderID: orderID})
}

// RequestPositions subscribes the position feed.
func (t *TWS) RequestPositions() error {
	return t.send(twsRequest{Op: "reqPositions"})
}

// CancelPositions ends the position feed.
func (t *TWS) CancelPositions() error {
	return t.send(twsRequest{Op: "cancelPositions"})
}

// RequestOpenOrders asks for all working orders.
func (t *TWS) RequestOpenOrders() error {
	return t.send(twsRequest{Op: "reqAllOpenOrders"})
}

// RequestCompletedOrders asks for orders completed this session.
func (t *TWS) RequestCompletedOrders(apiOnly bool) error {
	return t.send(twsRequest{Op: "reqCompletedOrders", APIOnly: apiOnly})
}
