// Package gateway defines the consumed transport interface of the
// market-data/order-execution gateway and its adapters. The wire
// protocol itself is a black box: the core only issues structured
// requests and receives typed notifications on the bus.
package gateway

import (
	"context"

	"main/internal/schema"
)

// Transport is the duplex channel to the gateway. Implementations post
// every received notification to the bus they were constructed with.
type Transport interface {
	// Connect establishes the session and starts the background
	// receive pump.
	Connect(ctx context.Context) error
	// Close tears the session down.
	Close() error

	// RequestIDs asks for the next valid order id (nextOrderId
	// notification).
	RequestIDs() error
	// RequestAccountSummary subscribes account summary tags
	// (accountSummary / accountSummaryEnd).
	RequestAccountSummary(reqID int64, group, tags string) error
	// CancelAccountSummary ends the account summary subscription.
	CancelAccountSummary(reqID int64) error
	// RequestContractDetails resolves a contract
	// (contractDetails / contractDetailsEnd).
	RequestContractDetails(reqID int64, contract schema.Contract) error
	// RequestHistoricalData fetches bars
	// (historicalBar / historicalBarEnd).
	RequestHistoricalData(reqID int64, contract schema.Contract, duration, barSize, whatToShow string, useRTH bool) error
	// RequestCurrentTime asks for the gateway clock (currentTime).
	RequestCurrentTime() error
	// PlaceOrder submits one order leg.
	PlaceOrder(orderID int64, contract schema.Contract, order schema.OrderLeg) error
	// CancelOrder cancels a working order.
	CancelOrder(orderID int64) error
	// RequestPositions subscribes the position feed
	// (position / positionEnd). The feed is push-based and must be
	// cancelled after each one-shot read.
	RequestPositions() error
	// CancelPositions ends the position feed.
	CancelPositions() error
	// RequestOpenOrders asks for all working orders
	// (openOrder / openOrderEnd).
	RequestOpenOrders() error
	// RequestCompletedOrders asks for orders completed this session
	// (completedOrder / completedOrdersEnd).
	RequestCompletedOrders(apiOnly bool) error
}
