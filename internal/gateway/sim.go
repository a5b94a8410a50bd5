package gateway

import (
	"context"
	"sync"

	"main/internal/bus"
	"main/internal/schema"
)

// SimRequest is one recorded request against the simulated gateway.
type SimRequest struct {
	Op         string
	ReqID      int64
	OrderID    int64
	Contract   schema.Contract
	Order      schema.OrderLeg
	Group      string
	Tags       string
	Duration   string
	BarSize    string
	WhatToShow string
	UseRTH     bool
	APIOnly    bool
}

// Sim is an in-memory transport. It records every request and lets a
// script answer by emitting notifications on the bus, synchronously on
// the caller's goroutine, which keeps tests deterministic.
type Sim struct {
	bus *bus.Bus

	mu       sync.Mutex
	requests []SimRequest
	script   func(SimRequest)
}

// NewSim creates a simulated transport publishing on b.
func NewSim(b *bus.Bus) *Sim {
	return &Sim{bus: b}
}

// Script installs the responder invoked for every recorded request.
func (s *Sim) Script(fn func(SimRequest)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = fn
}

// Emit publishes a notification as if the gateway pushed it.
func (s *Sim) Emit(n schema.Notification) {
	s.bus.Publish(n)
}

// Requests returns a copy of all recorded requests in order.
func (s *Sim) Requests() []SimRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SimRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// Ops returns the recorded request ops in order.
func (s *Sim) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.requests))
	for _, r := range s.requests {
		out = append(out, r.Op)
	}
	return out
}

func (s *Sim) record(r SimRequest) error {
	s.mu.Lock()
	s.requests = append(s.requests, r)
	script := s.script
	s.mu.Unlock()
	if script != nil {
		script(r)
	}
	return nil
}

// Connect is a no-op for the simulator.
func (s *Sim) Connect(ctx context.Context) error {
	return s.record(SimRequest{Op: "connect"})
}

// Close is a no-op for the simulator.
func (s *Sim) Close() error {
	return nil
}

func (s *Sim) RequestIDs() error {
	return s.record(SimRequest{Op: "reqIds"})
}

func (s *Sim) RequestAccountSummary(reqID int64, group, tags string) error {
	return s.record(SimRequest{Op: "reqAccountSummary", ReqID: reqID, Group: group, Tags: tags})
}

func (s *Sim) CancelAccountSummary(reqID int64) error {
	return s.record(SimRequest{Op: "cancelAccountSummary", ReqID: reqID})
}

func (s *Sim) RequestContractDetails(reqID int64, contract schema.Contract) error {
	return s.record(SimRequest{Op: "reqContractDetails", ReqID: reqID, Contract: contract})
}

func (s *Sim) RequestHistoricalData(reqID int64, contract schema.Contract, duration, barSize, whatToShow string, useRTH bool) error {
	return s.record(SimRequest{
		Op:         "reqHistoricalData",
		ReqID:      reqID,
		Contract:   contract,
		Duration:   duration,
		BarSize:    barSize,
		WhatToShow: whatToShow,
		UseRTH:     useRTH,
	})
}

func (s *Sim) RequestCurrentTime() error {
	return s.record(SimRequest{Op: "reqCurrentTime"})
}

func (s *Sim) PlaceOrder(orderID int64, contract schema.Contract, order schema.OrderLeg) error {
	return s.record(SimRequest{Op: "placeOrder", OrderID: orderID, Contract: contract, Order: order})
}

func (s *Sim) CancelOrder(orderID int64) error {
	return s.record(SimRequest{Op: "cancelOrder", OrderID: orderID})
}

func (s *Sim) RequestPositions() error {
	return s.record(SimRequest{Op: "reqPositions"})
}

func (s *Sim) CancelPositions() error {
	return s.record(SimRequest{Op: "cancelPositions"})
}

func (s *Sim) RequestOpenOrders() error {
	return s.record(SimRequest{Op: "reqAllOpenOrders"})
}

func (s *Sim) RequestCompletedOrders(apiOnly bool) error {
	return s.record(SimRequest{Op: "reqCompletedOrders", APIOnly: apiOnly})
}
