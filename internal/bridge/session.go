package bridge

import (
	"os"
	"sync"

	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/obs"
	"main/internal/schema"
)

// FatalExitCode is the distinguished status used when a broker-fatal
// error notification terminates the process.
const FatalExitCode = 9

// SessionConfig wires the session dispatcher.
type SessionConfig struct {
	Queue   *bus.StatusQueue
	Metrics *obs.Metrics
	// Exit overrides process termination on broker-fatal errors.
	// Defaults to os.Exit.
	Exit func(code int)
}

// Session folds the notification stream into gates, the order-status
// queue, and the snapshot maps. It is the only bus subscriber that
// mutates trading state; everything it owns is read by the strategy
// side between ticks through accessor copies.
type Session struct {
	gates   *Gates
	queue   *bus.StatusQueue
	metrics *obs.Metrics
	exit    func(code int)

	mu          sync.Mutex
	bars        []schema.Candle
	positions   map[string]schema.PositionEntry
	openOrders  map[string]int64
	contract    schema.ContractDetails
	nextOrderID int64
	accounts    string
}

// NewSession creates a dispatcher ready to subscribe on the bus.
func NewSession(cfg SessionConfig) *Session {
	queue := cfg.Queue
	if queue == nil {
		queue = bus.NewStatusQueue(256)
	}
	exit := cfg.Exit
	if exit == nil {
		exit = os.Exit
	}
	return &Session{
		gates:      NewGates(),
		queue:      queue,
		metrics:    cfg.Metrics,
		exit:       exit,
		positions:  make(map[string]schema.PositionEntry),
		openOrders: make(map[string]int64),
	}
}

// Gates returns the wait registry.
func (s *Session) Gates() *Gates {
	return s.gates
}

// Queue returns the order-status queue.
func (s *Session) Queue() *bus.StatusQueue {
	return s.queue
}

// NextOrderID returns the most recent id assigned by the gateway.
func (s *Session) NextOrderID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextOrderID
}

// Contract returns the resolved contract details.
func (s *Session) Contract() schema.ContractDetails {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contract
}

// Accounts returns the managed accounts list reported at connect.
func (s *Session) Accounts() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts
}

// Handle routes one notification. It runs on the transport goroutine
// and never blocks on strategy state.
func (s *Session) Handle(n schema.Notification) {
	s.metrics.IncNotification(n.Kind.String())

	switch n.Kind {
	case schema.NotificationNextOrderID:
		s.mu.Lock()
		s.nextOrderID = n.OrderID
		s.mu.Unlock()
		s.gates.NextOrderID.Set(n.OrderID)

	case schema.NotificationManagedAccounts:
		s.mu.Lock()
		s.accounts = n.Accounts
		s.mu.Unlock()

	case schema.NotificationAccountSummary:
		logs.Infof("account %s %s=%s %s", n.Account.Account, n.Account.Tag, n.Account.Value, n.Account.Currency)

	case schema.NotificationAccountSummaryEnd:
		s.gates.AccountSummaryEnd.Set(nil)

	case schema.NotificationContractDetails:
		s.mu.Lock()
		s.contract = n.Contract
		s.mu.Unlock()

	case schema.NotificationContractDetailsEnd:
		s.gates.ContractDetailsEnd.Set(s.Contract())

	case schema.NotificationHistoricalBar:
		s.mu.Lock()
		s.bars = append(s.bars, n.Bar)
		s.mu.Unlock()

	case schema.NotificationHistoricalBarEnd:
		s.mu.Lock()
		bars := s.bars
		s.bars = nil
		s.mu.Unlock()
		s.gates.HistoricalDataEnd.Set(bars)

	case schema.NotificationOrderStatus:
		if err := s.queue.TryPublish(n.Status); err != nil {
			s.metrics.IncDroppedStatus()
			logs.Warnf("order status dropped: order=%d status=%s err=%v", n.Status.OrderID, n.Status.Status, err)
		}

	case schema.NotificationExecDetails:
		logs.Infof("execution: order=%d symbol=%s shares=%.0f price=%.2f",
			n.Exec.OrderID, n.Exec.LocalSymbol, n.Exec.Shares, n.Exec.Price)
		s.gates.ExecDetails.Set(n.Exec)

	case schema.NotificationExecDetailsEnd:
		s.gates.ExecDetailsEnd.Set(nil)

	case schema.NotificationPosition:
		s.mu.Lock()
		s.positions[n.Position.LocalSymbol] = n.Position
		s.mu.Unlock()

	case schema.NotificationPositionEnd:
		s.mu.Lock()
		snapshot := s.positions
		s.positions = make(map[string]schema.PositionEntry)
		s.mu.Unlock()
		s.gates.PositionEnd.Set(snapshot)

	case schema.NotificationOpenOrder:
		s.mu.Lock()
		s.openOrders[n.OpenOrder.LocalSymbol] = n.OpenOrder.OrderID
		s.mu.Unlock()

	case schema.NotificationOpenOrderEnd:
		s.mu.Lock()
		snapshot := s.openOrders
		s.openOrders = make(map[string]int64)
		s.mu.Unlock()
		s.gates.OpenOrderEnd.Set(snapshot)

	case schema.NotificationCompletedOrder:
		logs.Infof("completed order: symbol=%s status=%s time=%s",
			n.Completed.LocalSymbol, n.Completed.Status, n.Completed.CompletedTime)

	case schema.NotificationCompletedOrdersEnd:
		s.gates.CompletedOrdersEnd.Set(nil)

	case schema.NotificationCurrentTime:
		s.gates.CurrentTime.Set(n.Time)

	case schema.NotificationError:
		s.handleError(n.Err)
	}
}

func (s *Session) handleError(e schema.GatewayError) {
	switch e.Severity() {
	case schema.SeverityFatal:
		// Any further action could compound an inconsistent broker-side
		// order book. Stop the whole process, no cleanup.
		logs.Errorf("fatal gateway error: req=%d code=%d msg=%s", e.ReqID, e.Code, e.Message)
		s.exit(FatalExitCode)
	case schema.SeverityWarn:
		logs.Warnf("gateway warning: req=%d code=%d msg=%s", e.ReqID, e.Code, e.Message)
	default:
		logs.Infof("gateway info: code=%d msg=%s", e.Code, e.Message)
	}
}
