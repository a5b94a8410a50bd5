package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"

	"main/internal/bridge"
	"main/internal/bus"
	"main/internal/gateway"
	"main/internal/indicator"
	"main/internal/journal"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/order"
	"main/internal/reconcile"
	"main/internal/sched"
	"main/internal/schema"
	"main/internal/strategy"
)

var errSessionDone = errors.New("session complete")

// reqIDs hands out correlation ids for data requests.
type reqIDs struct{ n atomic.Int64 }

func newReqIDs() *reqIDs {
	r := &reqIDs{}
	r.n.Store(1000)
	return r
}

func (r *reqIDs) next() int64 { return r.n.Add(1) }

func main() {
	configPath := flag.String("config", "", "Path to YAML config")
	flag.Parse()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		logs.Errorf("config load failed: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := obs.NewMetrics()
	if addr := loaded.Obs.MetricsAddr; addr != "" {
		go serveMetrics(addr, metrics)
	}
	if loaded.Obs.PyroscopeServer != "" {
		stopProfiler, err := startProfiler(loaded.Obs)
		if err != nil {
			logs.Errorf("pyroscope start failed: %v", err)
			os.Exit(1)
		}
		defer stopProfiler()
	}

	jnl, err := journal.Open(loaded.Journal)
	if err != nil {
		logs.Errorf("journal open failed: %v", err)
		os.Exit(1)
	}
	defer func() { _ = jnl.Close() }()

	if err := run(ctx, loaded, metrics, jnl); err != nil && !errors.Is(err, errSessionDone) {
		logs.Errorf("session failed: %v", err)
		os.Exit(1)
	}
	logs.Info("session finished")
}

func run(ctx context.Context, cfg ops.Loaded, metrics *obs.Metrics, jnl *journal.Journal) error {
	b := bus.NewBus()
	queue := bus.NewStatusQueue(256)
	session := bridge.NewSession(bridge.SessionConfig{
		Queue:   queue,
		Metrics: metrics,
		Exit:    os.Exit,
	})
	b.Subscribe(session.Handle)

	tws := gateway.NewTWS(ctx, cfg.Gateway.Host, cfg.Gateway.Port, cfg.Gateway.ClientID, b)
	if err := tws.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = tws.Close() }()

	gates := session.Gates()
	ids := newReqIDs()

	// The session cannot proceed without an order id, so this wait is
	// unbounded.
	if _, err := bridge.CallWait(ctx, gates.NextOrderID, tws.RequestIDs); err != nil {
		return err
	}
	logs.Infof("connected, next order id %d, accounts %s", session.NextOrderID(), session.Accounts())

	if err := fetchAccountSummary(ctx, tws, gates, ids, cfg.Timeouts.Account); err != nil {
		logs.Warnf("account summary unavailable: %v", err)
	}
	resolved, err := fetchContractDetails(ctx, tws, gates, ids, cfg)
	if err != nil {
		return err
	}
	contract, err := resolved.Resolve(cfg.Contract)
	if err != nil {
		return err
	}
	if contract.LocalSymbol != cfg.Contract.LocalSymbol {
		logs.Warnf("resolved local symbol %s overrides configured %s", contract.LocalSymbol, cfg.Contract.LocalSymbol)
	}
	cfg.Contract = contract
	logs.Infof("contract resolved: %s conId=%d multiplier=%s", resolved.LocalSymbol, resolved.ConID, resolved.Multiplier)

	priorATR, priorClose, err := fetchDailyStats(ctx, tws, gates, ids, cfg)
	if err != nil {
		return err
	}
	logs.Infof("prior-day ATR(%d) = %.2f, prior close %.2f", cfg.Strategy.ATRLength, priorATR, priorClose)

	loop := sched.NewLoop(sched.Config{
		Interval: time.Duration(cfg.Strategy.IntervalMinutes) * time.Minute,
	}, metrics)

	now := time.Now().In(cfg.Session.Location)
	if start := cfg.Session.Start.On(now); now.Before(start) {
		if err := loop.SleepUntil(ctx, start); err != nil {
			return err
		}
	}

	tracker := order.NewTracker(tws, session, order.Config{
		Contract:    cfg.Contract,
		IDTimeout:   cfg.Timeouts.OrderID,
		ExecTimeout: cfg.Timeouts.Execution,
		Recorder:    jnl,
	}, metrics)
	rec := reconcile.NewReconciler(tws, session, reconcile.Config{
		LocalSymbol:       cfg.Contract.LocalSymbol,
		PositionsTimeout:  cfg.Timeouts.Positions,
		OpenOrdersTimeout: cfg.Timeouts.OpenOrders,
	}, metrics)
	machine := strategy.NewMachine(tracker, rec, strategy.Config{
		LocalSymbol: cfg.Contract.LocalSymbol,
		Quantity:    cfg.Strategy.Quantity,
		Tick:        cfg.Strategy.Tick,
		PriorDayATR: priorATR,
		EntryCutoff: cfg.Session.EntryCutoff,
		CloseOut:    cfg.Session.CloseOut,
	}, metrics)

	sessionLogged := false
	tick := func(ctx context.Context, now time.Time) error {
		now = now.In(cfg.Session.Location)

		// Liveness ping before acting on this tick's data.
		if _, err := bridge.Call(ctx, gates.CurrentTime, 3*time.Second, tws.RequestCurrentTime); err != nil {
			logs.Warnf("current-time ping timed out: %v", err)
		}

		bars, err := fetchIntradayBars(ctx, tws, gates, ids, cfg)
		if err != nil {
			return err
		}
		candles := strategy.SessionCandles(bars, now)
		if low, high, ok := strategy.SessionRange(candles); ok {
			tr := indicator.DayTrueRange(high, low, priorClose)
			logs.Infof("tick %s: %d candles, session range %.2f-%.2f, true range %.2f",
				now.Format("15:04"), len(candles), low, high, tr)
		}

		if err := machine.Step(ctx, now, candles); err != nil {
			return err
		}
		if !sessionLogged {
			if rng, ok := machine.Range(); ok {
				sessionLogged = true
				if err := jnl.StartSession(now.Format("2006-01-02"), cfg.Contract.LocalSymbol, rng.Low, rng.High, priorATR); err != nil {
					logs.Warnf("journal session: %v", err)
				}
			}
		}
		var close float64
		if len(candles) > 0 {
			close = candles[len(candles)-1].Close
		}
		if err := jnl.Decision(now, machine.State().String(), close, ""); err != nil {
			logs.Warnf("journal decision: %v", err)
		}

		if machine.State().Terminal() {
			return errSessionDone
		}
		return nil
	}

	runErr := loop.Run(ctx, cfg.Session.Close.On(now), tick)
	sweepCompletedOrders(ctx, tws, gates)
	return runErr
}

func fetchAccountSummary(ctx context.Context, tws *gateway.TWS, gates *bridge.Gates, ids *reqIDs, timeout time.Duration) error {
	reqID := ids.next()
	_, err := bridge.Call(ctx, gates.AccountSummaryEnd, timeout, func() error {
		return tws.RequestAccountSummary(reqID, "All", "NetLiquidation")
	})
	if cerr := tws.CancelAccountSummary(reqID); cerr != nil {
		logs.Warnf("cancel account summary: %v", cerr)
	}
	return err
}

func fetchContractDetails(ctx context.Context, tws *gateway.TWS, gates *bridge.Gates, ids *reqIDs, cfg ops.Loaded) (schema.ContractDetails, error) {
	reqID := ids.next()
	v, err := bridge.Call(ctx, gates.ContractDetailsEnd, cfg.Timeouts.Contract, func() error {
		return tws.RequestContractDetails(reqID, cfg.Contract)
	})
	if err != nil {
		return schema.ContractDetails{}, err
	}
	details, _ := v.(schema.ContractDetails)
	return details, nil
}

func fetchDailyStats(ctx context.Context, tws *gateway.TWS, gates *bridge.Gates, ids *reqIDs, cfg ops.Loaded) (atr, priorClose float64, err error) {
	bars, err := fetchBars(ctx, tws, gates, ids, cfg, cfg.Strategy.DailyDuration, "1 day")
	if err != nil {
		return 0, 0, err
	}
	return indicator.PriorATR(bars, cfg.Strategy.ATRLength), indicator.PriorClose(bars), nil
}

func fetchIntradayBars(ctx context.Context, tws *gateway.TWS, gates *bridge.Gates, ids *reqIDs, cfg ops.Loaded) ([]schema.Candle, error) {
	return fetchBars(ctx, tws, gates, ids, cfg, "1 D", barSize(cfg.Strategy.IntervalMinutes))
}

func fetchBars(ctx context.Context, tws *gateway.TWS, gates *bridge.Gates, ids *reqIDs, cfg ops.Loaded, duration, size string) ([]schema.Candle, error) {
	reqID := ids.next()
	v, err := bridge.Call(ctx, gates.HistoricalDataEnd, cfg.Timeouts.Historical, func() error {
		return tws.RequestHistoricalData(reqID, cfg.Contract, duration, size, "TRADES", true)
	})
	if err != nil {
		return nil, err
	}
	bars, _ := v.([]schema.Candle)
	return bars, nil
}

func barSize(minutes int) string {
	if minutes == 1 {
		return "1 min"
	}
	return strconv.Itoa(minutes) + " mins"
}

func sweepCompletedOrders(ctx context.Context, tws *gateway.TWS, gates *bridge.Gates) {
	if _, err := bridge.Call(ctx, gates.CompletedOrdersEnd, 10*time.Second, func() error {
		return tws.RequestCompletedOrders(true)
	}); err != nil {
		logs.Warnf("completed-orders sweep: %v", err)
	}
}

func serveMetrics(addr string, metrics *obs.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logs.Errorf("metrics server: %v", err)
	}
}

func startProfiler(cfg ops.ObsConfig) (func(), error) {
	app := cfg.AppName
	if app == "" {
		app = "orb"
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: app,
		ServerAddress:   cfg.PyroscopeServer,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = profiler.Stop() }, nil
}
