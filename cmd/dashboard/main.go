package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"stock-forecast/src/config"
	"stock-forecast/src/dashboard"
	"stock-forecast/src/logger"
	"stock-forecast/src/models"
	"stock-forecast/src/network"
)

// Reads "SYMBOL [PERIOD]" lines from stdin and renders the chart state for
// each selection as it converges.
func main() {
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	symbol := flag.String("symbol", "", "initial symbol (defaults to data_source.default_symbol)")
	period := flag.String("period", "", "initial period: 1mo or 6mo")
	flag.Parse()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.NewLogger(cfg.LogLevel, "Dashboard")

	serverURL := cfg.Dashboard.ServerURL
	if serverURL == "" {
		serverURL = fmt.Sprintf("http://127.0.0.1:%d", cfg.Port)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One attempt per fetch; the server already retries upstream.
	fetchCfg := *cfg.MConfig
	fetchCfg.Network = models.MNetworkConfig{
		RequestTimeout:     cfg.Dashboard.RequestTimeout,
		MaxRetries:         0,
		ConcurrentRequests: 1,
		UserAgent:          "stock-forecast-dashboard",
	}
	fetcher := dashboard.NewHistoricalFetcher(serverURL,
		network.NewAsyncNetworkManager(&fetchCfg, appLogger.Named("Fetcher")))

	var channel dashboard.PushChannel
	realtime := dashboard.NewRealtimeChannel(pushURL(serverURL), appLogger.Named("RealtimeChannel"))
	if err := realtime.Connect(ctx); err != nil {
		appLogger.Warning("Live updates unavailable: %v", err)
	} else {
		channel = realtime
		defer realtime.Close()
	}

	session := dashboard.NewSession(fetcher, channel, appLogger.Named("Session"))
	go func() {
		if err := session.Run(ctx); err != nil && ctx.Err() == nil {
			appLogger.Error("Session ended: %v", err)
		}
	}()

	initial := models.MSelection{Symbol: *symbol, Period: models.Period(*period)}
	if initial.Symbol == "" {
		initial.Symbol = cfg.DataSource.DefaultSymbol
	}
	if initial.Period == "" {
		initial.Period = models.Period(cfg.DataSource.DefaultPeriod)
	}
	if err := session.SetSelection(initial); err != nil {
		appLogger.Critical("Invalid selection: %v", err)
	}

	go readSelections(ctx, session, appLogger)

	if err := dashboard.Drive(ctx, session.Updates(), dashboard.NewLogRenderer(appLogger.Named("Chart"))); err != nil && ctx.Err() == nil {
		appLogger.Error("Renderer failed: %v", err)
	}
}

// -----------------------------------------------------------------------------

func readSelections(ctx context.Context, session *dashboard.Session, log *logger.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		sel := models.MSelection{Symbol: fields[0]}
		if len(fields) > 1 {
			sel.Period = models.Period(fields[1])
		}
		if err := session.SetSelection(sel); err != nil {
			log.Warning("%v", err)
		}
	}
}

// -----------------------------------------------------------------------------

// pushURL turns http(s)://host into ws(s)://host/ws.
func pushURL(serverURL string) string {
	u, err := url.Parse(serverURL)
	if err != nil {
		return serverURL
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}
