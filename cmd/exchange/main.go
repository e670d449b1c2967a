package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pitquant/spx/params"
	"github.com/pitquant/spx/pkg/api"
	"github.com/pitquant/spx/pkg/book"
	"github.com/pitquant/spx/pkg/catalog"
	"github.com/pitquant/spx/pkg/exchange"
	"github.com/pitquant/spx/pkg/journal"
	"github.com/pitquant/spx/pkg/launcher"
	"github.com/pitquant/spx/pkg/util"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <product file> <trader binary> [<trader binary> ...]\n", os.Args[0])
		os.Exit(1)
	}
	productFile := os.Args[1]
	traderBins := os.Args[2:]

	cfg := params.LoadFromEnv("")
	cfg.ProductFile = productFile

	var logger *zap.Logger
	var err error
	if cfg.LogFile != "" {
		logger, err = util.NewLoggerWithFile(cfg.LogFile, cfg.Verbose)
	} else {
		logger, err = util.NewLogger(cfg.Verbose)
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	cat, err := catalog.Load(cfg.ProductFile)
	if err != nil {
		sugar.Fatalw("catalog_load_failed", "path", cfg.ProductFile, "err", err)
	}
	sugar.Infow("catalog_loaded", "products", cat.Products())

	// ---- Trade journal (optional) ----
	var jnl *journal.Journal
	if cfg.DataDir != "" {
		jnl, err = journal.Open(filepath.Join(cfg.DataDir, "journal"))
		if err != nil {
			sugar.Fatalw("journal_open_failed", "err", err)
		}
		defer jnl.Close()
	}

	// ---- Exchange core ----
	ex := exchange.New(sugar, cat, exchange.Config{FillNotifyGap: cfg.FillNotifyGap})

	// ---- Observer API ----
	var apiServer *api.Server
	if cfg.APIAddr != "" {
		var trades api.TradeLog
		if jnl != nil {
			trades = jnl
		}
		apiServer = api.NewServer(ex, trades)
		go func() {
			if err := apiServer.Start(cfg.APIAddr); err != nil {
				sugar.Warnw("api_server_failed", "err", err)
			}
		}()
	}

	// Hooks run on the dispatcher goroutine, after both parties of a fill
	// have been notified.
	ex.OnFill = func(f book.Fill) {
		if jnl != nil {
			if err := jnl.RecordFill(f); err != nil {
				sugar.Warnw("journal_write_failed", "err", err)
			}
		}
		if apiServer != nil {
			apiServer.BroadcastFill(f)
		}
	}
	if apiServer != nil {
		ex.OnMarket = apiServer.BroadcastMarket
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Launch traders and attach their connections ----
	// Each trader gets its own loopback listener, so the accepted
	// connection identifies the trader without a handshake.
	l := launcher.New()
	for i, bin := range traderBins {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			sugar.Fatalw("listen_failed", "trader", i, "err", err)
		}

		if _, err := l.Start(bin, i, ln.Addr().String(), func(id int, err error) {
			sugar.Infow("trader_exited", "trader", id, "err", err)
		}); err != nil {
			sugar.Fatalw("trader_launch_failed", "trader", i, "binary", bin, "err", err)
		}

		ln.(*net.TCPListener).SetDeadline(time.Now().Add(cfg.ConnectTimeout))
		conn, err := ln.Accept()
		ln.Close()
		if err != nil {
			l.Kill()
			sugar.Fatalw("trader_connect_timeout", "trader", i, "binary", bin, "err", err)
		}
		ex.Attach(conn)
	}

	ex.OpenMarket()
	if err := ex.Run(ctx); err != nil {
		l.Kill()
		sugar.Fatalw("exchange_failed", "err", err)
	}

	sugar.Infow("exchange_shutdown", "fees_collected", ex.FeesCollected())
}
