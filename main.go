/*
Package main
File: main.go
Description: Server entry point. Loads config and balance, opens the snapshot
store, builds the engine, the real-time WebSocket hub and the REST router,
and runs the lifecycle heartbeat that keeps zones decaying and trees growing.
*/

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"golang.org/x/sync/errgroup"

	"github.com/everforgeworks/ecosnap-engine/internal/api"
	"github.com/everforgeworks/ecosnap-engine/internal/config"
	"github.com/everforgeworks/ecosnap-engine/internal/game"
	"github.com/everforgeworks/ecosnap-engine/internal/geo"
	"github.com/everforgeworks/ecosnap-engine/internal/logger"
	"github.com/everforgeworks/ecosnap-engine/internal/notify"
	"github.com/everforgeworks/ecosnap-engine/internal/store"
)

func main() {
	// 1. Runtime config and logging
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Simulation tuning
	balance, err := game.LoadBalance(cfg.BalancePath)
	if err != nil {
		log.Fatal("balance load failed", "path", cfg.BalancePath, "err", err)
	}

	// 3. Persistence
	kv, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		log.Fatal("store open failed", "driver", cfg.Store.Driver, "err", err)
	}
	defer kv.Close()
	snaps := store.NewSnapshots(kv, log)

	// 4. Notification fan-out: websocket clients, the log, and Kafka when configured
	hub := api.NewHub(log)
	sinks := notify.Multi{hub, notify.Log{Logger: log}}
	if len(cfg.Kafka.Brokers) > 0 {
		k, err := notify.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Source, log)
		if err != nil {
			log.Fatal("kafka sink failed", "err", err)
		}
		defer k.Close()
		sinks = append(sinks, k)
	}

	// 5. Engine
	engine := game.New(game.Options{
		Balance:   &balance,
		Snapshots: snaps,
		Sink:      sinks,
		Logger:    log,
		Username:  cfg.Username,
	})

	var geocoder geo.Geocoder
	if cfg.Geocoder.Enabled {
		geocoder = geo.NewNominatim(cfg.Geocoder.URL, nil)
	}
	locator := geo.NewLocator(engine, geocoder, log)

	// 6. Router
	router := api.NewServer(engine, hub, locator, log).Router()
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handlers.LoggingHandler(log.Writer(), router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	// 7. Real-time hub
	g.Go(func() error { return hub.Run(gctx) })

	// 8. THE LIFECYCLE HEARTBEAT
	// Advances trees, recalculates zones and pushes a pulse to every client.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.Tick)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-ticker.C:
				zones := engine.Tick()
				hub.Pulse(now, zones)
				log.Debug("zone pulse", "zones", len(zones), "neighborhood_health", game.NeighborhoodHealth(zones))
			}
		}
	})

	// 9. Hot reload: SIGHUP re-reads the balance file without a restart
	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				b, err := game.LoadBalance(cfg.BalancePath)
				if err != nil {
					log.Error("balance reload failed, keeping current", "path", cfg.BalancePath, "err", err)
					continue
				}
				engine.SetBalance(b)
			}
		}
	})

	// 10. HTTP server
	g.Go(func() error {
		log.Info("EcoSnap engine live", "addr", cfg.Addr, "store", cfg.Store.Driver, "tick", cfg.Tick.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
