// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ManuGH/drmcore/internal/config"
	"github.com/ManuGH/drmcore/internal/curlstore"
	"github.com/ManuGH/drmcore/internal/diagnostics"
	"github.com/ManuGH/drmcore/internal/drm"
	"github.com/ManuGH/drmcore/internal/drm/helpers"
	"github.com/ManuGH/drmcore/internal/eventmgr"
	drmlog "github.com/ManuGH/drmcore/internal/log"
	"github.com/ManuGH/drmcore/internal/scheduler"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	addr := flag.String("addr", ":9090", "diagnostics listen address")
	flag.Parse()

	if *showVersion {
		fmt.Printf("drmcored %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	drmlog.Configure(drmlog.Config{Level: "info", Service: "drmcored", Version: version})
	logger := drmlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.NewStore()

	curlMax, _, _ := config.GetChecked[int](cfg, config.KeyCurlMaxBuckets)
	curlMaxHard, _, _ := config.GetChecked[int](cfg, config.KeyCurlMaxBucketsHard)
	userAgent, _, _ := config.GetChecked[string](cfg, config.KeyCurlUserAgent)
	transferTimeoutSec, _, _ := config.GetChecked[int](cfg, config.KeyCurlTransferTimeoutSec)
	curl := curlstore.New(curlstore.Config{
		MaxBuckets:      curlMax,
		MaxBucketsHard:  curlMaxHard,
		MaxInstances:    2,
		FollowRedirects: true,
		SSLVerifyPeer:   true,
		UserAgent:       userAgent,
		TransferTimeout: time.Duration(transferTimeoutSec) * time.Second,
	})

	events := eventmgr.New()
	events.Start(ctx)
	defer events.Stop()

	sched := scheduler.New()
	sched.Start()
	defer sched.Stop()

	slotCount, _, _ := config.GetChecked[int](cfg, config.KeySessionSlotCount)
	registry := drm.NewHelperRegistry(
		helpers.WidevineFactory{},
		helpers.PlayReadyFactory{},
		helpers.ClearKeyFactory{},
		helpers.VGDrmFactory{},
		helpers.VanillaAESFactory{},
	)
	logger.Info().Strs("drm_schemes", registry.GetSystemIds()).Msg("daemon.helper_registry_ready")

	sessions := drm.NewSessionManager(slotCount, cfg, curl, events, nil)
	sessions.SetSessionMgrState(drm.StateActive)

	router := diagnostics.NewRouter(diagnostics.Deps{
		Config:    cfg,
		Curl:      curl,
		Scheduler: sched,
		Sessions:  sessions,
	})

	srv := &http.Server{Addr: *addr, Handler: router}
	go func() {
		logger.Info().Str("addr", *addr).Msg("daemon.diagnostics_listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("daemon.listen_failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("daemon.shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("daemon.shutdown_error")
	}

	sessions.ClearSessionData()
}
