/*
DESCRIPTION
  akvcamd is the virtual-camera broker daemon: it owns the device
  registry, mediates producers and consumers over the control protocol,
  and fans out device, picture and control change notifications.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ausocean/utils/logging"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/akvcam/broker"
	"github.com/ausocean/akvcam/control"
	"github.com/ausocean/akvcam/prefs"
)

// Logging related constants.
const (
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
	logSuppress  = true
)

func main() {
	var (
		endpointPtr  = flag.String("endpoint", "", "Address to listen on (default "+control.EndpointEnv+" or "+control.DefaultEndpoint+").")
		prefsPtr     = flag.String("prefs", defaultPrefsPath(), "Path to the preferences file.")
		logPathPtr   = flag.String("log", defaultLogPath(), "Path to the log file.")
		verbosityPtr = flag.Int("verbosity", int(logging.Info), "Log verbosity.")
		idlePtr      = flag.Duration("idle-timeout", 0, "Exit after this long with no connected peers (0 disables).")
		pingPtr      = flag.Duration("ping-interval", 5*time.Second, "Interval between peer liveness pings.")
		missesPtr    = flag.Int("ping-misses", 3, "Consecutive missed pings before a peer is declared dead.")
	)
	flag.Parse()

	// Create lumberjack logger to handle logging to file.
	fileLog := &lumberjack.Logger{
		Filename:   *logPathPtr,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}

	l := logging.New(int8(*verbosityPtr), io.MultiWriter(fileLog, os.Stderr), logSuppress)

	store, err := prefs.Load(*prefsPtr, l)
	if err != nil {
		l.Fatal("could not load preferences", "path", *prefsPtr, "error", err)
	}
	if level := store.LogLevel(); level != 0 {
		l.SetLevel(level)
	}

	cfg := broker.Config{
		Endpoint:     *endpointPtr,
		PrefsPath:    *prefsPtr,
		PingInterval: *pingPtr,
		PingMisses:   *missesPtr,
		IdleTimeout:  *idlePtr,
		Logger:       l,
	}
	if err := cfg.Validate(); err != nil {
		l.Fatal("invalid configuration", "error", err)
	}

	b := broker.New(cfg, store)

	w, err := b.WatchPrefs(*prefsPtr)
	if err != nil {
		l.Warning("could not watch preferences file", "path", *prefsPtr, "error", err)
	} else {
		defer w.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := broker.NewServer(b, cfg)
	notifyReady(l, srv)

	l.Info("starting broker", "endpoint", cfg.Endpoint, "prefs", *prefsPtr)
	if err := srv.ListenAndServe(ctx); err != nil {
		l.Fatal("broker exited", "error", err)
	}

	if err := store.Save(*prefsPtr); err != nil {
		l.Error("could not save preferences on shutdown", "path", *prefsPtr, "error", err)
	}
	l.Info("broker stopped")
}

// defaultPrefsPath places the preferences file under the user's config
// directory, falling back to the working directory.
func defaultPrefsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "akvcam.conf"
	}
	return filepath.Join(dir, "akvcam", "akvcam.conf")
}

func defaultLogPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "akvcamd.log"
	}
	return filepath.Join(dir, "akvcam", "akvcamd.log")
}
