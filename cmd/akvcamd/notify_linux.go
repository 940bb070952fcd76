/*
DESCRIPTION
  notify_linux.go reports broker readiness and liveness to systemd, so an
  on-demand (socket- or bus-activated) unit can supervise the daemon.

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
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/ausocean/akvcam/broker"
)

// notifyReady signals READY=1 once the listener is bound, then feeds the
// systemd watchdog (if one is configured) for the life of the process.
func notifyReady(l logging.Logger, srv *broker.Server) {
	go func() {
		for srv.Addr() == nil {
			time.Sleep(100 * time.Millisecond)
		}
		if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
			l.Debug("sd_notify unavailable", "error", err)
		} else if ok {
			l.Info("reported ready to systemd")
		}

		interval, err := daemon.SdWatchdogEnabled(false)
		if err != nil || interval == 0 {
			return
		}
		for range time.Tick(interval / 2) {
			daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}()
}
