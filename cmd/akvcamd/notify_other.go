/*
DESCRIPTION
  notify_other.go stubs out systemd readiness reporting on platforms
  without it.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

//go:build !linux

package main

import (
	"github.com/ausocean/utils/logging"

	"github.com/ausocean/akvcam/broker"
)

func notifyReady(l logging.Logger, srv *broker.Server) {}
