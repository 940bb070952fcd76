/*
NAME
  config.go

DESCRIPTION
  config.go provides broker service configuration: a plain struct whose
  Validate method applies defaults. The broker has a handful of scalar
  fields, so no variable-table indirection is warranted here.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package broker implements the frame-distribution and device-coordination
// service: the authoritative device registry, single-broadcaster
// enforcement per device, and control-protocol request dispatch and
// notification fan-out to connected peers.
package broker

import (
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/akvcam/control"
)

// Config holds broker service parameters. A new Config must be passed to
// New; call Validate first to fill in defaults.
type Config struct {
	// Endpoint is the local address the broker listens on; leave empty to
	// use the AKVCAM_SERVICE_ENDPOINT override or the loopback default.
	Endpoint string

	// PrefsPath is the backing preferences file path.
	PrefsPath string

	// PingInterval is how often the broker pings each connected peer.
	PingInterval time.Duration

	// PingMisses is the number of consecutive missed pings (default 3,
	// minimum 2) before a peer is declared dead.
	PingMisses int

	// IdleTimeout is how long the broker runs with zero connected peers
	// before it may exit (0 disables idle shutdown).
	IdleTimeout time.Duration

	Logger logging.Logger
}

// Validate fills in defaults for any zero-valued fields and raises a
// PingMisses of 1 to the minimum of 2. It always returns nil.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		c.Endpoint = control.ServiceEndpoint()
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 5 * time.Second
	}
	if c.PingMisses <= 0 {
		c.PingMisses = 3
	}
	if c.PingMisses < 2 {
		c.PingMisses = 2
	}
	return nil
}
