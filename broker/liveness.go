/*
NAME
  liveness.go

DESCRIPTION
  liveness.go implements the broker's ping-based peer liveness sweep:
  every Config.PingInterval, each connected peer is sent a Ping
  request; a peer that fails to reply Config.PingMisses times in a row is
  declared dead and its held devices and listener slots are released.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package broker

import (
	"context"
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/akvcam/control"
)

func (s *Server) livenessLoop() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopping:
			return
		case <-ticker.C:
			s.pingAll()
		}
	}
}

func (s *Server) pingAll() {
	s.b.forEachPeer(func(p *peer) {
		if p.conn == nil {
			return
		}
		go s.pingOne(p)
	})
}

func (s *Server) pingOne(p *peer) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PingInterval)
	defer cancel()

	_, err := p.conn.Request(ctx, control.MsgPing, nil)
	if err == nil {
		p.resetMissedPings()
		return
	}

	misses := p.incMissedPings()
	s.logf(logging.Debug, "missed ping", "peer", p.id, "misses", misses, "error", err)
	if misses >= s.cfg.PingMisses {
		s.logf(logging.Warning, "peer unresponsive, dropping", "peer", p.id, "misses", misses)
		s.b.RemovePeer(p.id)
		p.conn.Close()
	}
}
