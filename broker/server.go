/*
NAME
  server.go

DESCRIPTION
  server.go implements the broker's network surface: the TCP accept loop,
  per-connection request dispatch, the ping-based peer-liveness sweep, and
  idle-shutdown detection.

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
	"net"
	"sync"
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/akvcam/control"
	"github.com/ausocean/akvcam/internal/akerrors"
)

// Server binds a Broker to a TCP listener and drives its connection and
// liveness loops.
type Server struct {
	b   *Broker
	cfg Config
	log logging.Logger

	mu       sync.Mutex
	ln       net.Listener
	wg       sync.WaitGroup
	stopping chan struct{}
	stopOnce sync.Once
}

// NewServer wraps b for network service. cfg must already be Validate'd.
func NewServer(b *Broker, cfg Config) *Server {
	return &Server{b: b, cfg: cfg, log: cfg.Logger, stopping: make(chan struct{})}
}

// ListenAndServe binds cfg.Endpoint and serves connections until ctx is
// cancelled, Stop is called, or the broker goes idle past cfg.IdleTimeout.
// It returns nil on a clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Endpoint)
	if err != nil {
		return akerrors.Wrap(err, akerrors.Transport, "listen")
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.logf(logging.Info, "broker listening", "endpoint", s.cfg.Endpoint)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(ln)
	}()

	if s.cfg.PingMisses > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.livenessLoop()
		}()
	}

	idleCheck := time.NewTicker(1 * time.Second)
	defer idleCheck.Stop()
	for {
		select {
		case <-ctx.Done():
			s.b.NotifyShutdown()
			s.Stop()
			s.wg.Wait()
			return nil
		case <-s.stopping:
			s.wg.Wait()
			return nil
		case <-idleCheck.C:
			if s.cfg.IdleTimeout > 0 && s.b.IdleSince() >= s.cfg.IdleTimeout {
				s.logf(logging.Info, "idle timeout reached, shutting down", "timeout", s.cfg.IdleTimeout)
				s.Stop()
				s.wg.Wait()
				return nil
			}
		}
	}
}

// Addr returns the listener's bound address, or nil before ListenAndServe
// has bound it. Useful when cfg.Endpoint carries port 0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Stop closes the listener and unblocks ListenAndServe. Safe to call more
// than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopping)
		s.mu.Lock()
		if s.ln != nil {
			s.ln.Close()
		}
		s.mu.Unlock()
		// Closing peer connections unblocks their serve loops; each one
		// releases its peer's state on the way out.
		s.b.forEachPeer(func(p *peer) {
			if p.conn != nil {
				p.conn.Close()
			}
		})
	})
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-s.stopping:
				return
			default:
				s.logf(logging.Warning, "accept failed", "error", err)
				return
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(nc)
		}()
	}
}

// serveConn handles one peer connection end to end: Hello handshake,
// request dispatch loop, and cleanup on disconnect.
func (s *Server) serveConn(nc net.Conn) {
	conn := control.NewConn(nc, s.log)
	defer conn.Close()

	// A well-behaved peer never sends notifications, but the channel must
	// be drained so a misbehaving one can't wedge the read loop.
	go func() {
		for range conn.Notifications {
		}
	}()

	peerID, err := s.handshake(conn)
	if err != nil {
		s.logf(logging.Debug, "handshake failed", "remote", nc.RemoteAddr(), "error", err)
		return
	}
	defer s.b.RemovePeer(peerID)

	for f := range conn.Requests {
		s.dispatch(conn, peerID, f)
	}
	s.logf(logging.Debug, "peer connection closed", "peer", peerID)
}

func (s *Server) handshake(conn *control.Conn) (string, error) {
	f, ok := <-conn.Requests
	if !ok {
		return "", akerrors.New(akerrors.Transport, "connection closed before Hello")
	}
	if f.ID != control.MsgHello {
		return "", akerrors.New(akerrors.Transport, "expected Hello as first message")
	}
	req, err := control.DecodeHelloRequest(f.Body)
	if err != nil {
		return "", err
	}

	peerID := req.SuggestedName
	if peerID == "" {
		peerID = newPeerID()
	}
	s.b.RegisterPeer(peerID, req.Role, conn)

	reply := control.HelloReply{PeerID: peerID, ServerVersion: protocolVersion}
	if err := conn.Reply(f.CorrelationID, control.MsgHello, reply.Encode()); err != nil {
		s.b.RemovePeer(peerID)
		return "", err
	}
	return peerID, nil
}

func (s *Server) logf(level int8, msg string, params ...interface{}) {
	if s.log == nil {
		return
	}
	s.log.Log(level, msg, params...)
}
