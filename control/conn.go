/*
NAME
  conn.go

DESCRIPTION
  conn.go implements Conn, the request/reply and notification multiplexer
  built on top of the AKCP frame codec: one goroutine reads frames off the
  wire, routes replies to the waiting Request call by correlation_id,
  forwards notifications to Notifications, and forwards requests
  initiated by the remote end (such as the broker's Ping) to Requests.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package control

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/akvcam/internal/akerrors"
)

// Conn multiplexes requests, replies and notifications over a single
// underlying connection. Safe for concurrent Request calls.
type Conn struct {
	nc            net.Conn
	log           logging.Logger
	nextCorrID    uint32
	mu            sync.Mutex
	pending       map[uint32]chan Frame
	Notifications chan Frame
	Requests      chan Frame
	closed        chan struct{}
	closeOnce     sync.Once
}

// NewConn wraps nc and starts its read loop. The caller must call Close
// when done to release the underlying connection and the read goroutine.
func NewConn(nc net.Conn, log logging.Logger) *Conn {
	c := &Conn{
		nc:            nc,
		log:           log,
		pending:       make(map[uint32]chan Frame),
		Notifications: make(chan Frame, 32),
		Requests:      make(chan Frame, 32),
		closed:        make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Conn) readLoop() {
	defer close(c.Notifications)
	defer close(c.Requests)
	for {
		f, err := ReadFrame(c.nc)
		if err != nil {
			c.logf(logging.Debug, "control connection read loop exiting", "error", err)
			c.failPending(err)
			return
		}
		if f.IsNotification() {
			select {
			case c.Notifications <- f:
			default:
				c.logf(logging.Warning, "dropped notification, channel full", "id", f.ID)
			}
			continue
		}
		c.deliver(f)
	}
}

// deliver routes a reply to the Request call waiting on its correlation
// id, and a remote-initiated request to Requests.
func (c *Conn) deliver(f Frame) {
	if !f.IsReply() {
		select {
		case c.Requests <- f:
		default:
			c.logf(logging.Warning, "dropped request, channel full", "id", f.ID)
		}
		return
	}
	c.mu.Lock()
	ch, ok := c.pending[f.CorrelationID]
	if ok {
		delete(c.pending, f.CorrelationID)
	}
	c.mu.Unlock()
	if !ok {
		c.logf(logging.Warning, "reply with no matching request", "correlation_id", f.CorrelationID)
		return
	}
	ch <- f
}

func (c *Conn) failPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// Request sends a request frame with the given message id and body and
// blocks until the matching reply arrives, ctx is done, or the connection
// closes. It returns a Transport-kind error if the connection closes
// before a reply arrives.
func (c *Conn) Request(ctx context.Context, id MessageID, body []byte) (Frame, error) {
	corrID := atomic.AddUint32(&c.nextCorrID, 1)
	ch := make(chan Frame, 1)

	c.mu.Lock()
	c.pending[corrID] = ch
	c.mu.Unlock()

	if err := WriteFrame(c.nc, Frame{ID: id, CorrelationID: corrID, Body: body}); err != nil {
		c.mu.Lock()
		delete(c.pending, corrID)
		c.mu.Unlock()
		return Frame{}, err
	}

	select {
	case reply, ok := <-ch:
		if !ok {
			return Frame{}, akerrors.New(akerrors.Transport, "connection closed awaiting reply")
		}
		return reply, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, corrID)
		c.mu.Unlock()
		return Frame{}, akerrors.Wrap(ctx.Err(), akerrors.Timeout, "control request cancelled")
	}
}

// Reply sends a reply frame for the request carried by corrID.
func (c *Conn) Reply(corrID uint32, id MessageID, body []byte) error {
	return WriteFrame(c.nc, Frame{ID: id, Flags: FlagReply, CorrelationID: corrID, Body: body})
}

// ReplyError sends an error reply for the request carried by corrID.
func (c *Conn) ReplyError(corrID uint32, id MessageID, kind akerrors.Kind, msg string) error {
	var w bodyWriter
	w.u32(uint32(kind))
	w.string(msg)
	return WriteFrame(c.nc, Frame{ID: id, Flags: FlagReply | FlagError, CorrelationID: corrID, Body: w.Bytes()})
}

// DecodeErrorBody decodes the body written by ReplyError.
func DecodeErrorBody(b []byte) (akerrors.Kind, string, error) {
	r := newBodyReader(b)
	k, err := r.u32()
	if err != nil {
		return 0, "", err
	}
	msg, err := r.string()
	if err != nil {
		return 0, "", err
	}
	return akerrors.Kind(k), msg, r.done()
}

// Notify sends a notification frame (zero correlation id, FlagNotification set).
func (c *Conn) Notify(id MessageID, body []byte) error {
	return WriteFrame(c.nc, Frame{ID: id, Flags: FlagNotification, Body: body})
}

// Send writes a frame without expecting a reply.
func (c *Conn) Send(f Frame) error {
	return WriteFrame(c.nc, f)
}

// RemoteAddr returns the underlying connection's remote address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.nc.RemoteAddr()
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.nc.Close()
	})
	return err
}

func (c *Conn) logf(level int8, msg string, params ...interface{}) {
	if c.log == nil {
		return
	}
	c.log.Log(level, msg, params...)
}
