/*
NAME
  producer.go

DESCRIPTION
  producer.go implements Producer: a session that claims a device as its
  sole broadcaster, creates the device's shared-frame channel, and pumps
  frames from a Source into it until stopped. Busy and Timeout replies
  are treated as recoverable and retried with backoff; anything else is
  terminal for the session.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package client

import (
	"context"
	"sync"
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/akvcam/internal/akerrors"
	"github.com/ausocean/akvcam/sharedframe"
	"github.com/ausocean/akvcam/source"
	"github.com/ausocean/akvcam/videoformat"
)

// Claim backoff bounds for retrying a Busy device.
const (
	claimBackoffMin = 500 * time.Millisecond
	claimBackoffMax = 5 * time.Second
)

// Producer owns one device broadcast: the broker-side broadcaster claim
// and the shared-frame channel frames are written into.
type Producer struct {
	client   *Client
	log      logging.Logger
	deviceID string
	format   videoformat.VideoFormat
	input    source.Source

	ch *sharedframe.Channel

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewProducer returns a Producer that will broadcast input's frames to
// deviceID through c. The broadcast format is input's format.
func NewProducer(c *Client, deviceID string, input source.Source) *Producer {
	return &Producer{
		client:   c,
		log:      c.log,
		deviceID: deviceID,
		format:   input.Format(),
		input:    input,
	}
}

// Start claims the device and begins pumping frames. A Busy reply (device
// in use by another peer) or a Timeout is retried with backoff until ctx
// expires; other errors are returned immediately.
func (p *Producer) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		p.logf(logging.Warning, "start called, but producer already running")
		return nil
	}

	if err := p.claim(ctx); err != nil {
		return err
	}

	ch, err := sharedframe.Create(p.deviceID, p.format.TotalSize(), p.log)
	if err != nil {
		p.client.StopBroadcast(ctx, p.deviceID)
		return err
	}
	p.ch = ch

	if err := p.input.Start(); err != nil {
		p.teardown(ctx)
		return err
	}

	p.stop = make(chan struct{})
	p.wg.Add(1)
	go p.pump()

	p.running = true
	return nil
}

// claim sends StartBroadcast, retrying recoverable failures with
// exponential backoff.
func (p *Producer) claim(ctx context.Context) error {
	backoff := claimBackoffMin
	for {
		err := p.client.StartBroadcast(ctx, p.deviceID, p.format)
		if err == nil {
			return nil
		}
		kind := akerrors.KindOf(err)
		if kind != akerrors.Busy && kind != akerrors.Timeout {
			return err
		}
		p.logf(logging.Info, "device not yet available, retrying", "device", p.deviceID, "kind", kind.String(), "backoff", backoff)
		select {
		case <-ctx.Done():
			return akerrors.Wrap(ctx.Err(), akerrors.Timeout, "claim device")
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > claimBackoffMax {
			backoff = claimBackoffMax
		}
	}
}

// pump moves frames from the input source into the shared-frame channel
// until stopped. Frames whose format differs from the declared broadcast
// format are converted and scaled to match, so the channel only ever
// carries the negotiated format.
func (p *Producer) pump() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		default:
		}

		f, err := p.input.Read()
		if err != nil {
			select {
			case <-p.stop:
				return
			default:
			}
			p.logf(logging.Error, "input source failed, stopping pump", "device", p.deviceID, "error", err)
			return
		}

		if !f.Format.Equal(p.format) {
			f = f.Scaled(int(p.format.Width), int(p.format.Height), videoformat.Fast, videoformat.Ignore).Convert(p.format.PixelFormat)
			if f.Empty() {
				p.logf(logging.Warning, "dropping frame that could not be conformed", "device", p.deviceID)
				continue
			}
		}

		if err := p.ch.Write(f); err != nil {
			p.logf(logging.Warning, "frame write failed", "device", p.deviceID, "error", err)
		}
	}
}

// Write pushes one frame directly, for callers that drive their own
// cadence with a Manual source rather than a free-running one.
func (p *Producer) Write(f videoformat.VideoFrame) error {
	m, ok := p.input.(*source.Manual)
	if !ok {
		return akerrors.New(akerrors.InvalidArgument, "cannot write to anything but a Manual source")
	}
	return m.Write(f)
}

// Stop releases the broadcast: the input source is stopped, the pump
// drained, the channel unlinked and the broker told StopBroadcast.
func (p *Producer) Stop(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		p.logf(logging.Warning, "stop called but producer isn't running")
		return
	}

	close(p.stop)
	if err := p.input.Stop(); err != nil {
		p.logf(logging.Error, "could not stop input source", "error", err)
	}
	p.wg.Wait()
	p.teardown(ctx)
	p.running = false
}

// teardown unlinks the channel and releases the broker-side claim.
func (p *Producer) teardown(ctx context.Context) {
	if p.ch != nil {
		if err := p.ch.Destroy(); err != nil {
			p.logf(logging.Warning, "could not destroy shared-frame channel", "device", p.deviceID, "error", err)
		}
		p.ch = nil
	}
	if err := p.client.StopBroadcast(ctx, p.deviceID); err != nil {
		p.logf(logging.Warning, "could not stop broadcast", "device", p.deviceID, "error", err)
	}
}

// Running reports whether the producer is currently broadcasting.
func (p *Producer) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Producer) logf(level int8, msg string, params ...interface{}) {
	if p.log == nil {
		return
	}
	p.log.Log(level, msg, params...)
}
