/*
NAME
  consumer.go

DESCRIPTION
  consumer.go implements Consumer: a session that listens on a device and
  pulls frames from its shared-frame channel. While the device has no
  broadcaster the consumer renders a test pattern locally, and it opens
  the channel through a rate-limited retry loop rather than a busy spin.

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

// openRetryInterval rate-limits attempts to open a device's channel
// while waiting for a broadcaster to appear.
const openRetryInterval = 500 * time.Millisecond

// fallbackFormat is used for the test pattern when a device advertises
// no formats at all.
var fallbackFormat = videoformat.VideoFormat{
	PixelFormat: videoformat.RGB24,
	Width:       640,
	Height:      480,
	FPS:         videoformat.Fraction{Num: 30, Den: 1},
}

// Consumer reads frames from one device, substituting a locally rendered
// test pattern while no broadcaster is active.
type Consumer struct {
	client   *Client
	log      logging.Logger
	deviceID string

	mu       sync.Mutex
	running  bool
	ch       *sharedframe.Channel
	lastSeen uint64
	lastOpen time.Time
	pattern  *source.Pattern
}

// NewConsumer returns a Consumer for deviceID over c. picturePath names
// the overlay image rendered as the idle test pattern; empty means
// random noise.
func NewConsumer(c *Client, deviceID, picturePath string) *Consumer {
	return &Consumer{
		client:   c,
		log:      c.log,
		deviceID: deviceID,
		pattern:  source.NewPattern(fallbackFormat, picturePath),
	}
}

// Start registers this peer as a listener and readies the test pattern
// at the device's first advertised format.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		c.logf(logging.Warning, "start called, but consumer already running")
		return nil
	}

	if err := c.client.AddListener(ctx, c.deviceID); err != nil {
		return err
	}

	format := fallbackFormat
	info, err := c.client.DeviceInfo(ctx, c.deviceID)
	if err == nil && len(info.Formats) > 0 {
		format = info.Formats[0]
	}
	c.pattern = source.NewPattern(format, c.pattern.PicturePath())
	if err := c.pattern.Start(); err != nil {
		c.client.RemoveListener(ctx, c.deviceID)
		return err
	}

	c.running = true
	return nil
}

// SetPicture swaps the idle test pattern's overlay, typically on a
// PictureChanged event.
func (c *Consumer) SetPicture(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := source.NewPattern(c.pattern.Format(), path)
	if err := p.Start(); err != nil {
		c.logf(logging.Warning, "could not restart test pattern", "error", err)
		return
	}
	c.pattern.Stop()
	c.pattern = p
}

// Read returns the next frame within timeout. With an active broadcaster
// the frame comes from the shared channel; while the device is idle the
// test pattern is returned instead, paced at its frame rate. A Timeout
// error means the broadcaster is alive but produced nothing new in time.
func (c *Consumer) Read(ctx context.Context, timeout time.Duration) (videoformat.VideoFrame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return videoformat.VideoFrame{}, akerrors.New(akerrors.InvalidArgument, "consumer has not been started")
	}

	if c.ch == nil {
		c.tryOpen(ctx)
	}

	if c.ch != nil {
		f, seq, err := c.ch.Read(timeout, c.lastSeen)
		switch {
		case err == nil:
			c.lastSeen = seq
			return f, nil
		case akerrors.Is(err, akerrors.Timeout):
			return videoformat.VideoFrame{}, err
		default:
			// Corrupted slot or unlinked channel: the producer is gone.
			// Drop the handle and fall back to the test pattern.
			c.logf(logging.Warning, "channel read failed, reverting to test pattern", "device", c.deviceID, "error", err)
			c.ch.Close()
			c.ch = nil
			c.lastSeen = 0
		}
	}

	return c.patternFrame()
}

// tryOpen attaches to the device's channel if a broadcaster is active,
// at most once per openRetryInterval.
func (c *Consumer) tryOpen(ctx context.Context) {
	if time.Since(c.lastOpen) < openRetryInterval {
		return
	}
	c.lastOpen = time.Now()

	info, err := c.client.DeviceInfo(ctx, c.deviceID)
	if err != nil || info.Broadcaster == "" {
		return
	}
	ch, err := sharedframe.Open(c.deviceID, 0, c.log)
	if err != nil {
		c.logf(logging.Debug, "channel not yet openable", "device", c.deviceID, "error", err)
		return
	}
	c.ch = ch
	c.lastSeen = 0
	c.logf(logging.Info, "attached to shared-frame channel", "device", c.deviceID, "broadcaster", info.Broadcaster)
}

// patternFrame returns one test-pattern frame. Pattern reads self-pace
// at the format's frame rate, so an idle device doesn't spin the host.
func (c *Consumer) patternFrame() (videoformat.VideoFrame, error) {
	return c.pattern.Read()
}

// Stop unregisters the listener and releases the channel handle.
func (c *Consumer) Stop(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		c.logf(logging.Warning, "stop called but consumer isn't running")
		return
	}
	if c.ch != nil {
		c.ch.Close()
		c.ch = nil
	}
	c.pattern.Stop()
	if err := c.client.RemoveListener(ctx, c.deviceID); err != nil {
		c.logf(logging.Warning, "could not remove listener", "device", c.deviceID, "error", err)
	}
	c.running = false
}

func (c *Consumer) logf(level int8, msg string, params ...interface{}) {
	if c.log == nil {
		return
	}
	c.log.Log(level, msg, params...)
}
