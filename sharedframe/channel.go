/*
NAME
  channel.go

DESCRIPTION
  channel.go implements the producer/consumer hand-off protocol over a
  platform-specific named slot (see channel_unix.go and
  channel_windows.go). The protocol itself — acquire, write/read,
  sequence check, release — is platform-independent and lives here.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package sharedframe

import (
	"fmt"
	"sync"
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/akvcam/internal/akerrors"
	"github.com/ausocean/akvcam/videoformat"
)

// DefaultSlotSize is used when the caller doesn't know the largest format
// up front; it comfortably holds a 1080p NV12 frame plus header.
const DefaultSlotSize = HeaderSize + 1920*1080*2

// controlBlockSize is the size, in bytes, of the platform-private
// bookkeeping header kept at the front of the mapped region, ahead of the
// AKVC frame header: ownerPID(4) writerActive(4) readyGen(4) reserved(4).
const controlBlockSize = 16

// lockTimeout bounds every mutex acquisition so a dead peer can never
// wedge the channel.
const lockTimeout = 1 * time.Second

// platformSlot is the OS-specific half of a channel: a named, mappable
// region plus a named mutex and a ready signal. Implemented by
// channel_unix.go and channel_windows.go.
type platformSlot interface {
	// Lock acquires the slot's mutex within timeout. abandoned reports
	// whether the previous holder died while holding it.
	Lock(timeout time.Duration) (abandoned bool, err error)
	Unlock() error
	// SignalReady wakes any consumers blocked in WaitReady.
	SignalReady() error
	WaitReady(timeout time.Duration) error
	// Bytes returns the mapped slot memory. Valid only while locked.
	Bytes() []byte
	Close() error
	// Unlink removes the named OS object so a later Create starts fresh.
	// Only the owning producer should call this, via Channel.Destroy.
	Unlink() error
}

// slotName derives the OS object name for a device's channel from its
// device_id, so independent processes can open the same channel by name.
func slotName(deviceID string) string {
	return "akvcam-" + deviceID
}

// Channel is one device's shared-frame channel: a single slot, written by
// at most one producer and read by any number of consumers.
type Channel struct {
	deviceID string
	size     int
	slot     platformSlot
	log      logging.Logger

	mu        sync.Mutex // Serializes Write calls from a single producer goroutine set.
	seq       uint64     // Producer-side monotonic sequence.
	truncated bool       // Logged-once guard for oversize payloads.
}

// Create opens (creating if necessary) the shared-frame channel for
// deviceID, sized to hold slotSize bytes of payload plus the header. The
// producer calls this on device_start.
func Create(deviceID string, slotSize int, log logging.Logger) (*Channel, error) {
	if slotSize <= 0 {
		slotSize = DefaultSlotSize
	}
	total := controlBlockSize + HeaderSize + slotSize
	slot, err := newPlatformSlot(slotName(deviceID), total, true)
	if err != nil {
		return nil, akerrors.Wrap(err, akerrors.IO, "create shared-frame channel")
	}
	return &Channel{deviceID: deviceID, size: HeaderSize + slotSize, slot: slot, log: log}, nil
}

// Open attaches to an already-created channel. Consumers call this after
// the broker reports the device is broadcasting. slotSize is the payload
// capacity to map (DefaultSlotSize when <= 0); the unix implementation
// ignores it and maps the whole existing object, while on Windows it sets
// how much of the named mapping is mapped. Open itself does not retry;
// the rate-limited retry loop belongs to the caller.
func Open(deviceID string, slotSize int, log logging.Logger) (*Channel, error) {
	if slotSize <= 0 {
		slotSize = DefaultSlotSize
	}
	total := controlBlockSize + HeaderSize + slotSize
	slot, err := newPlatformSlot(slotName(deviceID), total, false)
	if err != nil {
		return nil, akerrors.Wrap(err, akerrors.NotFound, "open shared-frame channel")
	}
	return &Channel{deviceID: deviceID, slot: slot, size: len(slot.Bytes()), log: log}, nil
}

// Write implements the producer protocol: acquire, write header+payload,
// bump sequence, signal, release. A lock timeout silently drops the
// frame; there is no queue, and a stalled consumer must never stall the
// producer.
func (c *Channel) Write(f videoformat.VideoFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	abandoned, err := c.slot.Lock(lockTimeout)
	if err != nil {
		c.logf(logging.Warning, "dropping frame, mutex acquire timed out", "device", c.deviceID)
		return nil
	}
	defer c.slot.Unlock()

	if abandoned {
		c.logf(logging.Warning, "producer observed abandoned mutex, resetting sequence", "device", c.deviceID)
		c.seq = 0
	}

	buf := c.slot.Bytes()
	payload := f.Data
	capacity := len(buf) - HeaderSize
	truncated := false
	if len(payload) > capacity {
		payload = payload[:capacity]
		truncated = true
	}

	c.seq++
	h := HeaderFor(f, c.seq, time.Now().UnixNano())
	h.PayloadLen = uint32(len(payload))
	h.Encode(buf[:HeaderSize])
	copy(buf[HeaderSize:], payload)

	if truncated && !c.truncated {
		c.truncated = true
		c.logf(logging.Warning, "frame payload exceeds slot capacity, truncating", "device", c.deviceID, "capacity", capacity, "size", len(f.Data))
	}

	return c.slot.SignalReady()
}

// Read implements the consumer protocol: wait for ready, acquire, check
// sequence, copy out, release. Returns akerrors with kind Timeout if
// either wait expires, and Corrupted if the mutex was abandoned.
func (c *Channel) Read(timeout time.Duration, lastSeen uint64) (videoformat.VideoFrame, uint64, error) {
	if err := c.slot.WaitReady(timeout); err != nil {
		return videoformat.VideoFrame{}, lastSeen, akerrors.Wrap(err, akerrors.Timeout, "wait for ready signal")
	}

	abandoned, err := c.slot.Lock(lockTimeout)
	if err != nil {
		return videoformat.VideoFrame{}, lastSeen, akerrors.Wrap(err, akerrors.Timeout, "acquire channel mutex")
	}
	defer c.slot.Unlock()

	if abandoned {
		return videoformat.VideoFrame{}, 0, akerrors.New(akerrors.Corrupted, "producer died holding channel mutex")
	}

	buf := c.slot.Bytes()
	h, err := DecodeHeader(buf[:HeaderSize])
	if err != nil {
		return videoformat.VideoFrame{}, lastSeen, err
	}
	if h.Sequence <= lastSeen {
		return videoformat.VideoFrame{}, lastSeen, akerrors.New(akerrors.Timeout, "spurious wake, no new frame")
	}

	plen := int(h.PayloadLen)
	if plen > len(buf)-HeaderSize {
		return videoformat.VideoFrame{}, lastSeen, akerrors.New(akerrors.Corrupted, "payload length exceeds slot size")
	}

	frame := videoformat.NewFrame(h.videoFormat())
	n := copy(frame.Data, buf[HeaderSize:HeaderSize+plen])
	frame.Data = frame.Data[:n]
	return frame, h.Sequence, nil
}

// Close releases this process's handle on the channel without removing
// the underlying named object. Both producers and consumers call this
// when they're done, typically via defer.
func (c *Channel) Close() error {
	return c.slot.Close()
}

// Destroy unlinks the channel's named OS object. Only the producer that
// created it should call this, on device_stop or before re-creating the
// channel after a crash. Unlink happens on producer StopBroadcast and on
// broker-detected peer death; no other path removes the object.
func (c *Channel) Destroy() error {
	if err := c.slot.Unlink(); err != nil {
		return akerrors.Wrap(err, akerrors.IO, "unlink shared-frame channel")
	}
	return c.Close()
}

func (c *Channel) logf(level int8, msg string, params ...interface{}) {
	if c.log == nil {
		return
	}
	c.log.Log(level, msg, params...)
}

// Name returns the OS object name backing this channel, for diagnostics.
func (c *Channel) Name() string {
	return fmt.Sprintf("%s (%s)", c.deviceID, slotName(c.deviceID))
}
