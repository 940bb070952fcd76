/*
NAME
  device.go

DESCRIPTION
  device.go implements per-device runtime state and the Idle/Broadcasting
  state machine: single-broadcaster enforcement, listener
  set management, and the per-device lock that serializes StartBroadcast,
  StopBroadcast and peer-death transitions into a total order.

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
	"sync"

	"github.com/ausocean/akvcam/internal/akerrors"
	"github.com/ausocean/akvcam/videoformat"
)

// deviceState is one device's live coordination state. The persistent
// fields (description, formats, controls, direct_mode) live in the
// preferences store; deviceState holds only what exists while the
// service is running.
//
// mu serializes both the state transitions and the notification
// emission that announces them: a transition's BroadcastingChanged /
// ListenerAdded / ListenerRemoved must be emitted before mu is
// released, so the order peers observe matches the order transitions
// committed in.
type deviceState struct {
	mu          sync.Mutex
	id          string
	broadcaster string // Peer id of the current broadcaster, "" if idle.
	format      videoformat.VideoFormat
	listeners   map[string]struct{}
}

func newDeviceState(id string) *deviceState {
	return &deviceState{id: id, listeners: map[string]struct{}{}}
}

// startBroadcast attempts the Idle -> Broadcasting transition for peer on
// this device with the given format, validated against allowed (the
// device's current preferences-store format list) and directMode. It
// returns akerrors.Busy if another peer already broadcasts, whatever its
// format, and is a no-op success if peer repeats its own current format.
// The caller must hold d.mu and, on changed, emit BroadcastingChanged
// before releasing it.
func (d *deviceState) startBroadcast(peer string, format videoformat.VideoFormat, allowed []videoformat.VideoFormat, directMode bool) (changed bool, err error) {
	if d.broadcaster == peer && d.format.Equal(format) {
		return false, nil // Idempotent repeat.
	}
	if d.broadcaster != "" && d.broadcaster != peer {
		return false, akerrors.New(akerrors.Busy, "device already has a broadcaster")
	}

	if !formatAllowed(format, allowed) {
		return false, akerrors.New(akerrors.InvalidArgument, "format not in device's format list")
	}
	if directMode && !formatExact(format, allowed) {
		return false, akerrors.New(akerrors.Unsupported, "direct_mode requires an exact listed format")
	}

	d.broadcaster = peer
	d.format = format
	return true, nil
}

// stopBroadcast attempts the Broadcasting -> Idle transition, releasing
// peer as broadcaster if it currently holds that role. No-op if peer is
// not the current broadcaster (covers both "already idle" and "some
// other peer" — neither warrants an error on stop/peer-death). The
// caller must hold d.mu and, on changed, emit BroadcastingChanged
// before releasing it.
func (d *deviceState) stopBroadcast(peer string) (changed bool) {
	if d.broadcaster != peer {
		return false
	}
	d.broadcaster = ""
	d.format = videoformat.VideoFormat{}
	return true
}

// addListener registers peer as a listener. Returns false if peer was
// already listening (AddListener on an existing listener is a no-op
// success). The caller must hold d.mu.
func (d *deviceState) addListener(peer string) bool {
	if _, ok := d.listeners[peer]; ok {
		return false
	}
	d.listeners[peer] = struct{}{}
	return true
}

// removeListener unregisters peer. Returns false if peer wasn't
// listening. The caller must hold d.mu.
func (d *deviceState) removeListener(peer string) bool {
	if _, ok := d.listeners[peer]; !ok {
		return false
	}
	delete(d.listeners, peer)
	return true
}

// snapshot returns the broadcaster and listener count under lock, for
// DeviceInfo replies.
func (d *deviceState) snapshot() (broadcaster string, listenerCount int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.broadcaster, len(d.listeners)
}

func formatAllowed(f videoformat.VideoFormat, allowed []videoformat.VideoFormat) bool {
	if len(allowed) == 0 {
		return true // No formats declared yet: accept the producer's first offer.
	}
	for _, a := range allowed {
		if a.Equal(f) {
			return true
		}
	}
	return false
}

func formatExact(f videoformat.VideoFormat, allowed []videoformat.VideoFormat) bool {
	for _, a := range allowed {
		if a.Equal(f) {
			return true
		}
	}
	return false
}
