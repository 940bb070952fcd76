/*
NAME
  device_test.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package broker

import (
	"testing"

	"github.com/ausocean/akvcam/internal/akerrors"
	"github.com/ausocean/akvcam/videoformat"
)

func rgb640() videoformat.VideoFormat {
	return videoformat.VideoFormat{
		PixelFormat: videoformat.RGB24,
		Width:       640,
		Height:      480,
		FPS:         videoformat.Fraction{Num: 30, Den: 1},
	}
}

func yuyv320() videoformat.VideoFormat {
	return videoformat.VideoFormat{
		PixelFormat: videoformat.YUYV422,
		Width:       320,
		Height:      240,
		FPS:         videoformat.Fraction{Num: 15, Den: 1},
	}
}

// The deviceState mutators require the caller to hold d.mu; these
// helpers take it the way the broker does.

func start(d *deviceState, peer string, f videoformat.VideoFormat, allowed []videoformat.VideoFormat, direct bool) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.startBroadcast(peer, f, allowed, direct)
}

func stop(d *deviceState, peer string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopBroadcast(peer)
}

func listen(d *deviceState, peer string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addListener(peer)
}

func unlisten(d *deviceState, peer string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.removeListener(peer)
}

// TestSingleBroadcasterInvariant covers the no-two-concurrent-broadcasters
// property: once peer1 holds the device, peer2's StartBroadcast must be
// rejected Busy, and only after peer1 stops can peer2 succeed.
func TestSingleBroadcasterInvariant(t *testing.T) {
	d := newDeviceState("AkVCamera0")
	allowed := []videoformat.VideoFormat{rgb640()}

	changed, err := start(d, "peer1", rgb640(), allowed, false)
	if err != nil || !changed {
		t.Fatalf("peer1 start: changed=%v err=%v", changed, err)
	}

	_, err = start(d, "peer2", rgb640(), allowed, false)
	if akerrors.KindOf(err) != akerrors.Busy {
		t.Fatalf("peer2 start while peer1 active: got kind %v, want Busy", akerrors.KindOf(err))
	}

	if !stop(d, "peer1") {
		t.Fatal("peer1 stop: want changed")
	}
	changed, err = start(d, "peer2", rgb640(), allowed, false)
	if err != nil || !changed {
		t.Fatalf("peer2 start after peer1 stopped: changed=%v err=%v", changed, err)
	}
}

// TestStartBroadcastIdempotentRepeat covers the same-peer-same-format
// no-op path.
func TestStartBroadcastIdempotentRepeat(t *testing.T) {
	d := newDeviceState("AkVCamera0")
	allowed := []videoformat.VideoFormat{rgb640()}

	if _, err := start(d, "peer1", rgb640(), allowed, false); err != nil {
		t.Fatalf("first start: %v", err)
	}
	changed, err := start(d, "peer1", rgb640(), allowed, false)
	if err != nil {
		t.Fatalf("repeat start: %v", err)
	}
	if changed {
		t.Error("repeat start by same peer/format: want changed=false")
	}
}

// TestDirectModeRejectsNonExactFormat covers the direct_mode enforcement
// path: a format that does not appear in the allowed list is rejected
// with InvalidArgument.
func TestDirectModeRejectsNonExactFormat(t *testing.T) {
	d := newDeviceState("AkVCamera0")
	allowed := []videoformat.VideoFormat{rgb640()}

	_, err := start(d, "peer1", yuyv320(), allowed, true)
	if akerrors.KindOf(err) != akerrors.InvalidArgument {
		t.Fatalf("direct_mode, format not in list: got kind %v, want InvalidArgument", akerrors.KindOf(err))
	}
}

func TestDirectModeAcceptsExactFormat(t *testing.T) {
	d := newDeviceState("AkVCamera0")
	allowed := []videoformat.VideoFormat{rgb640()}

	changed, err := start(d, "peer1", rgb640(), allowed, true)
	if err != nil || !changed {
		t.Fatalf("direct_mode exact match: changed=%v err=%v", changed, err)
	}
}

func TestListenerIdempotency(t *testing.T) {
	d := newDeviceState("AkVCamera0")
	if !listen(d, "consumer1") {
		t.Fatal("first addListener: want true")
	}
	if listen(d, "consumer1") {
		t.Error("repeat addListener: want false")
	}
	if !unlisten(d, "consumer1") {
		t.Fatal("first removeListener: want true")
	}
	if unlisten(d, "consumer1") {
		t.Error("repeat removeListener: want false")
	}
}
