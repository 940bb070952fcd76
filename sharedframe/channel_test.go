/*
NAME
  channel_test.go

DESCRIPTION
  channel_test.go exercises one producer and one consumer over a real
  named slot: write/read round trip, sequence monotonicity, spurious-wake
  rejection and bounded read timeouts.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package sharedframe

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/ausocean/akvcam/internal/akerrors"
	"github.com/ausocean/akvcam/videoformat"
)

func testFormat() videoformat.VideoFormat {
	return videoformat.VideoFormat{
		PixelFormat: videoformat.RGB24,
		Width:       64,
		Height:      48,
		FPS:         videoformat.Fraction{Num: 30, Den: 1},
	}
}

// newPair creates a producer channel and attaches a consumer to it, with
// a unique device id per test to keep parallel runs apart.
func newPair(t *testing.T) (*Channel, *Channel) {
	t.Helper()
	device := fmt.Sprintf("test-%s-%d", t.Name(), time.Now().UnixNano())
	prod, err := Create(device, testFormat().TotalSize(), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { prod.Destroy() })

	cons, err := Open(device, 0, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { cons.Close() })
	return prod, cons
}

func markerFrame(b byte) videoformat.VideoFrame {
	f := videoformat.NewFrame(testFormat())
	for i := range f.Data {
		f.Data[i] = b
	}
	return f
}

func TestWriteReadRoundTrip(t *testing.T) {
	prod, cons := newPair(t)

	want := markerFrame(0x7F)
	if err := prod.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, seq, err := cons.Read(time.Second, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if seq != 1 {
		t.Errorf("first sequence = %d, want 1", seq)
	}
	if !got.Format.Equal(want.Format) {
		t.Errorf("read format = %v, want %v", got.Format, want.Format)
	}
	if !bytes.Equal(got.Data, want.Data) {
		t.Error("read payload differs from written payload")
	}
}

func TestSequencesStrictlyIncrease(t *testing.T) {
	prod, cons := newPair(t)

	var last uint64
	for i := 0; i < 5; i++ {
		if err := prod.Write(markerFrame(byte(i))); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
		_, seq, err := cons.Read(time.Second, last)
		if err != nil {
			t.Fatalf("Read %d: %v", i, err)
		}
		if seq <= last {
			t.Fatalf("sequence %d not greater than %d", seq, last)
		}
		last = seq
	}
}

func TestStaleSequenceRejected(t *testing.T) {
	prod, cons := newPair(t)

	if err := prod.Write(markerFrame(1)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	_, seq, err := cons.Read(time.Second, 0)
	if err != nil {
		t.Fatalf("first Read: %v", err)
	}

	// No new write: the second read must not hand the same frame back.
	_, _, err = cons.Read(50*time.Millisecond, seq)
	if akerrors.KindOf(err) != akerrors.Timeout {
		t.Errorf("re-read without new frame: got kind %v, want Timeout", akerrors.KindOf(err))
	}
}

func TestReadTimesOutWithoutProducer(t *testing.T) {
	_, cons := newPair(t)

	start := time.Now()
	_, _, err := cons.Read(100*time.Millisecond, 0)
	if akerrors.KindOf(err) != akerrors.Timeout {
		t.Fatalf("Read on silent channel: got kind %v, want Timeout", akerrors.KindOf(err))
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Read blocked %v, want bounded by timeout", elapsed)
	}
}

func TestOversizePayloadTruncated(t *testing.T) {
	device := fmt.Sprintf("test-%s-%d", t.Name(), time.Now().UnixNano())
	small := videoformat.VideoFormat{
		PixelFormat: videoformat.RGB24,
		Width:       8,
		Height:      8,
		FPS:         videoformat.Fraction{Num: 30, Den: 1},
	}
	prod, err := Create(device, small.TotalSize(), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { prod.Destroy() })
	cons, err := Open(device, 0, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { cons.Close() })

	if err := prod.Write(markerFrame(0x55)); err != nil {
		t.Fatalf("Write oversize: %v", err)
	}
	got, _, err := cons.Read(time.Second, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got.Data) > small.TotalSize() {
		t.Errorf("payload length %d exceeds slot capacity %d", len(got.Data), small.TotalSize())
	}
}
