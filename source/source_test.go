/*
NAME
  source_test.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package source

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ausocean/akvcam/videoformat"
)

func smallFormat() videoformat.VideoFormat {
	return videoformat.VideoFormat{
		PixelFormat: videoformat.RGB24,
		Width:       32,
		Height:      16,
		FPS:         videoformat.Fraction{Num: 1000, Den: 1},
	}
}

func TestManualHandsOffFrames(t *testing.T) {
	m := NewManual(smallFormat())
	if _, err := m.Read(); err == nil {
		t.Error("Read before Start: got nil error, want error")
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	want := videoformat.NewFrame(smallFormat())
	for i := range want.Data {
		want.Data[i] = byte(i)
	}
	go func() { m.Write(want) }()

	got, err := m.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(want.Data, got.Data) {
		t.Error("Read returned different bytes than written")
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := m.Read(); err == nil {
		t.Error("Read after Stop: got nil error, want error")
	}
}

func TestManualStopUnblocksRead(t *testing.T) {
	m := NewManual(smallFormat())
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	errc := make(chan error, 1)
	go func() {
		_, err := m.Read()
		errc <- err
	}()
	m.Stop()
	if err := <-errc; err == nil {
		t.Error("Read during Stop: got nil error, want error")
	}
}

func TestPatternProducesNoiseWithoutPicture(t *testing.T) {
	p := NewPattern(smallFormat(), "")
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f, err := p.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if f.Empty() {
		t.Fatal("Read returned an empty frame")
	}
	if !f.Format.Equal(smallFormat()) {
		t.Errorf("frame format = %v, want %v", f.Format, smallFormat())
	}

	g, err := p.Read()
	if err != nil {
		t.Fatalf("second Read: %v", err)
	}
	if bytes.Equal(f.Data, g.Data) {
		t.Error("consecutive noise frames are identical, want fresh noise")
	}
}

func TestPatternRejectsInvalidFormat(t *testing.T) {
	p := NewPattern(videoformat.VideoFormat{}, "")
	if err := p.Start(); err == nil {
		t.Error("Start with zero format: got nil error, want error")
	}
}

func TestWebcamSetDefaultsBadFields(t *testing.T) {
	w := NewWebcam(nil)
	err := w.Set(WebcamConfig{})
	var me MultiError
	if !errors.As(err, &me) {
		t.Fatalf("Set(zero config): got %T, want MultiError", err)
	}
	if len(me) != 5 {
		t.Errorf("MultiError length = %d, want 5 defaulted fields", len(me))
	}

	got := w.Format()
	want := videoformat.VideoFormat{
		PixelFormat: videoformat.RGB24,
		Width:       defaultWidth,
		Height:      defaultHeight,
		FPS:         videoformat.Fraction{Num: defaultFrameRate, Den: 1},
	}
	if !got.Equal(want) {
		t.Errorf("defaulted format = %v, want %v", got, want)
	}
}
