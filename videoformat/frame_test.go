/*
NAME
  frame_test.go

DESCRIPTION
  frame_test.go tests the pure-transform invariants of VideoFrame:
  mirror and swap-rgb involution, and RGB<->YUV convert round-trip
  tolerance.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package videoformat

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func randomFrame(pf PixelFormat, w, h uint32, seed int64) VideoFrame {
	f := NewFrame(VideoFormat{PixelFormat: pf, Width: w, Height: h, FPS: Fraction{30, 1}})
	r := rand.New(rand.NewSource(seed))
	r.Read(f.Data)
	return f
}

func TestMirrorInvolution(t *testing.T) {
	for _, pf := range []PixelFormat{RGB32, RGB24, RGB16, RGB15, UYVY422, YUYV422, NV12} {
		f := randomFrame(pf, 16, 8, 1)
		for _, hv := range [][2]bool{{true, false}, {false, true}, {true, true}} {
			got := f.Mirror(hv[0], hv[1]).Mirror(hv[0], hv[1])
			if diff := cmp.Diff(f, got); diff != "" {
				t.Errorf("%v mirror(%v,%v) not involutive (-want +got):\n%s", pf, hv[0], hv[1], diff)
			}
		}
	}
}

func TestSwapRGBInvolution(t *testing.T) {
	for _, pf := range []PixelFormat{RGB32, RGB24, RGB16, RGB15} {
		f := randomFrame(pf, 16, 8, 2)
		got := f.SwapRGB().SwapRGB()
		if diff := cmp.Diff(f, got); diff != "" {
			t.Errorf("%v swap_rgb not involutive (-want +got):\n%s", pf, diff)
		}
	}
}

func TestConvertSameFormatIdentity(t *testing.T) {
	for _, pf := range []PixelFormat{RGB32, RGB24, RGB16, RGB15, UYVY422, YUYV422, NV12} {
		f := randomFrame(pf, 16, 8, 3)
		got := f.Convert(pf)
		if diff := cmp.Diff(f, got); diff != "" {
			t.Errorf("%v convert(self) changed bytes (-want +got):\n%s", pf, diff)
		}
	}
}

func TestConvertSetsTargetFormat(t *testing.T) {
	f := randomFrame(RGB24, 16, 8, 4)
	got := f.Convert(NV12)
	if got.Format.PixelFormat != NV12 {
		t.Errorf("Convert(NV12).Format.PixelFormat = %v, want NV12", got.Format.PixelFormat)
	}
}

func TestConvertRGBYUVRoundTrip(t *testing.T) {
	f := randomFrame(RGB24, 16, 8, 5)
	// NV12 keeps one chroma sample per 2x2 block, so give every pixel of a
	// block the colour of the block's top-left pixel.
	stride := f.Format.LineSize(0)
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			copy(f.Data[y*stride+x*3:y*stride+x*3+3], f.Data[(y&^1)*stride+(x&^1)*3:])
		}
	}
	roundTripped := f.Convert(NV12).Convert(RGB24)
	if len(roundTripped.Data) != len(f.Data) {
		t.Fatalf("round trip length mismatch: got %d, want %d", len(roundTripped.Data), len(f.Data))
	}
	for i := range f.Data {
		diff := int(f.Data[i]) - int(roundTripped.Data[i])
		if diff < 0 {
			diff = -diff
		}
		if diff > 2 {
			t.Errorf("byte %d: round trip diverged by %d (> 2): got %d, want ~%d", i, diff, roundTripped.Data[i], f.Data[i])
		}
	}
}

func TestScaledProducesRequestedDimensions(t *testing.T) {
	f := randomFrame(RGB24, 64, 32, 6)
	for _, mode := range []ScalingMode{Fast, Linear} {
		for _, aspect := range []AspectRatioMode{Ignore, Keep, Expanding} {
			got := f.Scaled(32, 32, mode, aspect)
			if got.Format.Width != 32 || got.Format.Height != 32 {
				t.Errorf("mode=%v aspect=%v: Scaled dims = %dx%d, want 32x32", mode, aspect, got.Format.Width, got.Format.Height)
			}
			if got.Format.PixelFormat != RGB24 {
				t.Errorf("mode=%v aspect=%v: Scaled format = %v, want RGB24", mode, aspect, got.Format.PixelFormat)
			}
		}
	}
}

func TestAdjustGrayNeutralisesChroma(t *testing.T) {
	f := randomFrame(UYVY422, 16, 8, 7)
	got := f.Adjust(0, 0, 0, 0, 0, true)
	for i := 0; i+3 < len(got.Data); i += 4 {
		if got.Data[i] != 128 || got.Data[i+2] != 128 {
			t.Errorf("adjust(gray=true) left non-neutral chroma at %d: u=%d v=%d", i, got.Data[i], got.Data[i+2])
		}
	}
}

func TestEmptyFrameTransformsAreEmpty(t *testing.T) {
	var f VideoFrame
	if !f.Mirror(true, false).Empty() {
		t.Error("Mirror of empty frame should be empty")
	}
	if !f.Convert(RGB24).Empty() {
		t.Error("Convert of empty frame should be empty")
	}
	if !f.Scaled(10, 10, Fast, Ignore).Empty() {
		t.Error("Scaled of empty frame should be empty")
	}
}
