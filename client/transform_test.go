/*
NAME
  transform_test.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package client

import (
	"bytes"
	"testing"

	"github.com/ausocean/akvcam/videoformat"
)

func gradientFrame() videoformat.VideoFrame {
	f := videoformat.NewFrame(rgb640())
	for i := range f.Data {
		f.Data[i] = byte(i)
	}
	return f
}

func TestApplyControlsEmptyMapIsIdentity(t *testing.T) {
	f := gradientFrame()
	got := ApplyControls(f, nil)
	if !bytes.Equal(f.Data, got.Data) {
		t.Error("ApplyControls(nil) changed bytes")
	}
}

func TestApplyControlsFlipTwiceIsIdentity(t *testing.T) {
	f := gradientFrame()
	ctrl := map[string]int{"hflip": 1, "vflip": 1}
	got := ApplyControls(ApplyControls(f, ctrl), ctrl)
	if !bytes.Equal(f.Data, got.Data) {
		t.Error("double flip did not restore the frame")
	}
}

func TestApplyControlsSwapTwiceIsIdentity(t *testing.T) {
	f := gradientFrame()
	ctrl := map[string]int{"swap_rgb": 1}
	got := ApplyControls(ApplyControls(f, ctrl), ctrl)
	if !bytes.Equal(f.Data, got.Data) {
		t.Error("double swap_rgb did not restore the frame")
	}
}

func TestScalingFor(t *testing.T) {
	mode, aspect := ScalingFor(map[string]int{"scaling": 1, "aspect_ratio": 2})
	if mode != videoformat.Linear || aspect != videoformat.Expanding {
		t.Errorf("ScalingFor = %v,%v, want Linear,Expanding", mode, aspect)
	}
	mode, aspect = ScalingFor(nil)
	if mode != videoformat.Fast || aspect != videoformat.Ignore {
		t.Errorf("ScalingFor(nil) = %v,%v, want Fast,Ignore", mode, aspect)
	}
}
