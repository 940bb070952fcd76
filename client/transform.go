/*
NAME
  transform.go

DESCRIPTION
  transform.go maps a device's control values onto the frame transforms
  they select, so a consumer can render flips, scaling policy, RGB swap
  and color adjustments locally. Devices in direct mode deliver
  byte-identical payloads; callers must not apply these transforms there.

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

import "github.com/ausocean/akvcam/videoformat"

// ApplyControls returns f with the transforms selected by controls
// applied: hflip/vflip, swap_rgb, then the hue/saturation/luminance/
// gamma/contrast/gray adjustment. Unknown keys are ignored; an empty map
// returns f unchanged.
func ApplyControls(f videoformat.VideoFrame, controls map[string]int) videoformat.VideoFrame {
	if f.Empty() || len(controls) == 0 {
		return f
	}

	if controls["hflip"] != 0 || controls["vflip"] != 0 {
		f = f.Mirror(controls["hflip"] != 0, controls["vflip"] != 0)
	}
	if controls["swap_rgb"] != 0 {
		f = f.SwapRGB()
	}

	hue := controls["hue"]
	saturation := controls["saturation"]
	luminance := controls["luminance"]
	gamma := controls["gamma"]
	contrast := controls["contrast"]
	gray := controls["gray"] != 0
	if hue != 0 || saturation != 0 || luminance != 0 || gamma != 0 || contrast != 0 || gray {
		f = f.Adjust(hue, saturation, luminance, gamma, contrast, gray)
	}
	return f
}

// ScalingFor maps the scaling and aspect_ratio control values to the
// frame-model modes a consumer passes to Scaled.
func ScalingFor(controls map[string]int) (videoformat.ScalingMode, videoformat.AspectRatioMode) {
	mode := videoformat.Fast
	if controls["scaling"] == 1 {
		mode = videoformat.Linear
	}
	aspect := videoformat.Ignore
	switch controls["aspect_ratio"] {
	case 1:
		aspect = videoformat.Keep
	case 2:
		aspect = videoformat.Expanding
	}
	return mode, aspect
}
