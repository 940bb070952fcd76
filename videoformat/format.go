/*
NAME
  format.go

DESCRIPTION
  format.go defines the closed set of pixel formats supported by the
  broker and the VideoFormat type that describes a negotiated frame shape.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package videoformat provides the pixel formats, frame buffers and pure
// transformations (mirror, swap, adjust, scale, convert) that make up the
// frame model shared by the broker, producer and consumer sides of akvcam.
package videoformat

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// PixelFormat is one of the closed set of pixel layouts the broker
// understands. Values are part of the shared-frame wire format
// and must not be renumbered.
type PixelFormat uint32

// The supported pixel format tags, stable across the wire.
const (
	RGB32 PixelFormat = 0x00000001 // BGRX, 4 bytes packed.
	RGB24 PixelFormat = 0x00000002 // 3 bytes packed.
	RGB16 PixelFormat = 0x00000003 // 565, 2 bytes packed.
	RGB15 PixelFormat = 0x00000004 // 555, 2 bytes packed.

	UYVY422 PixelFormat = 0x00000010 // 2 bytes packed, 2:1 horizontal chroma.
	YUYV422 PixelFormat = 0x00000011 // 2 bytes packed, 2:1 horizontal chroma.

	NV12 PixelFormat = 0x00000020 // biplanar, Y full + interleaved UV half.
)

// String returns the canonical name used in preferences files and logs.
func (p PixelFormat) String() string {
	switch p {
	case RGB32:
		return "RGB32"
	case RGB24:
		return "RGB24"
	case RGB16:
		return "RGB16"
	case RGB15:
		return "RGB15"
	case UYVY422:
		return "UYVY422"
	case YUYV422:
		return "YUYV422"
	case NV12:
		return "NV12"
	default:
		return fmt.Sprintf("PixelFormat(0x%08x)", uint32(p))
	}
}

// ParsePixelFormat parses the canonical name produced by String back into a
// PixelFormat. An unrecognised name yields ok=false.
func ParsePixelFormat(s string) (p PixelFormat, ok bool) {
	switch s {
	case "RGB32":
		return RGB32, true
	case "RGB24":
		return RGB24, true
	case "RGB16":
		return RGB16, true
	case "RGB15":
		return RGB15, true
	case "UYVY422":
		return UYVY422, true
	case "YUYV422":
		return YUYV422, true
	case "NV12":
		return NV12, true
	default:
		return 0, false
	}
}

// Valid reports whether p is one of the supported pixel format tags.
func (p PixelFormat) Valid() bool {
	switch p {
	case RGB32, RGB24, RGB16, RGB15, UYVY422, YUYV422, NV12:
		return true
	default:
		return false
	}
}

// planes returns how many planes p stores its samples in: one packed
// plane for everything but NV12's Y + interleaved UV pair.
func (p PixelFormat) planes() int {
	if p == NV12 {
		return 2
	}
	return 1
}

// Fraction is a rational number num/den, used for frame rates.
type Fraction struct {
	Num uint32
	Den uint32
}

// Valid reports whether f is a usable frame rate.
func (f Fraction) Valid() bool {
	return f.Num >= 1 && f.Den >= 1
}

// Float64 returns f as a float64, or 0 if f.Den is 0.
func (f Fraction) Float64() float64 {
	if f.Den == 0 {
		return 0
	}
	return float64(f.Num) / float64(f.Den)
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}

// VideoFormat describes a negotiated frame shape: pixel layout, dimensions
// and frame rate.
type VideoFormat struct {
	PixelFormat PixelFormat
	Width       uint32
	Height      uint32
	FPS         Fraction
}

// Valid reports whether f is usable: width >= 1,
// height >= 1 and a valid FPS and PixelFormat.
func (f VideoFormat) Valid() bool {
	return f.Width >= 1 && f.Height >= 1 && f.FPS.Valid() && f.PixelFormat.Valid()
}

// Equal reports whether f and g describe the same format.
func (f VideoFormat) Equal(g VideoFormat) bool {
	return f == g
}

func (f VideoFormat) String() string {
	return fmt.Sprintf("%s %dx%d@%s", f.PixelFormat, f.Width, f.Height, f.FPS)
}

// BPP returns the bytes-per-pixel for f's pixel format. For NV12 this is
// the luma plane's 1 byte/px only; the chroma plane is not counted (use
// TotalSize for the full frame size).
func (f VideoFormat) BPP() int {
	switch f.PixelFormat {
	case RGB32:
		return 4
	case RGB24:
		return 3
	case RGB16, RGB15, UYVY422, YUYV422:
		return 2
	case NV12:
		return 1 // Luma plane is 1 byte/px; chroma is accounted separately.
	default:
		return 0
	}
}

// LineSize returns the stride in bytes of the given plane (0-based).
// Invalid formats or plane indices return 0.
func (f VideoFormat) LineSize(plane int) int {
	if !f.Valid() || plane < 0 || plane >= f.PixelFormat.planes() {
		return 0
	}
	w := int(f.Width)
	switch f.PixelFormat {
	case RGB32:
		return w * 4
	case RGB24:
		return w * 3
	case RGB16, RGB15, UYVY422, YUYV422:
		return w * 2
	case NV12:
		if plane == 0 {
			return w
		}
		return w // Interleaved UV plane, same stride as luma, half the rows.
	default:
		return 0
	}
}

// PlaneOffset returns the byte offset of the given plane's first sample
// within the frame's data buffer.
func (f VideoFormat) PlaneOffset(plane int) int {
	if !f.Valid() || plane < 0 || plane >= f.PixelFormat.planes() {
		return 0
	}
	if plane == 0 {
		return 0
	}
	// Only NV12 has a second plane: the luma plane is Height rows of
	// LineSize(0).
	return f.LineSize(0) * int(f.Height)
}

// PlaneSize returns the total byte size of the given plane.
func (f VideoFormat) PlaneSize(plane int) int {
	if !f.Valid() || plane < 0 || plane >= f.PixelFormat.planes() {
		return 0
	}
	if f.PixelFormat == NV12 {
		if plane == 0 {
			return f.LineSize(0) * int(f.Height)
		}
		// Interleaved U/V at half vertical resolution.
		return f.LineSize(1) * (int(f.Height) / 2)
	}
	return f.LineSize(0) * int(f.Height)
}

// TotalSize returns the total size in bytes of a frame buffer for f.
func (f VideoFormat) TotalSize() int {
	if !f.Valid() {
		return 0
	}
	total := 0
	for p := 0; p < f.PixelFormat.planes(); p++ {
		total += f.PlaneSize(p)
	}
	return total
}

// RoundNearest rounds width to the nearest multiple of align (default 32
// when align <= 0), the usual horizontal alignment capture hardware and
// host plugins expect. Height is returned unchanged.
func RoundNearest(width, height int, align int) (ow, oh int) {
	if align <= 0 {
		align = 32
	}
	if width < align {
		return width, height
	}
	return ((width + align/2) / align) * align, height
}

// Nearest returns the candidate in candidates that minimises a Euclidean-like
// distance over (width, height, fps) to f. Ties are broken by order in
// candidates (first wins). Nearest([]VideoFormat{f}) == f for any valid f.
// Returns the zero VideoFormat if candidates is empty.
func (f VideoFormat) Nearest(candidates []VideoFormat) VideoFormat {
	if len(candidates) == 0 {
		return VideoFormat{}
	}
	a := []float64{float64(f.Width), float64(f.Height), f.FPS.Float64()}
	best := candidates[0]
	bestDist := math.Inf(1)
	for _, c := range candidates {
		b := []float64{float64(c.Width), float64(c.Height), c.FPS.Float64()}
		d := floats.Distance(a, b, 2)
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}
