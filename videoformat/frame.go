/*
NAME
  frame.go

DESCRIPTION
  frame.go provides VideoFrame, a value type pairing a VideoFormat with its
  pixel data, and constructors including a BMP/PNG/JPEG file loader used for
  the picture overlay.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package videoformat

import (
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
)

// VideoFrame is a value type pairing a VideoFormat with the raw bytes of a
// frame in that format. Ownership is exclusive; copies must be explicit via
// Clone.
type VideoFrame struct {
	Format VideoFormat
	Data   []byte
}

// Empty reports whether f carries no usable data. Invalid inputs to any
// transform yield an empty frame rather than a panic or error.
func (f VideoFrame) Empty() bool {
	return !f.Format.Valid() || len(f.Data) != f.Format.TotalSize()
}

// NewFrame allocates a zeroed VideoFrame for format, or an empty VideoFrame
// if format is invalid.
func NewFrame(format VideoFormat) VideoFrame {
	if !format.Valid() {
		return VideoFrame{}
	}
	return VideoFrame{Format: format, Data: make([]byte, format.TotalSize())}
}

// Clone returns an independent deep copy of f.
func (f VideoFrame) Clone() VideoFrame {
	if f.Empty() {
		return VideoFrame{}
	}
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	return VideoFrame{Format: f.Format, Data: data}
}

// Plane returns the byte slice of the given plane within f's data, or nil
// if f is empty or plane is out of range.
func (f VideoFrame) Plane(plane int) []byte {
	if f.Empty() {
		return nil
	}
	off := f.Format.PlaneOffset(plane)
	size := f.Format.PlaneSize(plane)
	if size == 0 || off+size > len(f.Data) {
		return nil
	}
	return f.Data[off : off+size]
}

// FrameFromFile loads a still image from path and converts it to a
// VideoFrame in the RGB24 pixel format at the image's native dimensions.
// BMP-class uncompressed bitmaps are decoded directly via x/image/bmp; PNG
// and JPEG are supported as a thin wrapper over the standard library, per
// the package's non-goal of not providing a full color-managed picture
// pipeline. An unreadable or undecodable file yields an empty frame, never
// an error: callers treat the picture overlay as optional.
func FrameFromFile(path string) VideoFrame {
	f, err := os.Open(path)
	if err != nil {
		return VideoFrame{}
	}
	defer f.Close()

	img, err := decodeImage(f, path)
	if err != nil {
		return VideoFrame{}
	}
	return fromImage(img)
}

func decodeImage(f *os.File, path string) (image.Image, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bmp":
		return bmp.Decode(f)
	case ".png":
		return png.Decode(f)
	case ".jpg", ".jpeg":
		return jpeg.Decode(f)
	default:
		// Fall back to format sniffing for files without a recognised
		// extension.
		img, _, err := image.Decode(f)
		return img, err
	}
}

// fromImage converts a decoded standard-library image into an RGB24
// VideoFrame, packing bytes in R,G,B order per scanline.
func fromImage(img image.Image) VideoFrame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return VideoFrame{}
	}
	format := VideoFormat{PixelFormat: RGB24, Width: uint32(w), Height: uint32(h), FPS: Fraction{1, 1}}
	frame := NewFrame(format)
	stride := format.LineSize(0)
	for y := 0; y < h; y++ {
		row := frame.Data[y*stride : y*stride+stride]
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			row[x*3+0] = byte(r >> 8)
			row[x*3+1] = byte(g >> 8)
			row[x*3+2] = byte(bl >> 8)
		}
	}
	return frame
}
