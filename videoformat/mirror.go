/*
NAME
  mirror.go

DESCRIPTION
  mirror.go implements VideoFrame.Mirror, a pure byte/plane reorder with no
  format conversion.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package videoformat

// Mirror returns a new frame flipped horizontally (h), vertically (v), or
// both. Mirror never converts pixel format; it only reorders bytes/rows.
// Mirror(h,v).Mirror(h,v) == the receiver for any h, v (involution).
func (f VideoFrame) Mirror(h, v bool) VideoFrame {
	if f.Empty() || (!h && !v) {
		return f.Clone()
	}
	out := NewFrame(f.Format)
	for plane := 0; plane < f.Format.PixelFormat.planes(); plane++ {
		mirrorPlane(f, out, plane, h, v)
	}
	return out
}

func mirrorPlane(src, dst VideoFrame, plane int, h, v bool) {
	srcPlane := src.Plane(plane)
	dstPlane := dst.Plane(plane)
	if srcPlane == nil || dstPlane == nil {
		return
	}
	stride := src.Format.LineSize(plane)
	if stride == 0 {
		return
	}
	rows := len(srcPlane) / stride
	unit := pixelUnit(src.Format.PixelFormat, plane)

	for y := 0; y < rows; y++ {
		srcY := y
		if v {
			srcY = rows - 1 - y
		}
		srcRow := srcPlane[srcY*stride : srcY*stride+stride]
		dstRow := dstPlane[y*stride : y*stride+stride]
		if !h {
			copy(dstRow, srcRow)
			continue
		}
		mirrorRow(dstRow, srcRow, unit)
	}
}

// mirrorRow reverses row in unit-sized groups (e.g. 4 bytes for a YUV 4:2:2
// macropixel, 3/4 bytes for a packed RGB pixel) so that chroma
// subsampled formats aren't torn apart byte-by-byte.
func mirrorRow(dst, src []byte, unit int) {
	n := len(src) / unit
	for i := 0; i < n; i++ {
		srcOff := i * unit
		dstOff := (n - 1 - i) * unit
		copy(dst[dstOff:dstOff+unit], src[srcOff:srcOff+unit])
	}
}

// pixelUnit returns the number of bytes that make up one horizontally
// mirrorable unit for the given plane: one full pixel for packed RGB
// formats, one 2-pixel macropixel for 4:2:2 YUV formats (each macropixel
// carries shared chroma for two luma samples and must be swapped as a
// whole), one byte for NV12's luma plane and one 2-byte U,V pair for its
// interleaved chroma plane.
func pixelUnit(p PixelFormat, plane int) int {
	switch p {
	case RGB32:
		return 4
	case RGB24:
		return 3
	case RGB16, RGB15:
		return 2
	case UYVY422, YUYV422:
		return 4 // One U,Y0,V,Y1 (or Y0,U,Y1,V) macropixel.
	case NV12:
		if plane == 0 {
			return 1
		}
		return 2 // Interleaved U,V pair.
	default:
		return 1
	}
}
