/*
NAME
  convert.go

DESCRIPTION
  convert.go implements VideoFrame.Convert, handling every pair in the
  closed pixel-format set via an RGB24 intermediate representation and
  BT.601 limited-range coefficients for YUV<->RGB.

  This is written by hand rather than delegated to a native CV library:
  the broker's testable properties require a
  deterministic, bit-documented round trip within +/-2 per channel, which
  is easiest to guarantee and reason about with an explicit, in-repo
  implementation of the documented coefficients.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package videoformat

// BT.601 limited-range coefficients (Kr=0.299, Kb=0.114).
const (
	kr = 0.299
	kb = 0.114
	kg = 1 - kr - kb
)

func clampByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v + 0.5) // Round-to-nearest.
}

// rgbToYUV converts one RGB triple to limited-range Y, Cb, Cr bytes.
func rgbToYUV(r, g, b byte) (y, u, v byte) {
	rf, gf, bf := float64(r), float64(g), float64(b)
	yf := kr*rf + kg*gf + kb*bf
	uf := (bf-yf)/(2*(1-kb))/255*224 + 128
	vf := (rf-yf)/(2*(1-kr))/255*224 + 128
	yf = yf/255*219 + 16
	return clampByte(yf), clampByte(uf), clampByte(vf)
}

// yuvToRGB converts limited-range Y, Cb, Cr bytes back to an RGB triple.
func yuvToRGB(y, u, v byte) (r, g, b byte) {
	yf := (float64(y) - 16) * 255 / 219
	uf := (float64(u) - 128) * 2 * (1 - kb) * 255 / 224
	vf := (float64(v) - 128) * 2 * (1 - kr) * 255 / 224

	rf := yf + vf
	bf := yf + uf
	gf := (yf - kr*rf - kb*bf) / kg

	return clampByte(rf), clampByte(gf), clampByte(bf)
}

// toRGB24 decodes f into a plain RGB24 VideoFrame regardless of its
// starting pixel format.
func toRGB24(f VideoFrame) VideoFrame {
	w, h := int(f.Format.Width), int(f.Format.Height)
	out := NewFrame(VideoFormat{PixelFormat: RGB24, Width: f.Format.Width, Height: f.Format.Height, FPS: f.Format.FPS})
	dstStride := out.Format.LineSize(0)

	switch f.Format.PixelFormat {
	case RGB24:
		copy(out.Data, f.Data)
	case RGB32:
		srcStride := f.Format.LineSize(0)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				s := y*srcStride + x*4
				d := y*dstStride + x*3
				out.Data[d], out.Data[d+1], out.Data[d+2] = f.Data[s+2], f.Data[s+1], f.Data[s]
			}
		}
	case RGB16:
		srcStride := f.Format.LineSize(0)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				s := y*srcStride + x*2
				v := uint16(f.Data[s]) | uint16(f.Data[s+1])<<8
				r := byte((v>>11)&0x1f) << 3
				g := byte((v>>5)&0x3f) << 2
				b := byte(v&0x1f) << 3
				d := y*dstStride + x*3
				out.Data[d], out.Data[d+1], out.Data[d+2] = r, g, b
			}
		}
	case RGB15:
		srcStride := f.Format.LineSize(0)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				s := y*srcStride + x*2
				v := uint16(f.Data[s]) | uint16(f.Data[s+1])<<8
				r := byte((v>>10)&0x1f) << 3
				g := byte((v>>5)&0x1f) << 3
				b := byte(v&0x1f) << 3
				d := y*dstStride + x*3
				out.Data[d], out.Data[d+1], out.Data[d+2] = r, g, b
			}
		}
	case UYVY422, YUYV422:
		srcStride := f.Format.LineSize(0)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x += 2 {
				s := y*srcStride + x*2
				var y0, y1, u, v byte
				if f.Format.PixelFormat == UYVY422 {
					u, y0, v, y1 = f.Data[s], f.Data[s+1], f.Data[s+2], f.Data[s+3]
				} else {
					y0, u, y1, v = f.Data[s], f.Data[s+1], f.Data[s+2], f.Data[s+3]
				}
				r0, g0, b0 := yuvToRGB(y0, u, v)
				d := y*dstStride + x*3
				out.Data[d], out.Data[d+1], out.Data[d+2] = r0, g0, b0
				if x+1 < w {
					r1, g1, b1 := yuvToRGB(y1, u, v)
					out.Data[d+3], out.Data[d+4], out.Data[d+5] = r1, g1, b1
				}
			}
		}
	case NV12:
		yPlane := f.Plane(0)
		uvPlane := f.Plane(1)
		yStride := f.Format.LineSize(0)
		uvStride := f.Format.LineSize(1)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				lum := yPlane[y*yStride+x]
				u := uvPlane[(y/2)*uvStride+(x/2)*2]
				v := uvPlane[(y/2)*uvStride+(x/2)*2+1]
				r, g, b := yuvToRGB(lum, u, v)
				d := y*dstStride + x*3
				out.Data[d], out.Data[d+1], out.Data[d+2] = r, g, b
			}
		}
	}
	return out
}

// fromRGB24 encodes an RGB24 frame rgb (with dimensions matching target)
// into target's pixel format.
func fromRGB24(rgb VideoFrame, target PixelFormat) VideoFrame {
	w, h := int(rgb.Format.Width), int(rgb.Format.Height)
	out := NewFrame(VideoFormat{PixelFormat: target, Width: rgb.Format.Width, Height: rgb.Format.Height, FPS: rgb.Format.FPS})
	srcStride := rgb.Format.LineSize(0)

	switch target {
	case RGB24:
		copy(out.Data, rgb.Data)
	case RGB32:
		dstStride := out.Format.LineSize(0)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				s := y*srcStride + x*3
				d := y*dstStride + x*4
				out.Data[d], out.Data[d+1], out.Data[d+2], out.Data[d+3] = rgb.Data[s+2], rgb.Data[s+1], rgb.Data[s], 0
			}
		}
	case RGB16:
		dstStride := out.Format.LineSize(0)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				s := y*srcStride + x*3
				r, g, b := rgb.Data[s], rgb.Data[s+1], rgb.Data[s+2]
				v := uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
				d := y*dstStride + x*2
				out.Data[d], out.Data[d+1] = byte(v), byte(v>>8)
			}
		}
	case RGB15:
		dstStride := out.Format.LineSize(0)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				s := y*srcStride + x*3
				r, g, b := rgb.Data[s], rgb.Data[s+1], rgb.Data[s+2]
				v := uint16(r>>3)<<10 | uint16(g>>3)<<5 | uint16(b>>3)
				d := y*dstStride + x*2
				out.Data[d], out.Data[d+1] = byte(v), byte(v>>8)
			}
		}
	case UYVY422, YUYV422:
		dstStride := out.Format.LineSize(0)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x += 2 {
				s := y*srcStride + x*3
				y0, u0, v0 := rgbToYUV(rgb.Data[s], rgb.Data[s+1], rgb.Data[s+2])
				var y1, u1, v1 byte
				if x+1 < w {
					y1, u1, v1 = rgbToYUV(rgb.Data[s+3], rgb.Data[s+4], rgb.Data[s+5])
				} else {
					y1, u1, v1 = y0, u0, v0
				}
				// Average the two chroma samples across the macropixel.
				u := byte((uint16(u0) + uint16(u1)) / 2)
				v := byte((uint16(v0) + uint16(v1)) / 2)
				d := y*dstStride + x*2
				if target == UYVY422 {
					out.Data[d], out.Data[d+1], out.Data[d+2], out.Data[d+3] = u, y0, v, y1
				} else {
					out.Data[d], out.Data[d+1], out.Data[d+2], out.Data[d+3] = y0, u, y1, v
				}
			}
		}
	case NV12:
		yPlane := out.Plane(0)
		uvPlane := out.Plane(1)
		yStride := out.Format.LineSize(0)
		uvStride := out.Format.LineSize(1)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				s := y*srcStride + x*3
				lum, u, v := rgbToYUV(rgb.Data[s], rgb.Data[s+1], rgb.Data[s+2])
				yPlane[y*yStride+x] = lum
				if y%2 == 0 && x%2 == 0 {
					uvPlane[(y/2)*uvStride+(x/2)*2] = u
					uvPlane[(y/2)*uvStride+(x/2)*2+1] = v
				}
			}
		}
	}
	return out
}

// Convert returns a new frame in target pixel format, or an empty frame if
// f is empty, target is not one of the supported tags, or the conversion
// would be degenerate (f.Format and target both invalid).
//
// Convert(f).Format.PixelFormat == f for any supported target f, and
// Convert(frame.Format.PixelFormat) == frame byte-for-byte for RGB-family
// formats (lossless within the family); RGB->YUV->RGB round trips are
// lossy within +/-2 per channel using the BT.601 coefficients above for
// pixels that share one colour with the rest of their chroma block (a
// 2-pixel pair for 4:2:2, a 2x2 block for NV12); finer colour detail is
// lost to chroma subsampling.
func (f VideoFrame) Convert(target PixelFormat) VideoFrame {
	if f.Empty() || !target.Valid() {
		return VideoFrame{}
	}
	if f.Format.PixelFormat == target {
		return f.Clone()
	}
	rgb := toRGB24(f)
	return fromRGB24(rgb, target)
}
