/*
NAME
  swap.go

DESCRIPTION
  swap.go implements VideoFrame.SwapRGB, which exchanges the red and blue
  channels of RGB-family frames.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package videoformat

// SwapRGB returns a new frame with the red and blue channels exchanged.
// For RGB-family formats this is its own inverse:
// f.SwapRGB().SwapRGB() == f. For YUV/NV12 formats there is no red/blue
// channel to swap, so SwapRGB returns an unmodified clone.
func (f VideoFrame) SwapRGB() VideoFrame {
	if f.Empty() {
		return f
	}
	switch f.Format.PixelFormat {
	case RGB32:
		return swapPacked(f, 4, 0, 2)
	case RGB24:
		return swapPacked(f, 3, 0, 2)
	case RGB16:
		return swap565(f)
	case RGB15:
		return swap555(f)
	default:
		return f.Clone()
	}
}

// swapPacked swaps byte offsets a and b within each unit-sized pixel.
func swapPacked(f VideoFrame, unit, a, b int) VideoFrame {
	out := NewFrame(f.Format)
	copy(out.Data, f.Data)
	for i := 0; i+unit <= len(out.Data); i += unit {
		out.Data[i+a], out.Data[i+b] = out.Data[i+b], out.Data[i+a]
	}
	return out
}

func swap565(f VideoFrame) VideoFrame {
	out := NewFrame(f.Format)
	for i := 0; i+2 <= len(f.Data); i += 2 {
		v := uint16(f.Data[i]) | uint16(f.Data[i+1])<<8
		r := (v >> 11) & 0x1f
		g := (v >> 5) & 0x3f
		b := v & 0x1f
		v = (b << 11) | (g << 5) | r
		out.Data[i] = byte(v)
		out.Data[i+1] = byte(v >> 8)
	}
	return out
}

func swap555(f VideoFrame) VideoFrame {
	out := NewFrame(f.Format)
	for i := 0; i+2 <= len(f.Data); i += 2 {
		v := uint16(f.Data[i]) | uint16(f.Data[i+1])<<8
		r := (v >> 10) & 0x1f
		g := (v >> 5) & 0x1f
		b := v & 0x1f
		v = (v & 0x8000) | (b << 10) | (g << 5) | r // Keep the unused top bit.
		out.Data[i] = byte(v)
		out.Data[i+1] = byte(v >> 8)
	}
	return out
}
