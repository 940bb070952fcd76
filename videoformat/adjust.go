/*
NAME
  adjust.go

DESCRIPTION
  adjust.go implements VideoFrame.Adjust: hue, saturation, luminance,
  gamma, contrast and grayscale-forcing, applied in an HSL-ish space on
  the luma channel for YUV formats and on RGB directly for RGB formats.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package videoformat

import "math"

// Adjust returns a new frame with the given color adjustments applied.
// Ranges: hue in [-359,359] degrees, saturation/luminance/
// contrast in [-255,255], gamma in [-255,255] mapped to a multiplier of
// 2^(gamma/128). gray forces chroma to neutral (a grayscale image).
// Out-of-range inputs are clamped to their documented bounds.
func (f VideoFrame) Adjust(hue, saturation, luminance, gamma, contrast int, gray bool) VideoFrame {
	if f.Empty() {
		return f
	}
	hue = clampInt(hue, -359, 359)
	saturation = clampInt(saturation, -255, 255)
	luminance = clampInt(luminance, -255, 255)
	gamma = clampInt(gamma, -255, 255)
	contrast = clampInt(contrast, -255, 255)

	gammaMul := math.Pow(2, float64(gamma)/128)
	contrastMul := 1 + float64(contrast)/255

	switch f.Format.PixelFormat {
	case RGB32, RGB24, RGB16, RGB15:
		rgb := toRGB24(f)
		adjustRGBPlane(rgb.Data, hue, saturation, luminance, gammaMul, contrastMul, gray)
		return rgb.Convert(f.Format.PixelFormat)
	default:
		// YUV/NV12: operate directly on the luma plane for luminance,
		// contrast and gamma; chroma is adjusted for hue/saturation/gray.
		out := f.Clone()
		adjustYUV(out, hue, saturation, luminance, gammaMul, contrastMul, gray)
		return out
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func adjustRGBPlane(data []byte, hue, saturation, luminance int, gammaMul, contrastMul float64, gray bool) {
	for i := 0; i+3 <= len(data); i += 3 {
		r, g, b := float64(data[i]), float64(data[i+1]), float64(data[i+2])
		h, s, l := rgbToHSL(r, g, b)

		if gray {
			s = 0
		} else {
			h = math.Mod(h+float64(hue)+360, 360)
			s = clampFloat(s+float64(saturation)/255, 0, 1)
		}
		l = clampFloat(l+float64(luminance)/255, 0, 1)

		r, g, b = hslToRGB(h, s, l)

		r = applyGammaContrast(r, gammaMul, contrastMul)
		g = applyGammaContrast(g, gammaMul, contrastMul)
		b = applyGammaContrast(b, gammaMul, contrastMul)

		data[i], data[i+1], data[i+2] = clampByte(r), clampByte(g), clampByte(b)
	}
}

func adjustYUV(f VideoFrame, hue, saturation, luminance int, gammaMul, contrastMul float64, gray bool) {
	switch f.Format.PixelFormat {
	case NV12:
		y := f.Plane(0)
		uv := f.Plane(1)
		for i := range y {
			y[i] = adjustLuma(y[i], luminance, gammaMul, contrastMul)
		}
		for i := 0; i+1 < len(uv); i += 2 {
			adjustChroma(&uv[i], &uv[i+1], hue, saturation, gray)
		}
	case UYVY422:
		for i := 0; i+3 < len(f.Data); i += 4 {
			u, y0, v, y1 := &f.Data[i], &f.Data[i+1], &f.Data[i+2], &f.Data[i+3]
			*y0 = adjustLuma(*y0, luminance, gammaMul, contrastMul)
			*y1 = adjustLuma(*y1, luminance, gammaMul, contrastMul)
			adjustChroma(u, v, hue, saturation, gray)
		}
	case YUYV422:
		for i := 0; i+3 < len(f.Data); i += 4 {
			y0, u, y1, v := &f.Data[i], &f.Data[i+1], &f.Data[i+2], &f.Data[i+3]
			*y0 = adjustLuma(*y0, luminance, gammaMul, contrastMul)
			*y1 = adjustLuma(*y1, luminance, gammaMul, contrastMul)
			adjustChroma(u, v, hue, saturation, gray)
		}
	}
}

func adjustLuma(y byte, luminance int, gammaMul, contrastMul float64) byte {
	v := float64(y) + float64(luminance)
	v = applyGammaContrast(v, gammaMul, contrastMul)
	return clampByte(v)
}

// adjustChroma rotates (u,v) around the neutral point (128,128) by hue
// degrees, scales the result by (1+saturation/255), and forces it to
// neutral when gray is set.
func adjustChroma(u, v *byte, hue, saturation int, gray bool) {
	if gray {
		*u, *v = 128, 128
		return
	}
	uf := float64(*u) - 128
	vf := float64(*v) - 128

	rad := float64(hue) * math.Pi / 180
	cosA, sinA := math.Cos(rad), math.Sin(rad)
	nu := uf*cosA - vf*sinA
	nv := uf*sinA + vf*cosA

	scale := 1 + float64(saturation)/255
	nu *= scale
	nv *= scale

	*u = clampByte(nu + 128)
	*v = clampByte(nv + 128)
}

func applyGammaContrast(v float64, gammaMul, contrastMul float64) float64 {
	v = (v/255 - 0.5) * contrastMul
	v = math.Copysign(math.Pow(math.Abs(v)*2, 1/gammaMul)/2, v)
	return (v + 0.5) * 255
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// rgbToHSL converts 0-255 RGB to hue (0-360), saturation (0-1), lightness (0-1).
func rgbToHSL(r, g, b float64) (h, s, l float64) {
	r, g, b = r/255, g/255, b/255
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	l = (max + min) / 2

	if max == min {
		return 0, 0, l
	}

	d := max - min
	if l > 0.5 {
		s = d / (2 - max - min)
	} else {
		s = d / (max + min)
	}

	switch max {
	case r:
		h = math.Mod((g-b)/d, 6)
	case g:
		h = (b-r)/d + 2
	case b:
		h = (r-g)/d + 4
	}
	h *= 60
	if h < 0 {
		h += 360
	}
	return h, s, l
}

// hslToRGB converts hue (0-360), saturation (0-1), lightness (0-1) to
// 0-255 RGB.
func hslToRGB(h, s, l float64) (r, g, b float64) {
	if s == 0 {
		v := l * 255
		return v, v, v
	}

	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r1, g1, b1 float64
	switch {
	case h < 60:
		r1, g1, b1 = c, x, 0
	case h < 120:
		r1, g1, b1 = x, c, 0
	case h < 180:
		r1, g1, b1 = 0, c, x
	case h < 240:
		r1, g1, b1 = 0, x, c
	case h < 300:
		r1, g1, b1 = x, 0, c
	default:
		r1, g1, b1 = c, 0, x
	}
	return (r1 + m) * 255, (g1 + m) * 255, (b1 + m) * 255
}
