/*
NAME
  scale.go

DESCRIPTION
  scale.go implements VideoFrame.Scaled, resizing a frame to new
  dimensions under a chosen ScalingMode and AspectRatioMode.
  The resampling itself is delegated to golang.org/x/image/draw, which
  already ships the nearest-neighbor and bilinear kernels needed here;
  only the RGB24 intermediate conversion, letterbox/pillarbox and
  center-crop geometry are implemented here.

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
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// ScalingMode selects the resampling kernel used by Scaled.
type ScalingMode int

const (
	// Fast selects nearest-neighbor resampling.
	Fast ScalingMode = iota
	// Linear selects bilinear resampling.
	Linear
)

// AspectRatioMode selects how Scaled handles a target aspect ratio that
// differs from the source.
type AspectRatioMode int

const (
	// Ignore stretches the source to exactly fill the target dimensions.
	Ignore AspectRatioMode = iota
	// Keep preserves aspect ratio, letterboxing/pillarboxing with black.
	Keep
	// Expanding preserves aspect ratio by center-cropping to fill the
	// target dimensions with no borders.
	Expanding
)

// Scaled returns a new frame resized to w x h, in the same pixel format as
// f, using the given ScalingMode and AspectRatioMode. Invalid inputs (zero
// w or h, an empty source frame) yield an empty frame.
func (f VideoFrame) Scaled(w, h int, mode ScalingMode, aspect AspectRatioMode) VideoFrame {
	if f.Empty() || w <= 0 || h <= 0 {
		return VideoFrame{}
	}

	rgb := toRGB24(f)
	srcImg := toStdImage(rgb)

	var dstImg *image.RGBA
	switch aspect {
	case Ignore:
		dstImg = resize(srcImg, w, h, mode)
	case Keep:
		dstImg = scaleKeepAspect(srcImg, w, h, mode, false)
	case Expanding:
		dstImg = scaleKeepAspect(srcImg, w, h, mode, true)
	default:
		dstImg = resize(srcImg, w, h, mode)
	}

	scaled := fromStdImage(dstImg, rgb.Format.FPS)
	return scaled.Convert(f.Format.PixelFormat)
}

func resize(src image.Image, w, h int, mode ScalingMode) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	kernel := scaleKernel(mode)
	kernel.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

func scaleKernel(mode ScalingMode) xdraw.Scaler {
	if mode == Linear {
		return xdraw.BiLinear
	}
	return xdraw.NearestNeighbor
}

// scaleKeepAspect scales src to fit within w x h while preserving aspect
// ratio. When expand is false the result is letterboxed/pillarboxed with
// black bars (Keep). When expand is true the source is scaled to cover
// w x h and then center-cropped (Expanding).
func scaleKeepAspect(src image.Image, w, h int, mode ScalingMode, expand bool) *image.RGBA {
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw == 0 || sh == 0 {
		return image.NewRGBA(image.Rect(0, 0, w, h))
	}

	srcRatio := float64(sw) / float64(sh)
	dstRatio := float64(w) / float64(h)

	var scaledW, scaledH int
	fits := srcRatio > dstRatio
	if expand {
		fits = !fits
	}
	if fits {
		scaledW = w
		scaledH = int(float64(w) / srcRatio)
	} else {
		scaledH = h
		scaledW = int(float64(h) * srcRatio)
	}
	if scaledW < 1 {
		scaledW = 1
	}
	if scaledH < 1 {
		scaledH = 1
	}

	resized := resize(src, scaledW, scaledH, mode)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	if expand {
		// Center-crop the oversized resized image into dst.
		srcX := (scaledW - w) / 2
		srcY := (scaledH - h) / 2
		srcRect := image.Rect(srcX, srcY, srcX+w, srcY+h)
		draw.Draw(dst, dst.Bounds(), resized, srcRect.Min, draw.Src)
		return dst
	}

	// Center the smaller resized image within dst, leaving black borders.
	offX := (w - scaledW) / 2
	offY := (h - scaledH) / 2
	destRect := image.Rect(offX, offY, offX+scaledW, offY+scaledH)
	draw.Draw(dst, destRect, resized, image.Point{}, draw.Src)
	return dst
}

func toStdImage(rgb VideoFrame) *image.RGBA {
	w, h := int(rgb.Format.Width), int(rgb.Format.Height)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	stride := rgb.Format.LineSize(0)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s := y*stride + x*3
			d := img.PixOffset(x, y)
			img.Pix[d], img.Pix[d+1], img.Pix[d+2], img.Pix[d+3] = rgb.Data[s], rgb.Data[s+1], rgb.Data[s+2], 255
		}
	}
	return img
}

func fromStdImage(img *image.RGBA, fps Fraction) VideoFrame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := NewFrame(VideoFormat{PixelFormat: RGB24, Width: uint32(w), Height: uint32(h), FPS: fps})
	stride := out.Format.LineSize(0)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			d := y*stride + x*3
			out.Data[d], out.Data[d+1], out.Data[d+2] = img.Pix[s], img.Pix[s+1], img.Pix[s+2]
		}
	}
	return out
}
