/*
DESCRIPTION
  pattern.go provides Pattern, the test-pattern Source a consumer renders
  locally while a device has no broadcaster: the configured picture
  overlay when it decodes, random noise when it doesn't.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package source

import (
	"errors"
	"math/rand"
	"time"

	"github.com/ausocean/akvcam/videoformat"
)

// Pattern is a Source generating a test pattern at a fixed format. If
// PicturePath names a decodable image it is scaled once and returned for
// every Read; otherwise each Read produces a fresh noise frame.
type Pattern struct {
	format      videoformat.VideoFormat
	picturePath string

	overlay   videoformat.VideoFrame
	rng       *rand.Rand
	lastRead  time.Time
	isRunning bool
}

// NewPattern provides a new Pattern producing frames of the given format
// from the picture at picturePath, which may be empty.
func NewPattern(format videoformat.VideoFormat, picturePath string) *Pattern {
	return &Pattern{format: format, picturePath: picturePath}
}

// Name returns the name of Pattern i.e. "Pattern".
func (p *Pattern) Name() string { return "Pattern" }

// Format returns the format Pattern was constructed with.
func (p *Pattern) Format() videoformat.VideoFormat { return p.format }

// PicturePath returns the overlay path Pattern was constructed with.
func (p *Pattern) PicturePath() string { return p.picturePath }

// Start loads and scales the picture overlay, if one is configured and
// decodable, and seeds the noise generator for the fallback.
func (p *Pattern) Start() error {
	if !p.format.Valid() {
		return errors.New("pattern source needs a valid format")
	}
	if p.picturePath != "" {
		img := videoformat.FrameFromFile(p.picturePath)
		if !img.Empty() {
			scaled := img.Scaled(int(p.format.Width), int(p.format.Height), videoformat.Linear, videoformat.Keep)
			p.overlay = scaled.Convert(p.format.PixelFormat)
		}
	}
	p.rng = rand.New(rand.NewSource(1))
	p.isRunning = true
	return nil
}

// Stop marks Pattern stopped.
func (p *Pattern) Stop() error {
	p.isRunning = false
	return nil
}

// Read returns the overlay frame, or a fresh noise frame when no picture
// decoded at Start. Reads are paced at the format's frame rate so a
// free-running caller behaves like a real capture device.
func (p *Pattern) Read() (videoformat.VideoFrame, error) {
	if !p.isRunning {
		return videoformat.VideoFrame{}, errors.New("pattern source has not been started, can't read")
	}
	if fps := p.format.FPS.Float64(); fps > 0 {
		interval := time.Duration(float64(time.Second) / fps)
		if wait := interval - time.Since(p.lastRead); wait > 0 {
			time.Sleep(wait)
		}
	}
	p.lastRead = time.Now()
	if !p.overlay.Empty() {
		return p.overlay.Clone(), nil
	}
	f := videoformat.NewFrame(p.format)
	p.rng.Read(f.Data)
	return f, nil
}

// IsRunning is used to determine if the Pattern is running.
func (p *Pattern) IsRunning() bool { return p.isRunning }
