/*
DESCRIPTION
  source.go provides Source, an interface that describes a configurable
  producer of video frames that can be started and stopped, plus Manual,
  a Source fed by software writes rather than capture hardware.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package source provides implementations of frame sources that a
// producer can pump into a virtual camera: manual software input, a
// generated test pattern, and an ffmpeg-piped capture device.
package source

import (
	"errors"
	"fmt"

	"github.com/ausocean/akvcam/videoformat"
)

// Source describes a configurable video-frame source. A Source must be
// started before Read is called and stopped when no longer needed.
type Source interface {
	// Name returns the name of the Source.
	Name() string

	// Format returns the VideoFormat of the frames Read produces.
	Format() videoformat.VideoFormat

	// Start will start the Source capturing or generating frames; after
	// which the Read method may be called to obtain them.
	Start() error

	// Stop will stop the Source. From this point Reads will no longer be
	// successful.
	Stop() error

	// Read returns the next frame. Read blocks until a frame is
	// available or the Source is stopped.
	Read() (videoformat.VideoFrame, error)

	// IsRunning is used to determine if the Source is running.
	IsRunning() bool
}

// MultiError collects the validation errors of a Source's configuration
// fields, so a caller can see everything that was defaulted at once.
type MultiError []error

func (me MultiError) Error() string {
	if len(me) == 0 {
		panic("source: invalid use of MultiError")
	}
	return fmt.Sprintf("%v", []error(me))
}

// Manual is a Source fed by software: every frame passed to Write is
// handed to exactly one Read. Write and Read block on each other, making
// hand-off of distinct frames explicit, which suits tests and piping
// pre-rendered sequences.
type Manual struct {
	format    videoformat.VideoFormat
	frames    chan videoformat.VideoFrame
	done      chan struct{}
	isRunning bool
}

// NewManual provides a new Manual producing frames of the given format.
func NewManual(format videoformat.VideoFormat) *Manual {
	return &Manual{format: format}
}

// Name returns the name of Manual i.e. "Manual".
func (m *Manual) Name() string { return "Manual" }

// Format returns the format Manual was constructed with.
func (m *Manual) Format() videoformat.VideoFormat { return m.format }

// Start readies Manual for Write/Read pairs.
func (m *Manual) Start() error {
	m.frames = make(chan videoformat.VideoFrame)
	m.done = make(chan struct{})
	m.isRunning = true
	return nil
}

// Stop unblocks any pending Write or Read and marks Manual stopped.
func (m *Manual) Stop() error {
	if !m.isRunning {
		return nil
	}
	m.isRunning = false
	close(m.done)
	return nil
}

// Read returns the next written frame, blocking until one arrives or the
// source is stopped.
func (m *Manual) Read() (videoformat.VideoFrame, error) {
	if !m.isRunning {
		return videoformat.VideoFrame{}, errors.New("manual source has not been started, can't read")
	}
	select {
	case f := <-m.frames:
		return f, nil
	case <-m.done:
		return videoformat.VideoFrame{}, errors.New("manual source stopped")
	}
}

// Write hands f to the next Read, blocking until it is taken.
func (m *Manual) Write(f videoformat.VideoFrame) error {
	if !m.isRunning {
		return errors.New("manual source has not been started, can't write")
	}
	select {
	case m.frames <- f:
		return nil
	case <-m.done:
		return errors.New("manual source stopped")
	}
}

// IsRunning returns whether Start has been called (and Stop has not been
// called after).
func (m *Manual) IsRunning() bool { return m.isRunning }
