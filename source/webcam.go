/*
DESCRIPTION
  webcam.go provides an implementation of Source for physical webcams,
  piping raw video out of an ffmpeg process so a real capture device can
  feed a virtual camera.

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
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/akvcam/videoformat"
)

// Used to indicate package in logging.
const pkg = "source: "

// Configuration defaults.
const (
	defaultInputPath = "/dev/video0"
	defaultFrameRate = 25
	defaultWidth     = 1280
	defaultHeight    = 720
)

// Configuration field errors.
var (
	errBadFrameRate   = errors.New("frame rate bad or unset, defaulting")
	errBadWidth       = errors.New("width bad or unset, defaulting")
	errBadHeight      = errors.New("height bad or unset, defaulting")
	errBadInputPath   = errors.New("input path bad or unset, defaulting")
	errBadPixelFormat = errors.New("pixel format bad or unset, defaulting")
)

// WebcamConfig holds the validated capture parameters of a Webcam.
type WebcamConfig struct {
	InputPath   string
	PixelFormat videoformat.PixelFormat
	Width       uint32
	Height      uint32
	FrameRate   uint32
}

// Webcam is an implementation of the Source interface for physical
// webcams. Webcam uses an ffmpeg process to pipe raw video data from the
// capture device, one frame-sized read at a time.
type Webcam struct {
	out       io.ReadCloser
	log       logging.Logger
	cfg       WebcamConfig
	cmd       *exec.Cmd
	done      chan struct{}
	isRunning bool
}

// NewWebcam returns a new Webcam.
func NewWebcam(l logging.Logger) *Webcam {
	return &Webcam{log: l}
}

// Name returns the name of the device.
func (w *Webcam) Name() string {
	return "Webcam"
}

// Format returns the format of the frames Read produces.
func (w *Webcam) Format() videoformat.VideoFormat {
	return videoformat.VideoFormat{
		PixelFormat: w.cfg.PixelFormat,
		Width:       w.cfg.Width,
		Height:      w.cfg.Height,
		FPS:         videoformat.Fraction{Num: w.cfg.FrameRate, Den: 1},
	}
}

// Set validates the relevant fields of the given config and assigns it to
// the Webcam. If fields are not valid, an error is added to the
// MultiError and a default value is used.
func (w *Webcam) Set(c WebcamConfig) error {
	var errs MultiError
	if c.InputPath == "" {
		errs = append(errs, errBadInputPath)
		c.InputPath = defaultInputPath
	}

	if c.Width == 0 {
		errs = append(errs, errBadWidth)
		c.Width = defaultWidth
	}

	if c.Height == 0 {
		errs = append(errs, errBadHeight)
		c.Height = defaultHeight
	}

	if c.FrameRate == 0 {
		errs = append(errs, errBadFrameRate)
		c.FrameRate = defaultFrameRate
	}

	if _, ok := ffmpegPixFmt(c.PixelFormat); !ok {
		errs = append(errs, errBadPixelFormat)
		c.PixelFormat = videoformat.RGB24
	}

	// Capture pipelines want scanlines on a 32-pixel boundary.
	aw, ah := videoformat.RoundNearest(int(c.Width), int(c.Height), 32)
	c.Width, c.Height = uint32(aw), uint32(ah)

	w.cfg = c
	if len(errs) != 0 {
		return errs
	}
	return nil
}

// ffmpegPixFmt maps a PixelFormat to the ffmpeg -pix_fmt name producing
// the same byte layout.
func ffmpegPixFmt(p videoformat.PixelFormat) (string, bool) {
	switch p {
	case videoformat.RGB32:
		return "bgra", true
	case videoformat.RGB24:
		return "rgb24", true
	case videoformat.RGB16:
		return "rgb565le", true
	case videoformat.RGB15:
		return "rgb555le", true
	case videoformat.UYVY422:
		return "uyvy422", true
	case videoformat.YUYV422:
		return "yuyv422", true
	case videoformat.NV12:
		return "nv12", true
	default:
		return "", false
	}
}

// Start will build the required arguments for ffmpeg and then execute the
// command, piping raw video output where we can read using the Read method.
func (w *Webcam) Start() error {
	pixFmt, _ := ffmpegPixFmt(w.cfg.PixelFormat)
	args := []string{
		"-i", w.cfg.InputPath,
		"-r", fmt.Sprint(w.cfg.FrameRate),
		"-s", fmt.Sprintf("%dx%d", w.cfg.Width, w.cfg.Height),
		"-f", "rawvideo",
		"-pix_fmt", pixFmt,
		"-",
	}

	w.log.Info(pkg+"ffmpeg args", "args", strings.Join(args, " "))
	w.cmd = exec.Command("ffmpeg", args...)
	w.done = make(chan struct{})

	var err error
	w.out, err = w.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create pipe: %w", err)
	}

	stderr, err := w.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("could not pipe command error: %w", err)
	}

	go func() {
		buf, err := io.ReadAll(stderr)
		select {
		case <-w.done:
			return
		default:
		}
		if err != nil {
			w.log.Error(pkg+"could not read stderr", "error", err)
			return
		}
		if len(buf) != 0 {
			w.log.Error(pkg+"error from webcam stderr", "error", string(buf))
		}
	}()

	w.log.Info(pkg + "starting webcam")
	err = w.cmd.Start()
	if err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	w.isRunning = true
	w.log.Info(pkg + "webcam started")

	return nil
}

// Stop will kill the ffmpeg process and close the output pipe.
func (w *Webcam) Stop() error {
	if !w.isRunning {
		return nil
	}
	w.isRunning = false
	close(w.done)
	if w.cmd == nil || w.cmd.Process == nil {
		return errors.New("ffmpeg process was never started")
	}
	err := w.cmd.Process.Kill()
	if err != nil {
		return fmt.Errorf("could not kill ffmpeg process: %w", err)
	}
	return w.out.Close()
}

// Read blocks until ffmpeg has produced one whole frame and returns it.
func (w *Webcam) Read() (videoformat.VideoFrame, error) {
	if w.out == nil {
		return videoformat.VideoFrame{}, errors.New("webcam not streaming")
	}
	f := videoformat.NewFrame(w.Format())
	if _, err := io.ReadFull(w.out, f.Data); err != nil {
		return videoformat.VideoFrame{}, fmt.Errorf("could not read frame from ffmpeg: %w", err)
	}
	return f, nil
}

// IsRunning is used to determine if the webcam is running.
func (w *Webcam) IsRunning() bool {
	return w.isRunning
}
