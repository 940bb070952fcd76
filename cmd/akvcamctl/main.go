/*
DESCRIPTION
  akvcamctl is a debug tool exercising the broker from the command line:
  device management, control get/set, and acting as a producer (pushing
  test-pattern, image or webcam frames to a device) or a consumer
  (pulling frames and reporting what arrives).

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/akvcam/client"
	"github.com/ausocean/akvcam/control"
	"github.com/ausocean/akvcam/source"
	"github.com/ausocean/akvcam/videoformat"
)

const usage = `usage: akvcamctl [flags] <command> [args]

Commands:
  list                                List device ids.
  info <device>                       Describe one device.
  add <description> [preferred-id]    Add a device.
  remove <device>                     Remove a device.
  set-formats <device> <fmt>[,...]    Replace a device's format list,
                                      e.g. RGB24:640x480@30/1.
  get-controls <device>               Print current control values.
  set-controls <device> k=v [k=v...]  Update control values.
  descriptors <device>                Print control descriptors.
  broadcast <device> <fmt>            Produce frames until interrupted.
  listen <device>                     Consume frames until interrupted.
`

// Command-line flags shared by every subcommand.
var (
	endpointFlag = flag.String("endpoint", "", "Broker endpoint (default "+control.EndpointEnv+" or "+control.DefaultEndpoint+").")
	verbosityVar = flag.Int("verbosity", int(logging.Warning), "Log verbosity.")
	pictureFlag  = flag.String("picture", "", "Picture used for produced or idle test-pattern frames.")
	webcamFlag   = flag.String("webcam", "", "Capture device path; broadcast real frames instead of the test pattern.")
	timeoutFlag  = flag.Duration("timeout", 5*time.Second, "Per-request deadline.")

	applyControlsFlag = flag.Bool("apply-controls", false, "Render the device's control values onto received frames (not for direct-mode devices).")
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	l := logging.New(int8(*verbosityVar), os.Stderr, true)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	role := control.RoleGeneric
	switch args[0] {
	case "broadcast":
		role = control.RoleProducer
	case "listen":
		role = control.RoleConsumer
	}

	c, err := client.Dial(ctx, *endpointFlag, role, "", l)
	if err != nil {
		die("could not reach broker: %v", err)
	}
	defer c.Close()

	if err := run(ctx, c, l, args); err != nil {
		die("%v", err)
	}
}

func run(ctx context.Context, c *client.Client, l logging.Logger, args []string) error {
	rctx, cancel := context.WithTimeout(ctx, *timeoutFlag)
	defer cancel()

	switch cmd := args[0]; cmd {
	case "list":
		ids, err := c.ListDevices(rctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil

	case "info":
		info, err := c.DeviceInfo(rctx, arg(args, 1))
		if err != nil {
			return err
		}
		fmt.Printf("description: %s\n", info.Description)
		fmt.Printf("broadcaster: %s\n", orIdle(info.Broadcaster))
		fmt.Printf("listeners:   %d\n", info.ListenerCount)
		for _, f := range info.Formats {
			fmt.Printf("format:      %s\n", f)
		}
		return nil

	case "add":
		preferred := ""
		if len(args) > 2 {
			preferred = args[2]
		}
		id, err := c.AddDevice(rctx, arg(args, 1), preferred)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil

	case "remove":
		return c.RemoveDevice(rctx, arg(args, 1))

	case "set-formats":
		formats, err := parseFormats(arg(args, 2))
		if err != nil {
			return err
		}
		return c.SetFormats(rctx, arg(args, 1), formats)

	case "get-controls":
		values, err := c.GetControls(rctx, arg(args, 1))
		if err != nil {
			return err
		}
		printControls(values)
		return nil

	case "set-controls":
		values := map[string]int{}
		for _, kv := range args[2:] {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("bad control assignment %q, want key=value", kv)
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("bad control value %q: %w", v, err)
			}
			values[k] = n
		}
		return c.SetControls(rctx, arg(args, 1), values)

	case "descriptors":
		reply, err := c.GetControlDescriptors(rctx, arg(args, 1))
		if err != nil {
			return err
		}
		for _, d := range reply.Descriptors {
			fmt.Printf("%s type=%d range=[%d,%d] step=%d default=%d", d.Name, d.Type, d.Min, d.Max, d.Step, d.Default)
			if len(d.Options) > 0 {
				fmt.Printf(" options=%s", strings.Join(d.Options, ","))
			}
			fmt.Printf(" value=%d\n", reply.Controls[d.Name])
		}
		return nil

	case "broadcast":
		format, err := parseFormat(arg(args, 2))
		if err != nil {
			return err
		}
		return broadcast(ctx, c, l, arg(args, 1), format)

	case "listen":
		return listen(ctx, c, arg(args, 1))

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// broadcast produces frames to device until the context is cancelled. If
// the requested format is not one the device advertises, the nearest
// advertised format is used instead.
func broadcast(ctx context.Context, c *client.Client, l logging.Logger, device string, format videoformat.VideoFormat) error {
	if info, err := c.DeviceInfo(ctx, device); err == nil && len(info.Formats) > 0 {
		listed := false
		for _, f := range info.Formats {
			if f.Equal(format) {
				listed = true
				break
			}
		}
		if !listed {
			nearest := format.Nearest(info.Formats)
			fmt.Printf("format %s not advertised by %s, using nearest %s\n", format, device, nearest)
			format = nearest
		}
	}

	var src source.Source
	if *webcamFlag != "" {
		w := source.NewWebcam(l)
		err := w.Set(source.WebcamConfig{
			InputPath:   *webcamFlag,
			PixelFormat: format.PixelFormat,
			Width:       format.Width,
			Height:      format.Height,
			FrameRate:   format.FPS.Num / format.FPS.Den,
		})
		if err != nil {
			l.Warning("webcam configuration defaulted", "error", err)
		}
		src = w
	} else {
		src = source.NewPattern(format, *pictureFlag)
	}

	p := client.NewProducer(c, device, src)
	if err := p.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("broadcasting %s to %s, interrupt to stop\n", format, device)
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()
	p.Stop(stopCtx)
	return nil
}

// listen consumes frames from device until the context is cancelled,
// reporting each distinct format and a running frame count. With
// -apply-controls the device's control values (tracked live through
// ControlsChanged) are rendered onto each frame, as a capture plugin
// would for a non-direct device.
func listen(ctx context.Context, c *client.Client, device string) error {
	cons := client.NewConsumer(c, device, *pictureFlag)
	if err := cons.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("listening on %s, interrupt to stop\n", device)

	var (
		controlsMu sync.Mutex
		controls   = map[string]int{}
	)
	if *applyControlsFlag {
		if v, err := c.GetControls(ctx, device); err == nil {
			controls = v
		}
		go func() {
			for ev := range c.Events {
				if cc, ok := ev.(client.ControlsChanged); ok && cc.DeviceID == device {
					controlsMu.Lock()
					controls = cc.Controls
					controlsMu.Unlock()
				}
			}
		}()
	}

	var (
		count    int
		lastDesc string
	)
	for ctx.Err() == nil {
		f, err := cons.Read(ctx, time.Second)
		if err != nil {
			continue // Timeout waiting on a live broadcaster.
		}
		if *applyControlsFlag {
			controlsMu.Lock()
			current := controls
			controlsMu.Unlock()
			f = client.ApplyControls(f, current)
		}
		count++
		if desc := f.Format.String(); desc != lastDesc {
			lastDesc = desc
			fmt.Printf("receiving %s\n", desc)
		}
		if count%100 == 0 {
			fmt.Printf("%d frames\n", count)
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()
	cons.Stop(stopCtx)
	fmt.Printf("%d frames total\n", count)
	return nil
}

// parseFormat parses PIXFMT:WxH@NUM/DEN, e.g. RGB24:640x480@30/1. The
// /DEN part may be omitted for whole frame rates.
func parseFormat(s string) (videoformat.VideoFormat, error) {
	var zero videoformat.VideoFormat
	name, rest, ok := strings.Cut(s, ":")
	if !ok {
		return zero, fmt.Errorf("bad format %q, want PIXFMT:WxH@FPS", s)
	}
	pf, ok := videoformat.ParsePixelFormat(name)
	if !ok {
		return zero, fmt.Errorf("unknown pixel format %q", name)
	}
	dims, fps, ok := strings.Cut(rest, "@")
	if !ok {
		return zero, fmt.Errorf("bad format %q, missing @FPS", s)
	}
	ws, hs, ok := strings.Cut(dims, "x")
	if !ok {
		return zero, fmt.Errorf("bad dimensions %q", dims)
	}
	w, err := strconv.ParseUint(ws, 10, 32)
	if err != nil {
		return zero, fmt.Errorf("bad width %q: %w", ws, err)
	}
	h, err := strconv.ParseUint(hs, 10, 32)
	if err != nil {
		return zero, fmt.Errorf("bad height %q: %w", hs, err)
	}
	num, den := fps, "1"
	if n, d, ok := strings.Cut(fps, "/"); ok {
		num, den = n, d
	}
	fn, err := strconv.ParseUint(num, 10, 32)
	if err != nil {
		return zero, fmt.Errorf("bad frame rate %q: %w", num, err)
	}
	fd, err := strconv.ParseUint(den, 10, 32)
	if err != nil {
		return zero, fmt.Errorf("bad frame rate denominator %q: %w", den, err)
	}
	f := videoformat.VideoFormat{
		PixelFormat: pf,
		Width:       uint32(w),
		Height:      uint32(h),
		FPS:         videoformat.Fraction{Num: uint32(fn), Den: uint32(fd)},
	}
	if !f.Valid() {
		return zero, fmt.Errorf("invalid format %q", s)
	}
	return f, nil
}

func parseFormats(s string) ([]videoformat.VideoFormat, error) {
	parts := strings.Split(s, ",")
	out := make([]videoformat.VideoFormat, 0, len(parts))
	for _, p := range parts {
		f, err := parseFormat(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func printControls(values map[string]int) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s = %d\n", k, values[k])
	}
}

// arg returns args[i] or exits with usage if it is missing.
func arg(args []string, i int) string {
	if i >= len(args) {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	return args[i]
}

func orIdle(s string) string {
	if s == "" {
		return "(idle)"
	}
	return s
}

func die(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "akvcamctl: "+format+"\n", args...)
	os.Exit(1)
}
