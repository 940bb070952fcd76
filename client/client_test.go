/*
NAME
  client_test.go

DESCRIPTION
  client_test.go exercises the full broker/peer stack over a loopback
  listener: device management, busy rejection, single-broadcaster
  ordering, controls fan-out, disconnect cleanup, and the shared-frame
  path from a producer's write to a consumer's read.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package client

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/akvcam/broker"
	"github.com/ausocean/akvcam/control"
	"github.com/ausocean/akvcam/internal/akerrors"
	"github.com/ausocean/akvcam/prefs"
	"github.com/ausocean/akvcam/source"
	"github.com/ausocean/akvcam/videoformat"
)

func rgb640() videoformat.VideoFormat {
	return videoformat.VideoFormat{
		PixelFormat: videoformat.RGB24,
		Width:       640,
		Height:      480,
		FPS:         videoformat.Fraction{Num: 30, Den: 1},
	}
}

// startBroker runs a broker on an ephemeral loopback port and returns its
// endpoint. The broker is stopped when the test ends.
func startBroker(t *testing.T) string {
	t.Helper()
	cfg := broker.Config{
		Endpoint:     "127.0.0.1:0",
		PingInterval: 100 * time.Millisecond,
		PingMisses:   3,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	b := broker.New(cfg, prefs.New(nil))
	srv := broker.NewServer(b, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.ListenAndServe(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	deadline := time.Now().Add(5 * time.Second)
	for srv.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("broker did not bind in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return srv.Addr().String()
}

func dial(t *testing.T, endpoint string, role control.Role, name string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, endpoint, role, name, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// waitEvent drains c.Events until match returns true or the timeout
// expires.
func waitEvent(t *testing.T, c *Client, timeout time.Duration, match func(Event) bool) Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-c.Events:
			if !ok {
				t.Fatal("events channel closed while waiting")
			}
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestAddListRemove(t *testing.T) {
	ep := startBroker(t)
	c := dial(t, ep, control.RoleGeneric, "admin")
	ctx := testCtx(t)

	id, err := c.AddDevice(ctx, "Cam A", "")
	if err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	if id == "" {
		t.Fatal("AddDevice returned empty id")
	}

	ids, err := c.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if diff := cmp.Diff([]string{id}, ids); diff != "" {
		t.Errorf("ListDevices after add (-want +got):\n%s", diff)
	}

	if err := c.RemoveDevice(ctx, id); err != nil {
		t.Fatalf("RemoveDevice: %v", err)
	}
	ids, err = c.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices after remove: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("ListDevices after remove = %v, want empty", ids)
	}
}

func TestBusyRejection(t *testing.T) {
	ep := startBroker(t)
	admin := dial(t, ep, control.RoleGeneric, "admin")
	p1 := dial(t, ep, control.RoleProducer, "p1")
	p2 := dial(t, ep, control.RoleProducer, "p2")
	ctx := testCtx(t)

	id, err := admin.AddDevice(ctx, "Cam A", "busy-cam")
	if err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	if err := admin.SetFormats(ctx, id, []videoformat.VideoFormat{rgb640()}); err != nil {
		t.Fatalf("SetFormats: %v", err)
	}

	if err := p1.StartBroadcast(ctx, id, rgb640()); err != nil {
		t.Fatalf("p1 StartBroadcast: %v", err)
	}
	// Same peer, same format: idempotent no-op success.
	if err := p1.StartBroadcast(ctx, id, rgb640()); err != nil {
		t.Fatalf("p1 repeat StartBroadcast: %v", err)
	}

	err = p2.StartBroadcast(ctx, id, rgb640())
	if akerrors.KindOf(err) != akerrors.Busy {
		t.Fatalf("p2 StartBroadcast: got kind %v, want Busy", akerrors.KindOf(err))
	}

	info, err := admin.DeviceInfo(ctx, id)
	if err != nil {
		t.Fatalf("DeviceInfo: %v", err)
	}
	if info.Broadcaster != "p1" {
		t.Errorf("broadcaster after rejected claim = %q, want %q", info.Broadcaster, "p1")
	}
}

func TestDisconnectReleasesBroadcast(t *testing.T) {
	ep := startBroker(t)
	admin := dial(t, ep, control.RoleGeneric, "admin")
	p1 := dial(t, ep, control.RoleProducer, "p1")
	p2 := dial(t, ep, control.RoleProducer, "p2")
	ctx := testCtx(t)

	id, err := admin.AddDevice(ctx, "Cam A", "crash-cam")
	if err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	if err := admin.SetFormats(ctx, id, []videoformat.VideoFormat{rgb640()}); err != nil {
		t.Fatalf("SetFormats: %v", err)
	}
	if err := p1.StartBroadcast(ctx, id, rgb640()); err != nil {
		t.Fatalf("p1 StartBroadcast: %v", err)
	}

	// Abrupt close, no Bye or StopBroadcast: the broker must release the
	// broadcaster slot and tell everyone.
	p1.Close()

	ev := waitEvent(t, admin, 5*time.Second, func(ev Event) bool {
		bc, ok := ev.(BroadcastingChanged)
		return ok && bc.DeviceID == id && bc.Broadcaster == ""
	})
	if bc := ev.(BroadcastingChanged); bc.Broadcaster != "" {
		t.Errorf("BroadcastingChanged.Broadcaster = %q, want empty", bc.Broadcaster)
	}

	if err := p2.StartBroadcast(ctx, id, rgb640()); err != nil {
		t.Fatalf("p2 StartBroadcast after p1 death: %v", err)
	}
}

func TestControlsFanOut(t *testing.T) {
	ep := startBroker(t)
	admin := dial(t, ep, control.RoleGeneric, "admin")
	c1 := dial(t, ep, control.RoleConsumer, "c1")
	c2 := dial(t, ep, control.RoleConsumer, "c2")
	ctx := testCtx(t)

	id, err := admin.AddDevice(ctx, "Cam A", "ctrl-cam")
	if err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	if err := c1.AddListener(ctx, id); err != nil {
		t.Fatalf("c1 AddListener: %v", err)
	}
	if err := c2.AddListener(ctx, id); err != nil {
		t.Fatalf("c2 AddListener: %v", err)
	}

	want := map[string]int{"hflip": 1, "scaling": 0}
	if err := admin.SetControls(ctx, id, want); err != nil {
		t.Fatalf("SetControls: %v", err)
	}

	for _, c := range []*Client{c1, c2} {
		ev := waitEvent(t, c, 5*time.Second, func(ev Event) bool {
			cc, ok := ev.(ControlsChanged)
			return ok && cc.DeviceID == id
		})
		if diff := cmp.Diff(want, ev.(ControlsChanged).Controls); diff != "" {
			t.Errorf("ControlsChanged payload (-want +got):\n%s", diff)
		}
	}

	got, err := admin.GetControls(ctx, id)
	if err != nil {
		t.Fatalf("GetControls: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetControls after fan-out (-want +got):\n%s", diff)
	}
}

func TestSetControlsRejectsUnknownAndOutOfRange(t *testing.T) {
	ep := startBroker(t)
	admin := dial(t, ep, control.RoleGeneric, "admin")
	ctx := testCtx(t)

	id, err := admin.AddDevice(ctx, "Cam A", "")
	if err != nil {
		t.Fatalf("AddDevice: %v", err)
	}

	err = admin.SetControls(ctx, id, map[string]int{"bogus": 1})
	if akerrors.KindOf(err) != akerrors.InvalidArgument {
		t.Errorf("unknown control: got kind %v, want InvalidArgument", akerrors.KindOf(err))
	}
	err = admin.SetControls(ctx, id, map[string]int{"hue": 720})
	if akerrors.KindOf(err) != akerrors.InvalidArgument {
		t.Errorf("out-of-range control: got kind %v, want InvalidArgument", akerrors.KindOf(err))
	}
}

func TestDirectModeFormatMismatch(t *testing.T) {
	ep := startBroker(t)
	// Direct mode is a store-side flag with no control message of its own,
	// so configure it on the store before wiring the broker up.
	store := prefs.New(nil)
	id, err := store.AddDevice("Direct cam", "direct-cam")
	if err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	nv12 := videoformat.VideoFormat{PixelFormat: videoformat.NV12, Width: 1280, Height: 720, FPS: videoformat.Fraction{Num: 30, Den: 1}}
	if err := store.SetFormats(id, []videoformat.VideoFormat{nv12}); err != nil {
		t.Fatalf("SetFormats: %v", err)
	}
	if err := store.SetDirectMode(id, true); err != nil {
		t.Fatalf("SetDirectMode: %v", err)
	}

	cfg := broker.Config{Endpoint: "127.0.0.1:0", PingInterval: time.Second, PingMisses: 3}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	b := broker.New(cfg, store)
	srv := broker.NewServer(b, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.ListenAndServe(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	for srv.Addr() == nil {
		time.Sleep(10 * time.Millisecond)
	}
	ep = srv.Addr().String()

	p := dial(t, ep, control.RoleProducer, "p1")
	rctx := testCtx(t)

	rgb := videoformat.VideoFormat{PixelFormat: videoformat.RGB24, Width: 1280, Height: 720, FPS: videoformat.Fraction{Num: 30, Den: 1}}
	err = p.StartBroadcast(rctx, id, rgb)
	if akerrors.KindOf(err) != akerrors.InvalidArgument {
		t.Errorf("direct-mode mismatch: got kind %v, want InvalidArgument", akerrors.KindOf(err))
	}
	if err := p.StartBroadcast(rctx, id, nv12); err != nil {
		t.Errorf("direct-mode exact format: %v", err)
	}
}

func TestProducerConsumerFrameFlow(t *testing.T) {
	ep := startBroker(t)
	admin := dial(t, ep, control.RoleGeneric, "admin")
	pc := dial(t, ep, control.RoleProducer, "prod")
	cc := dial(t, ep, control.RoleConsumer, "cons")
	ctx := testCtx(t)

	id, err := admin.AddDevice(ctx, "Cam A", "flow-cam")
	if err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	format := rgb640()
	if err := admin.SetFormats(ctx, id, []videoformat.VideoFormat{format}); err != nil {
		t.Fatalf("SetFormats: %v", err)
	}

	input := source.NewManual(format)
	p := NewProducer(pc, id, input)
	if err := p.Start(ctx); err != nil {
		t.Fatalf("producer Start: %v", err)
	}
	defer p.Stop(context.Background())

	cons := NewConsumer(cc, id, "")
	if err := cons.Start(ctx); err != nil {
		t.Fatalf("consumer Start: %v", err)
	}
	defer cons.Stop(context.Background())

	// Keep writing the marker frame so the consumer sees one regardless of
	// when its channel attach lands.
	marker := videoformat.NewFrame(format)
	for i := range marker.Data {
		marker.Data[i] = 0x7F
	}
	writerDone := make(chan struct{})
	stopWriter := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-stopWriter:
				return
			default:
			}
			p.Write(marker.Clone())
			time.Sleep(10 * time.Millisecond)
		}
	}()
	defer func() {
		close(stopWriter)
		<-writerDone
	}()

	deadline := time.Now().Add(10 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("never received the marker frame")
		}
		f, err := cons.Read(ctx, time.Second)
		if err != nil || f.Empty() {
			continue
		}
		if !f.Format.Equal(format) || len(f.Data) != 640*480*3 {
			continue // Test pattern while the channel attaches.
		}
		all := true
		for _, b := range f.Data {
			if b != 0x7F {
				all = false
				break
			}
		}
		if all {
			return // Marker frame arrived byte-identical.
		}
	}
}
