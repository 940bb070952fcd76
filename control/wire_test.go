/*
NAME
  wire_test.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package control

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/akvcam/videoformat"
)

func TestFrameRoundTrip(t *testing.T) {
	f := Frame{ID: MsgAddDevice, Flags: 0, CorrelationID: 42, Body: []byte("hello")}
	var buf bytes.Buffer
	if err := WriteFrame(&buf, f); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if diff := cmp.Diff(f, got); diff != "" {
		t.Errorf("frame round trip (-want +got):\n%s", diff)
	}
}

func TestReadFrameRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer(make([]byte, frameHeaderSize))
	if _, err := ReadFrame(buf); err == nil {
		t.Error("ReadFrame(zeroed header): got nil error, want error")
	}
}

func TestAddDeviceRequestRoundTrip(t *testing.T) {
	want := AddDeviceRequest{Description: "Cam A", PreferredID: ""}
	got, err := DecodeAddDeviceRequest(want.Encode())
	if err != nil {
		t.Fatalf("DecodeAddDeviceRequest: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("AddDeviceRequest round trip (-want +got):\n%s", diff)
	}
}

func TestStartBroadcastRequestRoundTrip(t *testing.T) {
	want := StartBroadcastRequest{
		DeviceID: "AkVCamera0",
		Format: videoformat.VideoFormat{
			PixelFormat: videoformat.RGB24,
			Width:       640,
			Height:      480,
			FPS:         videoformat.Fraction{Num: 30, Den: 1},
		},
	}
	got, err := DecodeStartBroadcastRequest(want.Encode())
	if err != nil {
		t.Fatalf("DecodeStartBroadcastRequest: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("StartBroadcastRequest round trip (-want +got):\n%s", diff)
	}
}

func TestSetControlsRequestRoundTrip(t *testing.T) {
	want := SetControlsRequest{DeviceID: "d", Controls: map[string]int{"hflip": 1, "scaling": 0}}
	got, err := DecodeSetControlsRequest(want.Encode())
	if err != nil {
		t.Fatalf("DecodeSetControlsRequest: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SetControlsRequest round trip (-want +got):\n%s", diff)
	}
}

func TestDeviceInfoReplyRoundTrip(t *testing.T) {
	want := DeviceInfoReply{
		Description: "Cam A",
		Formats: []videoformat.VideoFormat{
			{PixelFormat: videoformat.RGB24, Width: 640, Height: 480, FPS: videoformat.Fraction{Num: 30, Den: 1}},
		},
		Broadcaster:   "peer-1",
		ListenerCount: 2,
	}
	got, err := DecodeDeviceInfoReply(want.Encode())
	if err != nil {
		t.Fatalf("DecodeDeviceInfoReply: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DeviceInfoReply round trip (-want +got):\n%s", diff)
	}
}

func TestDeviceControlRoundTrip(t *testing.T) {
	want := GetControlsDescriptorsReply{
		Controls: map[string]int{"hflip": 1},
		Descriptors: []DeviceControl{
			{Name: "hflip", Type: ControlBoolean, Min: 0, Max: 1, Step: 1, Default: 0},
			{Name: "scaling", Type: ControlMenu, Options: []string{"fast", "linear"}},
		},
	}
	got, err := DecodeGetControlsDescriptorsReply(want.Encode())
	if err != nil {
		t.Fatalf("DecodeGetControlsDescriptorsReply: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetControlsDescriptorsReply round trip (-want +got):\n%s", diff)
	}
}
