/*
NAME
  store_test.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package prefs

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/akvcam/videoformat"
)

func fmt640() videoformat.VideoFormat {
	return videoformat.VideoFormat{
		PixelFormat: videoformat.RGB24,
		Width:       640,
		Height:      480,
		FPS:         videoformat.Fraction{Num: 30, Den: 1},
	}
}

func fmt720() videoformat.VideoFormat {
	return videoformat.VideoFormat{
		PixelFormat: videoformat.NV12,
		Width:       1280,
		Height:      720,
		FPS:         videoformat.Fraction{Num: 60, Den: 1},
	}
}

func TestAddDeviceGeneratesLowestUnusedID(t *testing.T) {
	s := New(nil)
	id0, err := s.AddDevice("first", "")
	if err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	if id0 != DefaultIDPrefix+"0" {
		t.Fatalf("first generated id = %q, want %q", id0, DefaultIDPrefix+"0")
	}
	id1, err := s.AddDevice("second", "")
	if err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	if id1 != DefaultIDPrefix+"1" {
		t.Fatalf("second generated id = %q, want %q", id1, DefaultIDPrefix+"1")
	}

	// Freeing the lowest suffix makes it the next pick.
	if err := s.RemoveDevice(id0); err != nil {
		t.Fatalf("RemoveDevice: %v", err)
	}
	id, err := s.AddDevice("third", "")
	if err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	if id != id0 {
		t.Errorf("regenerated id = %q, want reuse of %q", id, id0)
	}
}

func TestAddDevicePreferredID(t *testing.T) {
	s := New(nil)
	id, err := s.AddDevice("cam", "MyCam")
	if err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	if id != "MyCam" {
		t.Errorf("preferred id = %q, want MyCam", id)
	}
	if _, err := s.AddDevice("cam again", "MyCam"); err == nil {
		t.Error("duplicate preferred id: got nil error, want error")
	}
}

func TestFormatListEditing(t *testing.T) {
	s := New(nil)
	id, err := s.AddDevice("cam", "")
	if err != nil {
		t.Fatalf("AddDevice: %v", err)
	}

	if err := s.AddFormat(id, fmt640(), -1); err != nil {
		t.Fatalf("AddFormat append: %v", err)
	}
	if err := s.AddFormat(id, fmt720(), 0); err != nil {
		t.Fatalf("AddFormat insert: %v", err)
	}
	want := []videoformat.VideoFormat{fmt720(), fmt640()}
	if diff := cmp.Diff(want, s.Formats(id)); diff != "" {
		t.Errorf("formats after insert (-want +got):\n%s", diff)
	}

	if err := s.RemoveFormat(id, 0); err != nil {
		t.Fatalf("RemoveFormat: %v", err)
	}
	if diff := cmp.Diff([]videoformat.VideoFormat{fmt640()}, s.Formats(id)); diff != "" {
		t.Errorf("formats after remove (-want +got):\n%s", diff)
	}
	if err := s.RemoveFormat(id, 5); err == nil {
		t.Error("RemoveFormat out of range: got nil error, want error")
	}
}

func TestControlValues(t *testing.T) {
	s := New(nil)
	id, err := s.AddDevice("cam", "")
	if err != nil {
		t.Fatalf("AddDevice: %v", err)
	}

	if _, ok := s.ControlValue(id, "hue"); ok {
		t.Error("unset control reported as set")
	}
	if err := s.SetControlValue(id, "hue", -90); err != nil {
		t.Fatalf("SetControlValue: %v", err)
	}
	v, ok := s.ControlValue(id, "hue")
	if !ok || v != -90 {
		t.Errorf("ControlValue = %d,%v, want -90,true", v, ok)
	}
	if err := s.SetControlValue("nope", "hue", 1); err == nil {
		t.Error("SetControlValue on unknown device: got nil error, want error")
	}
}
