/*
NAME
  file_test.go

DESCRIPTION
  file_test.go tests the preferences file codec, including the load(save(S))
  round trip property.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/akvcam/videoformat"
)

// appendLine copies src to dst and appends an extra line, used to inject a
// malformed line for error-path tests without hand-writing a whole file.
func appendLine(src, dst, line string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	data = append(data, []byte("\n"+line+"\n")...)
	return os.WriteFile(dst, data, 0o644)
}

func TestLoadMissingFileYieldsEmptyStore(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "does-not-exist.conf"), nil)
	if err != nil {
		t.Fatalf("Load missing file: %v", err)
	}
	if got := s.ListDevices(); len(got) != 0 {
		t.Errorf("ListDevices() = %v, want empty", got)
	}
}

func buildSampleStore(t *testing.T) *Store {
	t.Helper()
	s := New(nil)
	id, err := s.AddDevice(`A "quoted" camera, with = odd chars`, "")
	if err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	if err := s.SetFormats(id, []videoformat.VideoFormat{
		{PixelFormat: videoformat.RGB24, Width: 640, Height: 480, FPS: videoformat.Fraction{Num: 30, Den: 1}},
		{PixelFormat: videoformat.NV12, Width: 1280, Height: 720, FPS: videoformat.Fraction{Num: 60, Den: 1}},
	}); err != nil {
		t.Fatalf("SetFormats: %v", err)
	}
	if err := s.SetControlValue(id, "brightness", 50); err != nil {
		t.Fatalf("SetControlValue: %v", err)
	}
	if err := s.SetControlValue(id, "contrast", -10); err != nil {
		t.Fatalf("SetControlValue: %v", err)
	}
	if err := s.SetDirectMode(id, true); err != nil {
		t.Fatalf("SetDirectMode: %v", err)
	}
	if _, err := s.AddDevice("second camera", "AkVCamera5"); err != nil {
		t.Fatalf("AddDevice second: %v", err)
	}
	s.SetPicture("  /path/with spaces/picture.bmp  ")
	s.SetLogLevel(2)
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := buildSampleStore(t)
	path := filepath.Join(t.TempDir(), "akvcam.conf")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	wantDevices, wantPicture, wantLogLevel := s.snapshot()
	gotDevices, gotPicture, gotLogLevel := loaded.snapshot()

	if diff := cmp.Diff(wantDevices, gotDevices); diff != "" {
		t.Errorf("round trip devices mismatch (-want +got):\n%s", diff)
	}
	if gotPicture != wantPicture {
		t.Errorf("round trip picture = %q, want %q", gotPicture, wantPicture)
	}
	if gotLogLevel != wantLogLevel {
		t.Errorf("round trip log level = %d, want %d", gotLogLevel, wantLogLevel)
	}
}

func TestSaveIsAtomic(t *testing.T) {
	s := buildSampleStore(t)
	path := filepath.Join(t.TempDir(), "akvcam.conf")
	if err := s.Save(path); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := s.Save(path); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".prefs-*.tmp"))
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("leftover temp files after Save: %v", matches)
	}
}

func TestParseINIRejectsMissingEquals(t *testing.T) {
	s := buildSampleStore(t)
	path := filepath.Join(t.TempDir(), "akvcam.conf")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	bad := path + ".bad"
	if err := appendLine(path, bad, "this line has no equals sign"); err != nil {
		t.Fatalf("appendLine: %v", err)
	}
	if _, err := Load(bad, nil); err == nil {
		t.Error("Load with malformed line: got nil error, want error")
	}
}
