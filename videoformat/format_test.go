/*
NAME
  format_test.go

DESCRIPTION
  format_test.go tests VideoFormat geometry and the Nearest format
  selection rule.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package videoformat

import "testing"

func TestVideoFormatValid(t *testing.T) {
	cases := []struct {
		name string
		f    VideoFormat
		want bool
	}{
		{"valid RGB24", VideoFormat{RGB24, 640, 480, Fraction{30, 1}}, true},
		{"zero width", VideoFormat{RGB24, 0, 480, Fraction{30, 1}}, false},
		{"zero fps num", VideoFormat{RGB24, 640, 480, Fraction{0, 1}}, false},
		{"zero fps den", VideoFormat{RGB24, 640, 480, Fraction{30, 0}}, false},
		{"bad pixel format", VideoFormat{0xff, 640, 480, Fraction{30, 1}}, false},
	}
	for _, c := range cases {
		if got := c.f.Valid(); got != c.want {
			t.Errorf("%s: Valid() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestTotalSize(t *testing.T) {
	cases := []struct {
		name string
		f    VideoFormat
		want int
	}{
		{"RGB24 640x480", VideoFormat{RGB24, 640, 480, Fraction{30, 1}}, 640 * 480 * 3},
		{"RGB32 320x240", VideoFormat{RGB32, 320, 240, Fraction{30, 1}}, 320 * 240 * 4},
		{"UYVY422 640x480", VideoFormat{UYVY422, 640, 480, Fraction{30, 1}}, 640 * 480 * 2},
		{"NV12 640x480", VideoFormat{NV12, 640, 480, Fraction{30, 1}}, 640*480 + 640*480/2},
	}
	for _, c := range cases {
		if got := c.f.TotalSize(); got != c.want {
			t.Errorf("%s: TotalSize() = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestNearestSingleCandidate(t *testing.T) {
	f := VideoFormat{RGB24, 640, 480, Fraction{30, 1}}
	if got := f.Nearest([]VideoFormat{f}); got != f {
		t.Errorf("Nearest([f]) = %v, want %v", got, f)
	}
}

func TestNearestTieBreaksFirst(t *testing.T) {
	target := VideoFormat{RGB24, 640, 480, Fraction{30, 1}}
	a := VideoFormat{RGB24, 600, 480, Fraction{30, 1}}
	b := VideoFormat{RGB24, 680, 480, Fraction{30, 1}}
	got := target.Nearest([]VideoFormat{a, b})
	if got != a {
		t.Errorf("Nearest tie-break: got %v, want first candidate %v", got, a)
	}
}

func TestNearestPicksClosest(t *testing.T) {
	target := VideoFormat{RGB24, 1280, 720, Fraction{30, 1}}
	candidates := []VideoFormat{
		{RGB24, 320, 240, Fraction{30, 1}},
		{RGB24, 1280, 720, Fraction{25, 1}},
		{RGB24, 640, 480, Fraction{30, 1}},
	}
	got := target.Nearest(candidates)
	if got != candidates[1] {
		t.Errorf("Nearest() = %v, want %v", got, candidates[1])
	}
}

func TestRoundNearest(t *testing.T) {
	cases := []struct {
		w, align, wantW int
	}{
		{640, 32, 640},
		{645, 32, 640},
		{660, 32, 672}, // Rounds up, not down: 672 is nearer than 640.
		{690, 32, 704},
		{10, 32, 10},
		{100, 0, 96},
	}
	for _, c := range cases {
		gotW, _ := RoundNearest(c.w, 1, c.align)
		if gotW != c.wantW {
			t.Errorf("RoundNearest(%d, align=%d) = %d, want %d", c.w, c.align, gotW, c.wantW)
		}
	}
}

func TestPixelFormatStringRoundTrip(t *testing.T) {
	for _, p := range []PixelFormat{RGB32, RGB24, RGB16, RGB15, UYVY422, YUYV422, NV12} {
		s := p.String()
		got, ok := ParsePixelFormat(s)
		if !ok || got != p {
			t.Errorf("ParsePixelFormat(%q) = %v, %v, want %v, true", s, got, ok, p)
		}
	}
}
