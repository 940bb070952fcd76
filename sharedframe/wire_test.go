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

package sharedframe

import (
	"testing"

	"github.com/ausocean/akvcam/internal/akerrors"
	"github.com/ausocean/akvcam/videoformat"
)

func TestHeaderRoundTrip(t *testing.T) {
	f := videoformat.NewFrame(videoformat.VideoFormat{
		PixelFormat: videoformat.RGB24,
		Width:       640,
		Height:      480,
		FPS:         videoformat.Fraction{Num: 30, Den: 1},
	})
	h := HeaderFor(f, 7, 1234567890)

	buf := make([]byte, HeaderSize)
	h.Encode(buf)

	got, err := DecodeHeader(buf)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if got != h {
		t.Errorf("DecodeHeader round trip = %+v, want %+v", got, h)
	}
}

func TestDecodeHeaderRejectsBadMagic(t *testing.T) {
	buf := make([]byte, HeaderSize)
	_, err := DecodeHeader(buf)
	if akerrors.KindOf(err) != akerrors.Corrupted {
		t.Errorf("DecodeHeader(zeroed) kind = %v, want Corrupted", akerrors.KindOf(err))
	}
}

func TestDecodeHeaderRejectsShortBuffer(t *testing.T) {
	_, err := DecodeHeader(make([]byte, 4))
	if akerrors.KindOf(err) != akerrors.Corrupted {
		t.Errorf("DecodeHeader(short) kind = %v, want Corrupted", akerrors.KindOf(err))
	}
}
