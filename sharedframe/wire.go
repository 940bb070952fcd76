/*
NAME
  wire.go

DESCRIPTION
  wire.go implements the AKVC frame-channel header:
  bit-exact little-endian encode/decode of the fixed header that precedes
  every frame's payload in a shared-frame slot.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package sharedframe implements the one-slot shared-memory channel a
// producer uses to hand raw frames to zero-or-more consumers: named mutex,
// ready signaling, and the AKVC wire header.
package sharedframe

import (
	"encoding/binary"

	"github.com/ausocean/akvcam/internal/akerrors"
	"github.com/ausocean/akvcam/videoformat"
)

// Magic identifies the start of an AKVC header.
const Magic uint32 = 0x414B5643 // "AKVC"

// Version is the only header version this package understands.
const Version uint16 = 1

// HeaderSize is the fixed on-wire size of Header, in bytes.
const HeaderSize = 4 + 2 + 2 + 8 + 8 + 4 + 4 + 4 + 4 + 4 + 4 + 4

// Header is the fixed record written immediately before every frame's
// payload in a shared-frame slot.
type Header struct {
	Magic       uint32
	Version     uint16
	Flags       uint16
	Sequence    uint64
	TimestampNs int64
	FormatTag   uint32
	Width       uint32
	Height      uint32
	FPSNum      uint32
	FPSDen      uint32
	PayloadLen  uint32
	Reserved    uint32
}

// HeaderFor builds a Header for f, stamped with sequence and timestampNs.
func HeaderFor(f videoformat.VideoFrame, sequence uint64, timestampNs int64) Header {
	return Header{
		Magic:       Magic,
		Version:     Version,
		Sequence:    sequence,
		TimestampNs: timestampNs,
		FormatTag:   uint32(f.Format.PixelFormat),
		Width:       f.Format.Width,
		Height:      f.Format.Height,
		FPSNum:      f.Format.FPS.Num,
		FPSDen:      f.Format.FPS.Den,
		PayloadLen:  uint32(len(f.Data)),
	}
}

// Encode writes h's wire representation to b, which must be at least
// HeaderSize bytes.
func (h Header) Encode(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint16(b[4:6], h.Version)
	binary.LittleEndian.PutUint16(b[6:8], h.Flags)
	binary.LittleEndian.PutUint64(b[8:16], h.Sequence)
	binary.LittleEndian.PutUint64(b[16:24], uint64(h.TimestampNs))
	binary.LittleEndian.PutUint32(b[24:28], h.FormatTag)
	binary.LittleEndian.PutUint32(b[28:32], h.Width)
	binary.LittleEndian.PutUint32(b[32:36], h.Height)
	binary.LittleEndian.PutUint32(b[36:40], h.FPSNum)
	binary.LittleEndian.PutUint32(b[40:44], h.FPSDen)
	binary.LittleEndian.PutUint32(b[44:48], h.PayloadLen)
	binary.LittleEndian.PutUint32(b[48:52], 0)
}

// DecodeHeader parses a Header from b, which must be at least HeaderSize
// bytes. It returns a Corrupted-kind error if the magic or version don't
// match, which callers should treat as "slot uninitialized or abandoned."
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, akerrors.New(akerrors.Corrupted, "short header")
	}
	h := Header{
		Magic:       binary.LittleEndian.Uint32(b[0:4]),
		Version:     binary.LittleEndian.Uint16(b[4:6]),
		Flags:       binary.LittleEndian.Uint16(b[6:8]),
		Sequence:    binary.LittleEndian.Uint64(b[8:16]),
		TimestampNs: int64(binary.LittleEndian.Uint64(b[16:24])),
		FormatTag:   binary.LittleEndian.Uint32(b[24:28]),
		Width:       binary.LittleEndian.Uint32(b[28:32]),
		Height:      binary.LittleEndian.Uint32(b[32:36]),
		FPSNum:      binary.LittleEndian.Uint32(b[36:40]),
		FPSDen:      binary.LittleEndian.Uint32(b[40:44]),
		PayloadLen:  binary.LittleEndian.Uint32(b[44:48]),
		Reserved:    binary.LittleEndian.Uint32(b[48:52]),
	}
	if h.Magic != Magic {
		return Header{}, akerrors.New(akerrors.Corrupted, "bad magic in frame header")
	}
	if h.Version != Version {
		return Header{}, akerrors.New(akerrors.Unsupported, "unsupported frame header version")
	}
	return h, nil
}

// videoFormat reconstructs the VideoFormat the header describes.
func (h Header) videoFormat() videoformat.VideoFormat {
	return videoformat.VideoFormat{
		PixelFormat: videoformat.PixelFormat(h.FormatTag),
		Width:       h.Width,
		Height:      h.Height,
		FPS:         videoformat.Fraction{Num: h.FPSNum, Den: h.FPSDen},
	}
}
