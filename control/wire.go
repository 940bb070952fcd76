/*
NAME
  wire.go

DESCRIPTION
  wire.go implements the AKCP control-protocol framing and primitive body
  encoding: a fixed length-prefixed frame header followed
  by a message-specific body, encoded with explicit big-endian field
  packing (plain functions over []byte, no encoding/gob or JSON).

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package control implements the AKCP request/reply and notification
// protocol peers use to talk to the broker: device management, broadcast
// and listener lifecycle, and control-value get/set.
package control

import (
	"encoding/binary"
	"io"

	"github.com/ausocean/akvcam/internal/akerrors"
)

// Magic identifies the start of an AKCP frame.
const Magic uint32 = 0x414B4350 // "AKCP"

// frameHeaderSize is magic(4) + message_id(2) + flags(2) + correlation_id(4) + body_len(4).
const frameHeaderSize = 4 + 2 + 2 + 4 + 4

// MaxBodyLen bounds a single frame's body to guard against a corrupt or
// hostile length prefix forcing an unbounded allocation.
const MaxBodyLen = 16 << 20

// MessageID names one entry in the AKCP message catalog.
type MessageID uint16

const (
	MsgHello MessageID = iota + 1
	MsgBye
	MsgListDevices
	MsgDeviceInfo
	MsgAddDevice
	MsgRemoveDevice
	MsgUpdateDevices
	MsgSetFormats
	MsgStartBroadcast
	MsgStopBroadcast
	MsgAddListener
	MsgRemoveListener
	MsgGetControls
	MsgSetControls
	MsgPing
	MsgDevicesChanged
	MsgBroadcastingChanged
	MsgPictureChanged
	MsgControlsChanged
	MsgListenerAdded
	MsgListenerRemoved
	MsgGetControlDescriptors
)

// FlagNotification marks a frame as a server-initiated notification
// rather than a request or reply; notifications always carry a zero
// correlation id.
const FlagNotification uint16 = 1 << 0

// FlagError marks a reply frame whose body is an encoded error rather
// than the request's normal reply payload.
const FlagError uint16 = 1 << 1

// FlagReply marks a frame as a reply to a request sent by the other end.
// Both ends allocate correlation ids independently, so direction must be
// explicit for a frame to be routed to the right consumer.
const FlagReply uint16 = 1 << 2

// Frame is one AKCP protocol unit: a request, a reply, or a notification.
type Frame struct {
	ID            MessageID
	Flags         uint16
	CorrelationID uint32
	Body          []byte
}

// IsNotification reports whether f is a broker-initiated notification.
func (f Frame) IsNotification() bool {
	return f.Flags&FlagNotification != 0
}

// IsError reports whether f is a reply carrying an encoded error.
func (f Frame) IsError() bool {
	return f.Flags&FlagError != 0
}

// IsReply reports whether f answers a request sent by this end.
func (f Frame) IsReply() bool {
	return f.Flags&FlagReply != 0
}

// Encode returns f's wire representation.
func (f Frame) Encode() []byte {
	buf := make([]byte, frameHeaderSize+len(f.Body))
	binary.BigEndian.PutUint32(buf[0:4], Magic)
	binary.BigEndian.PutUint16(buf[4:6], uint16(f.ID))
	binary.BigEndian.PutUint16(buf[6:8], f.Flags)
	binary.BigEndian.PutUint32(buf[8:12], f.CorrelationID)
	binary.BigEndian.PutUint32(buf[12:16], uint32(len(f.Body)))
	copy(buf[frameHeaderSize:], f.Body)
	return buf
}

// WriteFrame writes f to w.
func WriteFrame(w io.Writer, f Frame) error {
	_, err := w.Write(f.Encode())
	if err != nil {
		return akerrors.Wrap(err, akerrors.Transport, "write control frame")
	}
	return nil
}

// ReadFrame reads and validates one frame from r.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [frameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, akerrors.Wrap(err, akerrors.Transport, "read control frame header")
	}
	magic := binary.BigEndian.Uint32(hdr[0:4])
	if magic != Magic {
		return Frame{}, akerrors.New(akerrors.Transport, "bad magic in control frame")
	}
	bodyLen := binary.BigEndian.Uint32(hdr[12:16])
	if bodyLen > MaxBodyLen {
		return Frame{}, akerrors.New(akerrors.Transport, "control frame body exceeds maximum length")
	}
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, akerrors.Wrap(err, akerrors.Transport, "read control frame body")
	}
	return Frame{
		ID:            MessageID(binary.BigEndian.Uint16(hdr[4:6])),
		Flags:         binary.BigEndian.Uint16(hdr[6:8]),
		CorrelationID: binary.BigEndian.Uint32(hdr[8:12]),
		Body:          body,
	}, nil
}
