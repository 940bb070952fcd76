/*
NAME
  messages.go

DESCRIPTION
  messages.go implements the AKCP message catalog: one Go type
  per request/reply/notification payload, each able to encode itself into
  a Frame body and decode itself back out.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package control

import (
	"github.com/ausocean/akvcam/internal/akerrors"
	"github.com/ausocean/akvcam/videoformat"
)

func writeFormatList(w *bodyWriter, formats []videoformat.VideoFormat) {
	w.u32(uint32(len(formats)))
	for _, f := range formats {
		w.u32(uint32(f.PixelFormat))
		w.u32(f.Width)
		w.u32(f.Height)
		w.u32(f.FPS.Num)
		w.u32(f.FPS.Den)
	}
}

func readFormatList(r *bodyReader) ([]videoformat.VideoFormat, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]videoformat.VideoFormat, n)
	for i := range out {
		tag, err := r.u32()
		if err != nil {
			return nil, err
		}
		w, err := r.u32()
		if err != nil {
			return nil, err
		}
		h, err := r.u32()
		if err != nil {
			return nil, err
		}
		num, err := r.u32()
		if err != nil {
			return nil, err
		}
		den, err := r.u32()
		if err != nil {
			return nil, err
		}
		out[i] = videoformat.VideoFormat{
			PixelFormat: videoformat.PixelFormat(tag),
			Width:       w,
			Height:      h,
			FPS:         videoformat.Fraction{Num: num, Den: den},
		}
	}
	return out, nil
}

// Role identifies what a peer intends to do on the devices it touches.
type Role uint8

const (
	RoleGeneric Role = iota
	RoleProducer
	RoleConsumer
)

// HelloRequest is the first message any peer sends.
type HelloRequest struct {
	Role          Role
	SuggestedName string
}

func (m HelloRequest) Encode() []byte {
	var w bodyWriter
	w.buf = append(w.buf, byte(m.Role))
	w.string(m.SuggestedName)
	return w.Bytes()
}

func DecodeHelloRequest(b []byte) (HelloRequest, error) {
	r := newBodyReader(b)
	if err := r.need(1); err != nil {
		return HelloRequest{}, err
	}
	role := Role(r.buf[r.off])
	r.off++
	name, err := r.string()
	if err != nil {
		return HelloRequest{}, err
	}
	return HelloRequest{Role: role, SuggestedName: name}, r.done()
}

// HelloReply answers HelloRequest with an assigned peer id.
type HelloReply struct {
	PeerID        string
	ServerVersion string
}

func (m HelloReply) Encode() []byte {
	var w bodyWriter
	w.string(m.PeerID)
	w.string(m.ServerVersion)
	return w.Bytes()
}

func DecodeHelloReply(b []byte) (HelloReply, error) {
	r := newBodyReader(b)
	id, err := r.string()
	if err != nil {
		return HelloReply{}, err
	}
	v, err := r.string()
	if err != nil {
		return HelloReply{}, err
	}
	return HelloReply{PeerID: id, ServerVersion: v}, r.done()
}

// ByeRequest ends a peer's session.
type ByeRequest struct {
	PeerID string
}

func (m ByeRequest) Encode() []byte {
	var w bodyWriter
	w.string(m.PeerID)
	return w.Bytes()
}

func DecodeByeRequest(b []byte) (ByeRequest, error) {
	r := newBodyReader(b)
	id, err := r.string()
	if err != nil {
		return ByeRequest{}, err
	}
	return ByeRequest{PeerID: id}, r.done()
}

// ListDevicesReply carries the ordered device_id list.
type ListDevicesReply struct {
	DeviceIDs []string
}

func (m ListDevicesReply) Encode() []byte {
	var w bodyWriter
	w.stringList(m.DeviceIDs)
	return w.Bytes()
}

func DecodeListDevicesReply(b []byte) (ListDevicesReply, error) {
	r := newBodyReader(b)
	ids, err := r.stringList()
	if err != nil {
		return ListDevicesReply{}, err
	}
	return ListDevicesReply{DeviceIDs: ids}, r.done()
}

// DeviceInfoRequest asks for one device's current state.
type DeviceInfoRequest struct {
	DeviceID string
}

func (m DeviceInfoRequest) Encode() []byte {
	var w bodyWriter
	w.string(m.DeviceID)
	return w.Bytes()
}

func DecodeDeviceInfoRequest(b []byte) (DeviceInfoRequest, error) {
	r := newBodyReader(b)
	id, err := r.string()
	if err != nil {
		return DeviceInfoRequest{}, err
	}
	return DeviceInfoRequest{DeviceID: id}, r.done()
}

// DeviceInfoReply describes one device.
type DeviceInfoReply struct {
	Description   string
	Formats       []videoformat.VideoFormat
	Broadcaster   string // Empty if idle.
	ListenerCount uint32
}

func (m DeviceInfoReply) Encode() []byte {
	var w bodyWriter
	w.string(m.Description)
	writeFormatList(&w, m.Formats)
	w.string(m.Broadcaster)
	w.u32(m.ListenerCount)
	return w.Bytes()
}

func DecodeDeviceInfoReply(b []byte) (DeviceInfoReply, error) {
	r := newBodyReader(b)
	desc, err := r.string()
	if err != nil {
		return DeviceInfoReply{}, err
	}
	formats, err := readFormatList(r)
	if err != nil {
		return DeviceInfoReply{}, err
	}
	bc, err := r.string()
	if err != nil {
		return DeviceInfoReply{}, err
	}
	n, err := r.u32()
	if err != nil {
		return DeviceInfoReply{}, err
	}
	return DeviceInfoReply{Description: desc, Formats: formats, Broadcaster: bc, ListenerCount: n}, r.done()
}

// AddDeviceRequest registers a new device.
type AddDeviceRequest struct {
	Description string
	PreferredID string
}

func (m AddDeviceRequest) Encode() []byte {
	var w bodyWriter
	w.string(m.Description)
	w.string(m.PreferredID)
	return w.Bytes()
}

func DecodeAddDeviceRequest(b []byte) (AddDeviceRequest, error) {
	r := newBodyReader(b)
	desc, err := r.string()
	if err != nil {
		return AddDeviceRequest{}, err
	}
	pref, err := r.string()
	if err != nil {
		return AddDeviceRequest{}, err
	}
	return AddDeviceRequest{Description: desc, PreferredID: pref}, r.done()
}

// AddDeviceReply carries the assigned device_id.
type AddDeviceReply struct {
	DeviceID string
}

func (m AddDeviceReply) Encode() []byte {
	var w bodyWriter
	w.string(m.DeviceID)
	return w.Bytes()
}

func DecodeAddDeviceReply(b []byte) (AddDeviceReply, error) {
	r := newBodyReader(b)
	id, err := r.string()
	if err != nil {
		return AddDeviceReply{}, err
	}
	return AddDeviceReply{DeviceID: id}, r.done()
}

// RemoveDeviceRequest/StopBroadcastRequest/AddListenerRequest/
// RemoveListenerRequest/GetControlsRequest all share the same shape: a
// bare device_id. deviceIDRequest backs all of them.
type deviceIDRequest struct {
	DeviceID string
}

func (m deviceIDRequest) Encode() []byte {
	var w bodyWriter
	w.string(m.DeviceID)
	return w.Bytes()
}

func decodeDeviceIDRequest(b []byte) (deviceIDRequest, error) {
	r := newBodyReader(b)
	id, err := r.string()
	if err != nil {
		return deviceIDRequest{}, err
	}
	return deviceIDRequest{DeviceID: id}, r.done()
}

type (
	RemoveDeviceRequest          = deviceIDRequest
	StopBroadcastRequest         = deviceIDRequest
	AddListenerRequest           = deviceIDRequest
	RemoveListenerRequest        = deviceIDRequest
	GetControlsRequest           = deviceIDRequest
	GetControlDescriptorsRequest = deviceIDRequest
)

var (
	DecodeRemoveDeviceRequest          = decodeDeviceIDRequest
	DecodeStopBroadcastRequest         = decodeDeviceIDRequest
	DecodeAddListenerRequest           = decodeDeviceIDRequest
	DecodeRemoveListenerRequest        = decodeDeviceIDRequest
	DecodeGetControlsRequest           = decodeDeviceIDRequest
	DecodeGetControlDescriptorsRequest = decodeDeviceIDRequest
)

// SetFormatsRequest replaces a device's advertised format list.
type SetFormatsRequest struct {
	DeviceID string
	Formats  []videoformat.VideoFormat
}

func (m SetFormatsRequest) Encode() []byte {
	var w bodyWriter
	w.string(m.DeviceID)
	writeFormatList(&w, m.Formats)
	return w.Bytes()
}

func DecodeSetFormatsRequest(b []byte) (SetFormatsRequest, error) {
	r := newBodyReader(b)
	id, err := r.string()
	if err != nil {
		return SetFormatsRequest{}, err
	}
	formats, err := readFormatList(r)
	if err != nil {
		return SetFormatsRequest{}, err
	}
	return SetFormatsRequest{DeviceID: id, Formats: formats}, r.done()
}

// StartBroadcastRequest claims a device as the sole broadcaster.
type StartBroadcastRequest struct {
	DeviceID string
	Format   videoformat.VideoFormat
}

func (m StartBroadcastRequest) Encode() []byte {
	var w bodyWriter
	w.string(m.DeviceID)
	writeFormatList(&w, []videoformat.VideoFormat{m.Format})
	return w.Bytes()
}

func DecodeStartBroadcastRequest(b []byte) (StartBroadcastRequest, error) {
	r := newBodyReader(b)
	id, err := r.string()
	if err != nil {
		return StartBroadcastRequest{}, err
	}
	formats, err := readFormatList(r)
	if err != nil {
		return StartBroadcastRequest{}, err
	}
	if len(formats) != 1 {
		return StartBroadcastRequest{}, akerrors.New(akerrors.InvalidArgument, "StartBroadcast requires exactly one format")
	}
	return StartBroadcastRequest{DeviceID: id, Format: formats[0]}, r.done()
}

// SetControlsRequest updates a device's control values.
type SetControlsRequest struct {
	DeviceID string
	Controls map[string]int
}

func (m SetControlsRequest) Encode() []byte {
	var w bodyWriter
	w.string(m.DeviceID)
	w.controlMap(m.Controls)
	return w.Bytes()
}

func DecodeSetControlsRequest(b []byte) (SetControlsRequest, error) {
	r := newBodyReader(b)
	id, err := r.string()
	if err != nil {
		return SetControlsRequest{}, err
	}
	m, err := r.controlMap()
	if err != nil {
		return SetControlsRequest{}, err
	}
	return SetControlsRequest{DeviceID: id, Controls: m}, r.done()
}

// GetControlsReply carries a device's current control values.
type GetControlsReply struct {
	Controls map[string]int
}

func (m GetControlsReply) Encode() []byte {
	var w bodyWriter
	w.controlMap(m.Controls)
	return w.Bytes()
}

func DecodeGetControlsReply(b []byte) (GetControlsReply, error) {
	r := newBodyReader(b)
	m, err := r.controlMap()
	if err != nil {
		return GetControlsReply{}, err
	}
	return GetControlsReply{Controls: m}, r.done()
}

// Ack is the generic "it worked" reply body used by requests with no
// payload of their own (Bye, RemoveDevice, UpdateDevices, SetFormats,
// StartBroadcast, StopBroadcast, AddListener, RemoveListener, SetControls,
// Ping).
type Ack struct{}

func (Ack) Encode() []byte { return nil }

func DecodeAck(b []byte) (Ack, error) {
	if len(b) != 0 {
		return Ack{}, akerrors.New(akerrors.Transport, "unexpected bytes in ack body")
	}
	return Ack{}, nil
}

// DevicesChangedNotification announces the full current device_id list.
type DevicesChangedNotification struct {
	DeviceIDs []string
}

func (m DevicesChangedNotification) Encode() []byte {
	var w bodyWriter
	w.stringList(m.DeviceIDs)
	return w.Bytes()
}

func DecodeDevicesChangedNotification(b []byte) (DevicesChangedNotification, error) {
	r := newBodyReader(b)
	ids, err := r.stringList()
	if err != nil {
		return DevicesChangedNotification{}, err
	}
	return DevicesChangedNotification{DeviceIDs: ids}, r.done()
}

// BroadcastingChangedNotification announces a device's new broadcaster,
// or an empty peer id when the device returns to idle.
type BroadcastingChangedNotification struct {
	DeviceID    string
	Broadcaster string
}

func (m BroadcastingChangedNotification) Encode() []byte {
	var w bodyWriter
	w.string(m.DeviceID)
	w.string(m.Broadcaster)
	return w.Bytes()
}

func DecodeBroadcastingChangedNotification(b []byte) (BroadcastingChangedNotification, error) {
	r := newBodyReader(b)
	id, err := r.string()
	if err != nil {
		return BroadcastingChangedNotification{}, err
	}
	bc, err := r.string()
	if err != nil {
		return BroadcastingChangedNotification{}, err
	}
	return BroadcastingChangedNotification{DeviceID: id, Broadcaster: bc}, r.done()
}

// PictureChangedNotification announces a new global picture overlay path.
type PictureChangedNotification struct {
	Path string
}

func (m PictureChangedNotification) Encode() []byte {
	var w bodyWriter
	w.string(m.Path)
	return w.Bytes()
}

func DecodePictureChangedNotification(b []byte) (PictureChangedNotification, error) {
	r := newBodyReader(b)
	p, err := r.string()
	if err != nil {
		return PictureChangedNotification{}, err
	}
	return PictureChangedNotification{Path: p}, r.done()
}

// ControlsChangedNotification announces a device's new control values.
type ControlsChangedNotification struct {
	DeviceID string
	Controls map[string]int
}

func (m ControlsChangedNotification) Encode() []byte {
	var w bodyWriter
	w.string(m.DeviceID)
	w.controlMap(m.Controls)
	return w.Bytes()
}

func DecodeControlsChangedNotification(b []byte) (ControlsChangedNotification, error) {
	r := newBodyReader(b)
	id, err := r.string()
	if err != nil {
		return ControlsChangedNotification{}, err
	}
	m, err := r.controlMap()
	if err != nil {
		return ControlsChangedNotification{}, err
	}
	return ControlsChangedNotification{DeviceID: id, Controls: m}, r.done()
}

// ListenerChangedNotification backs both ListenerAdded and
// ListenerRemoved, which share a (device_id, peer_id) payload.
type ListenerChangedNotification struct {
	DeviceID string
	PeerID   string
}

func (m ListenerChangedNotification) Encode() []byte {
	var w bodyWriter
	w.string(m.DeviceID)
	w.string(m.PeerID)
	return w.Bytes()
}

func DecodeListenerChangedNotification(b []byte) (ListenerChangedNotification, error) {
	r := newBodyReader(b)
	id, err := r.string()
	if err != nil {
		return ListenerChangedNotification{}, err
	}
	peer, err := r.string()
	if err != nil {
		return ListenerChangedNotification{}, err
	}
	return ListenerChangedNotification{DeviceID: id, PeerID: peer}, r.done()
}
