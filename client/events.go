/*
NAME
  events.go

DESCRIPTION
  events.go decodes AKCP notification frames into the typed events a
  Client surfaces on its Events channel.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package client

import (
	"github.com/ausocean/akvcam/control"
	"github.com/ausocean/akvcam/internal/akerrors"
)

// Event is one decoded broker notification. The concrete type is one of
// DevicesChanged, BroadcastingChanged, PictureChanged, ControlsChanged,
// ListenerAdded or ListenerRemoved.
type Event interface {
	event()
}

// DevicesChanged carries the full new device_id list.
type DevicesChanged struct {
	DeviceIDs []string
}

// BroadcastingChanged announces a device's new broadcaster; Broadcaster
// is empty when the device returned to idle.
type BroadcastingChanged struct {
	DeviceID    string
	Broadcaster string
}

// PictureChanged announces a new global picture overlay path.
type PictureChanged struct {
	Path string
}

// ControlsChanged announces a device's new control values.
type ControlsChanged struct {
	DeviceID string
	Controls map[string]int
}

// ListenerAdded announces a peer joining a device's listener set.
type ListenerAdded struct {
	DeviceID string
	PeerID   string
}

// ListenerRemoved announces a peer leaving a device's listener set.
type ListenerRemoved struct {
	DeviceID string
	PeerID   string
}

func (DevicesChanged) event()      {}
func (BroadcastingChanged) event() {}
func (PictureChanged) event()      {}
func (ControlsChanged) event()     {}
func (ListenerAdded) event()       {}
func (ListenerRemoved) event()     {}

func decodeEvent(f control.Frame) (Event, error) {
	switch f.ID {
	case control.MsgDevicesChanged:
		n, err := control.DecodeDevicesChangedNotification(f.Body)
		if err != nil {
			return nil, err
		}
		return DevicesChanged{DeviceIDs: n.DeviceIDs}, nil

	case control.MsgBroadcastingChanged:
		n, err := control.DecodeBroadcastingChangedNotification(f.Body)
		if err != nil {
			return nil, err
		}
		return BroadcastingChanged{DeviceID: n.DeviceID, Broadcaster: n.Broadcaster}, nil

	case control.MsgPictureChanged:
		n, err := control.DecodePictureChangedNotification(f.Body)
		if err != nil {
			return nil, err
		}
		return PictureChanged{Path: n.Path}, nil

	case control.MsgControlsChanged:
		n, err := control.DecodeControlsChangedNotification(f.Body)
		if err != nil {
			return nil, err
		}
		return ControlsChanged{DeviceID: n.DeviceID, Controls: n.Controls}, nil

	case control.MsgListenerAdded:
		n, err := control.DecodeListenerChangedNotification(f.Body)
		if err != nil {
			return nil, err
		}
		return ListenerAdded{DeviceID: n.DeviceID, PeerID: n.PeerID}, nil

	case control.MsgListenerRemoved:
		n, err := control.DecodeListenerChangedNotification(f.Body)
		if err != nil {
			return nil, err
		}
		return ListenerRemoved{DeviceID: n.DeviceID, PeerID: n.PeerID}, nil

	default:
		return nil, akerrors.New(akerrors.Transport, "unknown notification id")
	}
}
