/*
NAME
  controls.go

DESCRIPTION
  controls.go defines the descriptor table for the controls every virtual
  camera exposes: flip, rotation, scaling and aspect policy, RGB swap and
  the color adjustments. Descriptors give UIs the type, range and menu
  labels behind the raw key->int map carried by GetControls/SetControls.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package broker

import (
	"github.com/ausocean/akvcam/control"
	"github.com/ausocean/akvcam/internal/akerrors"
)

// deviceControls is the closed set of controls a device carries. The
// names double as the keys of the persisted control map.
var deviceControls = []control.DeviceControl{
	{Name: "hflip", Type: control.ControlBoolean, Min: 0, Max: 1, Step: 1},
	{Name: "vflip", Type: control.ControlBoolean, Min: 0, Max: 1, Step: 1},
	{Name: "scaling", Type: control.ControlMenu, Min: 0, Max: 1, Step: 1, Options: []string{"Fast", "Linear"}},
	{Name: "aspect_ratio", Type: control.ControlMenu, Min: 0, Max: 2, Step: 1, Options: []string{"Ignore", "Keep", "Expanding"}},
	{Name: "swap_rgb", Type: control.ControlBoolean, Min: 0, Max: 1, Step: 1},
	{Name: "hue", Type: control.ControlInteger, Min: -359, Max: 359, Step: 1},
	{Name: "saturation", Type: control.ControlInteger, Min: -255, Max: 255, Step: 1},
	{Name: "luminance", Type: control.ControlInteger, Min: -255, Max: 255, Step: 1},
	{Name: "gamma", Type: control.ControlInteger, Min: -255, Max: 255, Step: 1},
	{Name: "contrast", Type: control.ControlInteger, Min: -255, Max: 255, Step: 1},
	{Name: "gray", Type: control.ControlBoolean, Min: 0, Max: 1, Step: 1},
}

// controlDescriptor returns the descriptor for key, or false if key is not
// a known control.
func controlDescriptor(key string) (control.DeviceControl, bool) {
	for _, d := range deviceControls {
		if d.Name == key {
			return d, true
		}
	}
	return control.DeviceControl{}, false
}

// validateControl rejects unknown control keys and out-of-range values.
func validateControl(key string, v int) error {
	d, ok := controlDescriptor(key)
	if !ok {
		return akerrors.New(akerrors.InvalidArgument, "unknown control "+key)
	}
	if v < d.Min || v > d.Max {
		return akerrors.New(akerrors.InvalidArgument, "control value out of range for "+key)
	}
	return nil
}

// ControlDescriptors answers GetControlDescriptors: the device's current
// values alongside the full descriptor table.
func (b *Broker) ControlDescriptors(id string) (control.GetControlsDescriptorsReply, error) {
	if b.deviceOrNil(id) == nil {
		return control.GetControlsDescriptorsReply{}, akerrors.New(akerrors.NotFound, "no such device")
	}
	return control.GetControlsDescriptorsReply{
		Controls:    b.prefs.Controls(id),
		Descriptors: deviceControls,
	}, nil
}
