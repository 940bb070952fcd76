/*
NAME
  controls.go

DESCRIPTION
  controls.go implements DeviceControl, descriptive control metadata:
  alongside the bare key->int map GetControls/SetControls define, a device can
  describe each control's type, range and (for menu controls) its
  option labels, for UIs that want more than a raw integer.

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

// ControlType classifies a DeviceControl's value space.
type ControlType uint8

const (
	ControlInteger ControlType = iota
	ControlBoolean
	ControlMenu
)

// DeviceControl describes one named, adjustable device control.
type DeviceControl struct {
	Name    string
	Type    ControlType
	Min     int
	Max     int
	Step    int
	Default int
	Options []string // Populated only when Type == ControlMenu.
}

func (c DeviceControl) encode(w *bodyWriter) {
	w.string(c.Name)
	w.buf = append(w.buf, byte(c.Type))
	w.i32(int32(c.Min))
	w.i32(int32(c.Max))
	w.i32(int32(c.Step))
	w.i32(int32(c.Default))
	w.stringList(c.Options)
}

func decodeDeviceControl(r *bodyReader) (DeviceControl, error) {
	name, err := r.string()
	if err != nil {
		return DeviceControl{}, err
	}
	if err := r.need(1); err != nil {
		return DeviceControl{}, err
	}
	typ := ControlType(r.buf[r.off])
	r.off++
	min, err := r.i32()
	if err != nil {
		return DeviceControl{}, err
	}
	max, err := r.i32()
	if err != nil {
		return DeviceControl{}, err
	}
	step, err := r.i32()
	if err != nil {
		return DeviceControl{}, err
	}
	def, err := r.i32()
	if err != nil {
		return DeviceControl{}, err
	}
	opts, err := r.stringList()
	if err != nil {
		return DeviceControl{}, err
	}
	return DeviceControl{
		Name: name, Type: typ,
		Min: int(min), Max: int(max), Step: int(step), Default: int(def),
		Options: opts,
	}, nil
}

// GetControlsDescriptorsReply carries the descriptive metadata form of
// GetControls, alongside the raw key->int value map.
type GetControlsDescriptorsReply struct {
	Controls    map[string]int
	Descriptors []DeviceControl
}

func (m GetControlsDescriptorsReply) Encode() []byte {
	var w bodyWriter
	w.controlMap(m.Controls)
	w.u32(uint32(len(m.Descriptors)))
	for _, d := range m.Descriptors {
		d.encode(&w)
	}
	return w.Bytes()
}

func DecodeGetControlsDescriptorsReply(b []byte) (GetControlsDescriptorsReply, error) {
	r := newBodyReader(b)
	values, err := r.controlMap()
	if err != nil {
		return GetControlsDescriptorsReply{}, err
	}
	n, err := r.u32()
	if err != nil {
		return GetControlsDescriptorsReply{}, err
	}
	descriptors := make([]DeviceControl, n)
	for i := range descriptors {
		descriptors[i], err = decodeDeviceControl(r)
		if err != nil {
			return GetControlsDescriptorsReply{}, err
		}
	}
	return GetControlsDescriptorsReply{Controls: values, Descriptors: descriptors}, r.done()
}
