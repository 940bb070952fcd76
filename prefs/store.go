/*
NAME
  store.go

DESCRIPTION
  store.go implements the in-memory device/format/control registry backed
  by the INI-like preferences file. Hierarchical keys are plain paths
  (Cameras/3/Formats/2/width); there is no stateful group/array cursor.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package prefs provides the persistent registry of devices, formats,
// per-device controls and global settings shared by the broker, producer
// and consumer. Reads and writes go through a Store; the backing file is
// an INI-like format written atomically via a sibling temp file
// and rename.
package prefs

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/akvcam/videoformat"
)

// DefaultIDPrefix is the common prefix used to generate a device_id when
// the caller doesn't supply a preferred one.
const DefaultIDPrefix = "AkVCamera"

// Device is the persistent record for one virtual camera.
type Device struct {
	ID          string
	Description string
	Formats     []videoformat.VideoFormat
	Controls    map[string]int
	DirectMode  bool
}

// Store is the in-memory registry of devices and global settings. All
// public methods are safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	devices  []Device // Order is the persisted 1-based contiguous index order.
	picture  string
	logLevel int8
	log      logging.Logger
}

// New returns an empty Store. log may be nil, in which case logging calls
// are silently dropped.
func New(log logging.Logger) *Store {
	return &Store{log: log}
}

func (s *Store) logf(level int8, msg string, params ...interface{}) {
	if s.log == nil {
		return
	}
	s.log.Log(level, msg, params...)
}

// indexOf returns the slice index of the device with the given id, or -1.
// Callers must hold s.mu.
func (s *Store) indexOf(id string) int {
	for i, d := range s.devices {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// AddDevice creates a new device record with the given description and
// returns its assigned device_id. If preferredID is non-empty and not
// already in use, it is used verbatim; otherwise an id is generated using
// the lowest unused numeric suffix of DefaultIDPrefix.
func (s *Store) AddDevice(description string, preferredID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	if preferredID != "" {
		if s.indexOf(preferredID) != -1 {
			return "", fmt.Errorf("device id %q already in use", preferredID)
		}
		id = preferredID
	} else {
		id = s.nextID()
	}

	s.devices = append(s.devices, Device{
		ID:          id,
		Description: description,
		Controls:    map[string]int{},
	})
	s.logf(logging.Debug, "device added", "id", id, "description", description)
	return id, nil
}

// nextID picks the lowest unused integer suffix of DefaultIDPrefix.
// Callers must hold s.mu.
func (s *Store) nextID() string {
	used := make(map[int]bool, len(s.devices))
	for _, d := range s.devices {
		if strings.HasPrefix(d.ID, DefaultIDPrefix) {
			if n, err := strconv.Atoi(strings.TrimPrefix(d.ID, DefaultIDPrefix)); err == nil {
				used[n] = true
			}
		}
	}
	for n := 0; ; n++ {
		if !used[n] {
			return fmt.Sprintf("%s%d", DefaultIDPrefix, n)
		}
	}
}

// RemoveDevice deletes the device with the given id. Removal renumbers the
// persisted index order but never the device_id itself (the index is
// positional, not a field of Device).
func (s *Store) RemoveDevice(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i == -1 {
		return fmt.Errorf("no such device %q", id)
	}
	s.devices = append(s.devices[:i], s.devices[i+1:]...)
	s.logf(logging.Debug, "device removed", "id", id)
	return nil
}

// ListDevices returns the ordered list of device ids.
func (s *Store) ListDevices() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.devices))
	for i, d := range s.devices {
		ids[i] = d.ID
	}
	return ids
}

// Description returns the human-readable description for id, or "" if id
// is unknown.
func (s *Store) Description(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i != -1 {
		return s.devices[i].Description
	}
	return ""
}

// SetDescription updates the description for id.
func (s *Store) SetDescription(id, desc string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i == -1 {
		return fmt.Errorf("no such device %q", id)
	}
	s.devices[i].Description = desc
	return nil
}

// Formats returns a copy of the format list for id.
func (s *Store) Formats(id string) []videoformat.VideoFormat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i == -1 {
		return nil
	}
	out := make([]videoformat.VideoFormat, len(s.devices[i].Formats))
	copy(out, s.devices[i].Formats)
	return out
}

// SetFormats replaces the format list for id wholesale.
func (s *Store) SetFormats(id string, formats []videoformat.VideoFormat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i == -1 {
		return fmt.Errorf("no such device %q", id)
	}
	cp := make([]videoformat.VideoFormat, len(formats))
	copy(cp, formats)
	s.devices[i].Formats = cp
	return nil
}

// AddFormat inserts format into id's format list at index (0-based). A
// negative index appends.
func (s *Store) AddFormat(id string, format videoformat.VideoFormat, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i == -1 {
		return fmt.Errorf("no such device %q", id)
	}
	list := s.devices[i].Formats
	if index < 0 || index > len(list) {
		list = append(list, format)
	} else {
		list = append(list, videoformat.VideoFormat{})
		copy(list[index+1:], list[index:])
		list[index] = format
	}
	s.devices[i].Formats = list
	return nil
}

// RemoveFormat removes the format at the given 0-based index from id's
// format list.
func (s *Store) RemoveFormat(id string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i == -1 {
		return fmt.Errorf("no such device %q", id)
	}
	list := s.devices[i].Formats
	if index < 0 || index >= len(list) {
		return fmt.Errorf("format index %d out of range", index)
	}
	s.devices[i].Formats = append(list[:index], list[index+1:]...)
	return nil
}

// ControlValue returns the current integer value of the named control on
// id, and whether it was set.
func (s *Store) ControlValue(id, key string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i == -1 {
		return 0, false
	}
	v, ok := s.devices[i].Controls[key]
	return v, ok
}

// SetControlValue sets the named control's integer value on id.
func (s *Store) SetControlValue(id, key string, v int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i == -1 {
		return fmt.Errorf("no such device %q", id)
	}
	if s.devices[i].Controls == nil {
		s.devices[i].Controls = map[string]int{}
	}
	s.devices[i].Controls[key] = v
	return nil
}

// Controls returns a copy of the full control map for id.
func (s *Store) Controls(id string) map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i == -1 {
		return nil
	}
	out := make(map[string]int, len(s.devices[i].Controls))
	for k, v := range s.devices[i].Controls {
		out[k] = v
	}
	return out
}

// DirectMode returns whether id is pinned to direct (no-transform)
// delivery.
func (s *Store) DirectMode(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i != -1 {
		return s.devices[i].DirectMode
	}
	return false
}

// SetDirectMode sets id's direct-mode flag.
func (s *Store) SetDirectMode(id string, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i == -1 {
		return fmt.Errorf("no such device %q", id)
	}
	s.devices[i].DirectMode = on
	return nil
}

// Picture returns the global picture overlay path.
func (s *Store) Picture() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.picture
}

// SetPicture sets the global picture overlay path.
func (s *Store) SetPicture(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.picture = path
}

// LogLevel returns the global log level.
func (s *Store) LogLevel() int8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logLevel
}

// SetLogLevel sets the global log level.
func (s *Store) SetLogLevel(level int8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logLevel = level
}

// Device returns a copy of the full record for id, and whether it exists.
func (s *Store) Device(id string) (Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i == -1 {
		return Device{}, false
	}
	return s.devices[i].clone(), true
}

func (d Device) clone() Device {
	formats := make([]videoformat.VideoFormat, len(d.Formats))
	copy(formats, d.Formats)
	controls := make(map[string]int, len(d.Controls))
	for k, v := range d.Controls {
		controls[k] = v
	}
	return Device{ID: d.ID, Description: d.Description, Formats: formats, Controls: controls, DirectMode: d.DirectMode}
}

// snapshot returns a deep copy of the devices slice plus globals, used by
// Save so the file encoder doesn't need to hold s.mu.
func (s *Store) snapshot() ([]Device, string, int8) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	devices := make([]Device, len(s.devices))
	for i, d := range s.devices {
		devices[i] = d.clone()
	}
	return devices, s.picture, s.logLevel
}

// replace swaps the store's entire contents, used by Load.
func (s *Store) replace(devices []Device, picture string, logLevel int8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = devices
	s.picture = picture
	s.logLevel = logLevel
}

// sortedControlKeys returns a device's control keys in deterministic
// (sorted) order, for stable file output.
func sortedControlKeys(controls map[string]int) []string {
	keys := make([]string, 0, len(controls))
	for k := range controls {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
