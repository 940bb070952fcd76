/*
NAME
  file.go

DESCRIPTION
  file.go implements Load and Save for the INI-like preferences file
  format: section headers, key = value entries, # and ;
  comments, and atomic commit via a sibling temp file plus rename.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package prefs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/akvcam/videoformat"
)

const (
	groupGlobal  = "Global"
	keyPicture   = "picture"
	keyLogLevel  = "log_level"
	groupCameras = "Cameras"
)

// Load reads the preferences file at path into a new Store. A missing file
// yields an empty Store, not an error. A parse error on any line aborts the load and returns an
// error with the partially-built state discarded.
func Load(path string, log logging.Logger) (*Store, error) {
	s := New(log)

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		s.logf(logging.Info, "no preferences file found, starting empty", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "open preferences file")
	}
	defer f.Close()

	raw, err := parseINI(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parse preferences file %s", path)
	}

	devices, picture, logLevel, err := decodeSections(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode preferences")
	}
	s.replace(devices, picture, logLevel)
	s.logf(logging.Debug, "preferences loaded", "path", path, "devices", len(devices))
	return s, nil
}

// Save writes s to path, going first to a sibling temp file and renaming
// it into place so a crash mid-write can never leave a corrupt or
// half-written preferences file for a concurrent reader to observe.
func (s *Store) Save(path string) error {
	devices, picture, logLevel := s.snapshot()

	var b strings.Builder
	encodeGlobal(&b, picture, logLevel)
	encodeDevices(&b, devices)

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".prefs-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp preferences file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // No-op once the rename below succeeds.

	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp preferences file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp preferences file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "rename preferences file into place")
	}
	return nil
}

type iniEntry struct {
	group string
	key   string
	value string
}

// parseINI tokenises the file into a flat list of (group, key, value)
// entries, unescaping values as it goes. Keys with no leading section are
// assigned to the "General" section.
func parseINI(f *os.File) ([]iniEntry, error) {
	var entries []iniEntry
	group := "General"

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") || len(line) < 3 {
				return nil, fmt.Errorf("line %d: malformed section header %q", lineNo, line)
			}
			group = strings.TrimSpace(line[1 : len(line)-1])
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			return nil, fmt.Errorf("line %d: missing '=' in %q", lineNo, line)
		}
		key := strings.TrimSpace(line[:idx])
		key = strings.ReplaceAll(key, "\\", "/")
		if key == "" {
			return nil, fmt.Errorf("line %d: empty key", lineNo)
		}
		value := unescape(strings.TrimSpace(line[idx+1:]))
		entries = append(entries, iniEntry{group: group, key: key, value: value})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// decodeSections turns the flat entry list into devices plus globals.
func decodeSections(entries []iniEntry) (devices []Device, picture string, logLevel int8, err error) {
	type rawDevice struct {
		id, description string
		directMode      bool
		formats         map[int]map[string]string // 1-based format index -> field -> value
		controls        map[string]string
	}
	raw := map[int]*rawDevice{} // 1-based camera index -> record
	var order []int

	get := func(idx int) *rawDevice {
		if r, ok := raw[idx]; ok {
			return r
		}
		r := &rawDevice{formats: map[int]map[string]string{}, controls: map[string]string{}}
		raw[idx] = r
		order = append(order, idx)
		return r
	}

	for _, e := range entries {
		switch e.group {
		case groupGlobal:
			switch e.key {
			case keyPicture:
				picture = e.value
			case keyLogLevel:
				n, convErr := strconv.ParseInt(e.value, 10, 8)
				if convErr != nil {
					return nil, "", 0, fmt.Errorf("invalid %s/%s value %q", groupGlobal, keyLogLevel, e.value)
				}
				logLevel = int8(n)
			}
		case groupCameras:
			parts := strings.SplitN(e.key, "/", 3)
			idx, convErr := strconv.Atoi(parts[0])
			if convErr != nil || len(parts) < 2 {
				return nil, "", 0, fmt.Errorf("invalid Cameras key %q", e.key)
			}
			r := get(idx)
			switch parts[1] {
			case "id":
				r.id = e.value
			case "description":
				r.description = e.value
			case "direct_mode":
				r.directMode = e.value == "true" || e.value == "1"
			case "Formats":
				if len(parts) < 3 {
					continue
				}
				fparts := strings.SplitN(parts[2], "/", 2)
				fidx, convErr := strconv.Atoi(fparts[0])
				if convErr != nil || len(fparts) < 2 {
					continue
				}
				if r.formats[fidx] == nil {
					r.formats[fidx] = map[string]string{}
				}
				r.formats[fidx][fparts[1]] = e.value
			case "Controls":
				if len(parts) < 3 {
					continue
				}
				r.controls[parts[2]] = e.value
			}
		}
	}

	for _, idx := range order {
		r := raw[idx]
		d := Device{ID: r.id, Description: r.description, DirectMode: r.directMode, Controls: map[string]int{}}
		for k, v := range r.controls {
			n, convErr := strconv.Atoi(v)
			if convErr != nil {
				return nil, "", 0, fmt.Errorf("device %s: invalid control %s value %q", r.id, k, v)
			}
			d.Controls[k] = n
		}
		d.Formats = decodeFormats(r.formats)
		devices = append(devices, d)
	}
	return devices, picture, logLevel, nil
}

func decodeFormats(raw map[int]map[string]string) []videoformat.VideoFormat {
	indices := make([]int, 0, len(raw))
	for i := range raw {
		indices = append(indices, i)
	}
	sortInts(indices)

	formats := make([]videoformat.VideoFormat, 0, len(indices))
	for _, i := range indices {
		fields := raw[i]
		pf, _ := videoformat.ParsePixelFormat(fields["pixel_format"])
		w, _ := strconv.ParseUint(fields["width"], 10, 32)
		h, _ := strconv.ParseUint(fields["height"], 10, 32)
		num, den := uint64(0), uint64(1)
		if fr := fields["fps"]; fr != "" {
			parts := strings.SplitN(fr, "/", 2)
			num, _ = strconv.ParseUint(parts[0], 10, 32)
			if len(parts) == 2 {
				den, _ = strconv.ParseUint(parts[1], 10, 32)
			}
		}
		formats = append(formats, videoformat.VideoFormat{
			PixelFormat: pf,
			Width:       uint32(w),
			Height:      uint32(h),
			FPS:         videoformat.Fraction{Num: uint32(num), Den: uint32(den)},
		})
	}
	return formats
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func encodeGlobal(b *strings.Builder, picture string, logLevel int8) {
	fmt.Fprintf(b, "[%s]\n", groupGlobal)
	if picture != "" {
		fmt.Fprintf(b, "%s = %s\n", keyPicture, quoteIfNeeded(picture))
	}
	fmt.Fprintf(b, "%s = %d\n", keyLogLevel, logLevel)
	b.WriteString("\n")
}

func encodeDevices(b *strings.Builder, devices []Device) {
	fmt.Fprintf(b, "[%s]\n", groupCameras)
	for i, d := range devices {
		idx := i + 1 // Persisted indices are 1-based and contiguous.
		fmt.Fprintf(b, "%d/id = %s\n", idx, quoteIfNeeded(d.ID))
		fmt.Fprintf(b, "%d/description = %s\n", idx, quoteIfNeeded(d.Description))
		fmt.Fprintf(b, "%d/direct_mode = %t\n", idx, d.DirectMode)
		for fi, f := range d.Formats {
			fidx := fi + 1
			fmt.Fprintf(b, "%d/Formats/%d/pixel_format = %s\n", idx, fidx, f.PixelFormat)
			fmt.Fprintf(b, "%d/Formats/%d/width = %d\n", idx, fidx, f.Width)
			fmt.Fprintf(b, "%d/Formats/%d/height = %d\n", idx, fidx, f.Height)
			fmt.Fprintf(b, "%d/Formats/%d/fps = %s\n", idx, fidx, f.FPS)
		}
		for _, k := range sortedControlKeys(d.Controls) {
			fmt.Fprintf(b, "%d/Controls/%s = %d\n", idx, k, d.Controls[k])
		}
	}
}
