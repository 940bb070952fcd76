//go:build windows

/*
NAME
  channel_windows.go

DESCRIPTION
  channel_windows.go implements platformSlot for Windows: a named file
  mapping opened with CreateFileMapping/MapViewOfFile, a named mutex for
  mutual exclusion (WaitForSingleObject surfaces WAIT_ABANDONED directly,
  giving true abandoned-mutex detection unlike the unix flock emulation),
  and the same polled generation counter used on unix for the ready
  signal, since no single Win32 object broadcasts to an unbounded set of
  consumer waiters.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package sharedframe

import (
	"encoding/binary"
	"errors"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

const pollInterval = 5 * time.Millisecond

// waitTimeout is WAIT_TIMEOUT (0x102), the event value WaitForSingleObject
// returns when the interval elapses without the object becoming signaled.
const waitTimeout = 0x102

type windowsSlot struct {
	mapping      windows.Handle
	mutex        windows.Handle
	addr         uintptr
	data         []byte
	name         string
	lastReadyGen uint32
}

func newPlatformSlot(name string, size int, create bool) (platformSlot, error) {
	mutexName := windows.StringToUTF16Ptr(`Local\` + name + `.mutex`)
	mutex, err := windows.CreateMutex(nil, false, mutexName)
	if err != nil {
		return nil, err
	}

	mapName := windows.StringToUTF16Ptr(`Local\` + name + `.map`)
	var mapping windows.Handle
	var total int

	if create {
		total = size
		hi := uint32(uint64(total) >> 32)
		lo := uint32(uint64(total) & 0xffffffff)
		mapping, err = windows.CreateFileMapping(windows.InvalidHandle, nil, windows.PAGE_READWRITE, hi, lo, mapName)
		if err != nil {
			windows.CloseHandle(mutex)
			return nil, err
		}
	} else {
		mapping, err = windows.OpenFileMapping(windows.FILE_MAP_ALL_ACCESS, false, mapName)
		if err != nil {
			windows.CloseHandle(mutex)
			return nil, err
		}
		total = size // Caller passes the known negotiated size for attach.
	}

	addr, err := windows.MapViewOfFile(mapping, windows.FILE_MAP_ALL_ACCESS, 0, 0, uintptr(total))
	if err != nil {
		windows.CloseHandle(mapping)
		windows.CloseHandle(mutex)
		return nil, err
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), total)
	if total < controlBlockSize {
		return nil, errors.New("shared-frame slot too small")
	}

	return &windowsSlot{mapping: mapping, mutex: mutex, addr: addr, data: data, name: name}, nil
}

func (s *windowsSlot) Bytes() []byte {
	return s.data[controlBlockSize:]
}

func (s *windowsSlot) Lock(timeout time.Duration) (bool, error) {
	ms := uint32(timeout.Milliseconds())
	ev, err := windows.WaitForSingleObject(s.mutex, ms)
	if err != nil {
		return false, err
	}
	switch ev {
	case windows.WAIT_OBJECT_0:
		return false, nil
	case windows.WAIT_ABANDONED:
		return true, nil
	case waitTimeout:
		return false, errors.New("timed out acquiring channel lock")
	default:
		return false, errors.New("unexpected wait result acquiring channel lock")
	}
}

func (s *windowsSlot) Unlock() error {
	return windows.ReleaseMutex(s.mutex)
}

func (s *windowsSlot) SignalReady() error {
	gen := binary.LittleEndian.Uint32(s.data[8:12])
	binary.LittleEndian.PutUint32(s.data[8:12], gen+1)
	return nil
}

func (s *windowsSlot) WaitReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		gen := binary.LittleEndian.Uint32(s.data[8:12])
		if gen != s.lastReadyGen {
			s.lastReadyGen = gen
			return nil
		}
		if time.Now().After(deadline) {
			return errors.New("timed out waiting for ready signal")
		}
		time.Sleep(pollInterval)
	}
}

func (s *windowsSlot) Close() error {
	if err := windows.UnmapViewOfFile(s.addr); err != nil {
		return err
	}
	if err := windows.CloseHandle(s.mapping); err != nil {
		return err
	}
	return windows.CloseHandle(s.mutex)
}

// Unlink has no exact Win32 equivalent: named file mappings are reference
// counted by the kernel and vanish once the last handle closes. Closing
// this process's handle is the closest analogue; a later Create with the
// same name simply allocates a fresh mapping once the old one's refcount
// hits zero.
func (s *windowsSlot) Unlink() error {
	return nil
}
