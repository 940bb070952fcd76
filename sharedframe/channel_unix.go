//go:build linux || darwin

/*
NAME
  channel_unix.go

DESCRIPTION
  channel_unix.go implements platformSlot for linux and darwin: a
  named file in /dev/shm (linux) or the OS temp dir (darwin), mapped with
  x/sys/unix.Mmap, flock-based mutual exclusion and a polled generation
  counter for the ready signal, polled with a short sleep since flock
  offers no timed wait.

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
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sys/unix"
)

const pollInterval = 5 * time.Millisecond

type unixSlot struct {
	f            *os.File
	data         []byte
	path         string
	lastReadyGen uint32
}

func shmDir() string {
	if runtime.GOOS == "linux" {
		if st, err := os.Stat("/dev/shm"); err == nil && st.IsDir() {
			return "/dev/shm"
		}
	}
	return os.TempDir()
}

func shmPath(name string) string {
	return filepath.Join(shmDir(), name)
}

func newPlatformSlot(name string, size int, create bool) (platformSlot, error) {
	path := shmPath(name)

	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, err
	}

	total := size
	if create {
		if err := f.Truncate(int64(total)); err != nil {
			f.Close()
			return nil, err
		}
	} else {
		st, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, err
		}
		total = int(st.Size())
	}
	if total < controlBlockSize {
		f.Close()
		return nil, errors.New("shared-frame slot too small")
	}

	data, err := unix.Mmap(int(f.Fd()), 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &unixSlot{f: f, data: data, path: path}, nil
}

func (s *unixSlot) Bytes() []byte {
	return s.data[controlBlockSize:]
}

func (s *unixSlot) Lock(timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		err := unix.Flock(int(s.f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}
		if err != unix.EWOULDBLOCK {
			return false, err
		}
		if time.Now().After(deadline) {
			return false, errors.New("timed out acquiring channel lock")
		}
		time.Sleep(pollInterval)
	}

	writerActive := binary.LittleEndian.Uint32(s.data[4:8])
	abandoned := writerActive != 0

	binary.LittleEndian.PutUint32(s.data[0:4], uint32(os.Getpid()))
	binary.LittleEndian.PutUint32(s.data[4:8], 1)
	return abandoned, nil
}

func (s *unixSlot) Unlock() error {
	binary.LittleEndian.PutUint32(s.data[4:8], 0)
	return unix.Flock(int(s.f.Fd()), unix.LOCK_UN)
}

// SignalReady bumps the shared generation counter while the caller still
// holds the lock, so every consumer's next poll observes the new frame.
func (s *unixSlot) SignalReady() error {
	gen := binary.LittleEndian.Uint32(s.data[8:12])
	binary.LittleEndian.PutUint32(s.data[8:12], gen+1)
	return nil
}

func (s *unixSlot) WaitReady(timeout time.Duration) error {
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

func (s *unixSlot) Close() error {
	if err := unix.Munmap(s.data); err != nil {
		return err
	}
	return s.f.Close()
}

func (s *unixSlot) Unlink() error {
	return os.Remove(s.path)
}
