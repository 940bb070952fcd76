/*
NAME
  body.go

DESCRIPTION
  body.go implements the length-prefixed primitive encoding AKCP message
  bodies are built from: u32-prefixed UTF-8 strings, u32-prefixed
  lists, and u32-prefixed maps of (string, i32) pairs.

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
	"encoding/binary"

	"github.com/ausocean/akvcam/internal/akerrors"
)

// bodyWriter accumulates a message body using AKCP's primitive encodings.
type bodyWriter struct {
	buf []byte
}

func (w *bodyWriter) Bytes() []byte { return w.buf }

func (w *bodyWriter) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *bodyWriter) i32(v int32) {
	w.u32(uint32(v))
}

func (w *bodyWriter) u64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *bodyWriter) bool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *bodyWriter) string(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *bodyWriter) stringList(list []string) {
	w.u32(uint32(len(list)))
	for _, s := range list {
		w.string(s)
	}
}

func (w *bodyWriter) controlMap(m map[string]int) {
	w.u32(uint32(len(m)))
	for _, k := range sortedKeys(m) {
		w.string(k)
		w.i32(int32(m[k]))
	}
}

// sortedKeys returns m's keys in sorted order, so maps encode
// deterministically for tests and for byte-identical retransmission.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// bodyReader consumes a message body written by bodyWriter.
type bodyReader struct {
	buf []byte
	off int
}

func newBodyReader(b []byte) *bodyReader {
	return &bodyReader{buf: b}
}

func (r *bodyReader) need(n int) error {
	if r.off+n > len(r.buf) {
		return akerrors.New(akerrors.Transport, "truncated control message body")
	}
	return nil
}

func (r *bodyReader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.off : r.off+4])
	r.off += 4
	return v, nil
}

func (r *bodyReader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

func (r *bodyReader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.off : r.off+8])
	r.off += 8
	return v, nil
}

func (r *bodyReader) boolean() (bool, error) {
	if err := r.need(1); err != nil {
		return false, err
	}
	v := r.buf[r.off] != 0
	r.off++
	return v, nil
}

func (r *bodyReader) string() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	return s, nil
}

func (r *bodyReader) stringList() ([]string, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	list := make([]string, n)
	for i := range list {
		list[i], err = r.string()
		if err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (r *bodyReader) controlMap() (map[string]int, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	m := make(map[string]int, n)
	for i := uint32(0); i < n; i++ {
		k, err := r.string()
		if err != nil {
			return nil, err
		}
		v, err := r.i32()
		if err != nil {
			return nil, err
		}
		m[k] = int(v)
	}
	return m, nil
}

func (r *bodyReader) done() error {
	if r.off != len(r.buf) {
		return akerrors.New(akerrors.Transport, "trailing bytes in control message body")
	}
	return nil
}
