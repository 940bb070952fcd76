/*
NAME
  notify_test.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package broker

import (
	"net"
	"sync"
	"testing"

	"github.com/ausocean/akvcam/control"
	"github.com/ausocean/akvcam/prefs"
	"github.com/ausocean/akvcam/videoformat"
)

// TestBroadcastingChangedOrdering hammers StartBroadcast/StopBroadcast on
// one device from two racing peers and checks the notification stream an
// observer actually receives: no broadcaster may be seen replacing
// another without an intervening idle (empty-broadcaster) notification,
// i.e. emission order must match transition order.
func TestBroadcastingChangedOrdering(t *testing.T) {
	store := prefs.New(nil)
	id, err := store.AddDevice("ordering cam", "ord-cam")
	if err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	if err := store.SetFormats(id, []videoformat.VideoFormat{rgb640()}); err != nil {
		t.Fatalf("SetFormats: %v", err)
	}
	b := New(Config{}, store)

	srvEnd, peerEnd := net.Pipe()
	conn := control.NewConn(srvEnd, nil)
	defer conn.Close()
	b.RegisterPeer("observer", control.RoleGeneric, conn)

	observed := make(chan string, 1024)
	go func() {
		defer close(observed)
		for {
			f, err := control.ReadFrame(peerEnd)
			if err != nil {
				return
			}
			if f.ID != control.MsgBroadcastingChanged {
				continue
			}
			n, err := control.DecodeBroadcastingChangedNotification(f.Body)
			if err != nil {
				return
			}
			observed <- n.Broadcaster
		}
	}()

	var wg sync.WaitGroup
	for _, peer := range []string{"p1", "p2"} {
		peer := peer
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if err := b.StartBroadcast(peer, id, rgb640()); err != nil {
					continue // Busy: the other peer holds the device.
				}
				b.StopBroadcast(peer, id)
			}
		}()
	}
	wg.Wait()
	conn.Close()
	peerEnd.Close()

	last := ""
	for bc := range observed {
		if bc != "" && last != "" {
			t.Fatalf("broadcaster %q observed replacing %q with no idle notification between", bc, last)
		}
		last = bc
	}
}
