/*
NAME
  peer.go

DESCRIPTION
  peer.go tracks one connected peer's identity and the device relationships
  it currently holds (broadcaster/listener), so a crashed or timed-out
  peer's state can be released without leaking a broadcast slot or a
  listener registration. A peer crashing mid-protocol must not leak a
  device broadcast or a listener slot.

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
	"sync"

	"github.com/ausocean/akvcam/control"
)

// peer is the broker's record of one connected client.
type peer struct {
	id   string
	role control.Role
	conn *control.Conn

	mu          sync.Mutex
	missedPings int
	broadcasts  map[string]struct{} // device_ids this peer is currently broadcasting.
	listens     map[string]struct{} // device_ids this peer is currently listening on.
}

func newPeer(id string, role control.Role, conn *control.Conn) *peer {
	return &peer{
		id:         id,
		role:       role,
		conn:       conn,
		broadcasts: map[string]struct{}{},
		listens:    map[string]struct{}{},
	}
}

func (p *peer) noteBroadcasting(deviceID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcasts[deviceID] = struct{}{}
}

func (p *peer) noteStoppedBroadcasting(deviceID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.broadcasts, deviceID)
}

func (p *peer) noteListening(deviceID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listens[deviceID] = struct{}{}
}

func (p *peer) noteStoppedListening(deviceID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.listens, deviceID)
}

// devicesHeld returns snapshots of the device_ids this peer is currently
// broadcasting and listening on, for cleanup on death.
func (p *peer) devicesHeld() (broadcasting, listening []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.broadcasts {
		broadcasting = append(broadcasting, id)
	}
	for id := range p.listens {
		listening = append(listening, id)
	}
	return broadcasting, listening
}

func (p *peer) resetMissedPings() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.missedPings = 0
}

// incMissedPings increments and returns the new miss count.
func (p *peer) incMissedPings() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.missedPings++
	return p.missedPings
}
