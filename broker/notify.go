/*
NAME
  notify.go

DESCRIPTION
  notify.go fans out the five AKCP notification kinds to
  every connected peer's control.Conn, best-effort: a write failure to
  one peer is logged and does not block delivery to the others.

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
	"github.com/ausocean/utils/logging"

	"github.com/ausocean/akvcam/control"
)

func (b *Broker) broadcastDevicesChanged() {
	body := control.DevicesChangedNotification{DeviceIDs: b.prefs.ListDevices()}.Encode()
	b.notifyAll(control.MsgDevicesChanged, body)
}

func (b *Broker) broadcastBroadcastingChanged(deviceID, broadcaster string) {
	body := control.BroadcastingChangedNotification{DeviceID: deviceID, Broadcaster: broadcaster}.Encode()
	b.notifyAll(control.MsgBroadcastingChanged, body)
}

func (b *Broker) broadcastPictureChanged(path string) {
	body := control.PictureChangedNotification{Path: path}.Encode()
	b.notifyAll(control.MsgPictureChanged, body)
}

func (b *Broker) broadcastControlsChanged(deviceID string, values map[string]int) {
	body := control.ControlsChangedNotification{DeviceID: deviceID, Controls: values}.Encode()
	b.notifyAll(control.MsgControlsChanged, body)
}

func (b *Broker) broadcastListenerChanged(id control.MessageID, deviceID, peerID string) {
	body := control.ListenerChangedNotification{DeviceID: deviceID, PeerID: peerID}.Encode()
	b.notifyAll(id, body)
}

// NotifyShutdown emits a best-effort empty DevicesChanged to every
// connected peer so captures fall back to their test pattern before the
// broker goes away. Peers must not depend on receiving it.
func (b *Broker) NotifyShutdown() {
	b.notifyAll(control.MsgDevicesChanged, control.DevicesChangedNotification{}.Encode())
}

func (b *Broker) notifyAll(id control.MessageID, body []byte) {
	b.forEachPeer(func(p *peer) {
		if p.conn == nil {
			return
		}
		if err := p.conn.Notify(id, body); err != nil {
			b.logf(logging.Debug, "notify failed, peer likely gone", "peer", p.id, "message_id", id, "error", err)
		}
	})
}
