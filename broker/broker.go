/*
NAME
  broker.go

DESCRIPTION
  broker.go implements the broker's device-registry operations:
  add/remove/list devices, format negotiation, broadcast and
  listener lifecycle, and control get/set — each followed by the
  appropriate notification fan-out to every connected peer.

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
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/akvcam/control"
	"github.com/ausocean/akvcam/internal/akerrors"
	"github.com/ausocean/akvcam/prefs"
	"github.com/ausocean/akvcam/sharedframe"
	"github.com/ausocean/akvcam/videoformat"
)

// Broker is the long-lived coordination service: the authoritative device
// registry (backed by a prefs.Store), per-device broadcast/listener
// state, and the connected peer table.
type Broker struct {
	cfg   Config
	prefs *prefs.Store
	log   logging.Logger

	mu      sync.RWMutex
	devices map[string]*deviceState
	peers   map[string]*peer

	lastActivity time.Time
}

// New constructs a Broker over store. Call Validate on cfg before passing
// it in. The broker rebuilds its runtime device set from store, which is
// the source of truth for the persistent parts of device state; after an
// idle shutdown and relaunch, runtime state is rebuilt from scratch.
func New(cfg Config, store *prefs.Store) *Broker {
	b := &Broker{
		cfg:          cfg,
		prefs:        store,
		log:          cfg.Logger,
		devices:      map[string]*deviceState{},
		peers:        map[string]*peer{},
		lastActivity: time.Now(),
	}
	for _, id := range store.ListDevices() {
		b.devices[id] = newDeviceState(id)
	}
	return b
}

func (b *Broker) logf(level int8, msg string, params ...interface{}) {
	if b.log == nil {
		return
	}
	b.log.Log(level, msg, params...)
}

func (b *Broker) touch() {
	b.mu.Lock()
	b.lastActivity = time.Now()
	b.mu.Unlock()
}

// persist writes the store to the configured preferences path. Every
// mutation is persisted before it is announced; with no path configured
// (in-memory broker, tests) this is a no-op.
func (b *Broker) persist() {
	if b.cfg.PrefsPath == "" {
		return
	}
	if err := b.prefs.Save(b.cfg.PrefsPath); err != nil {
		b.logf(logging.Warning, "could not persist preferences", "path", b.cfg.PrefsPath, "error", err)
	}
}

// deviceOrNil returns the runtime state for id, or nil if unknown.
func (b *Broker) deviceOrNil(id string) *deviceState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.devices[id]
}

// AddDevice registers a new device and emits DevicesChanged.
func (b *Broker) AddDevice(description, preferredID string) (string, error) {
	id, err := b.prefs.AddDevice(description, preferredID)
	if err != nil {
		return "", akerrors.Wrap(err, akerrors.InvalidArgument, "add device")
	}
	b.mu.Lock()
	b.devices[id] = newDeviceState(id)
	b.mu.Unlock()
	b.persist()
	b.broadcastDevicesChanged()
	return id, nil
}

// RemoveDevice unregisters id and emits DevicesChanged.
func (b *Broker) RemoveDevice(id string) error {
	if err := b.prefs.RemoveDevice(id); err != nil {
		return akerrors.Wrap(err, akerrors.NotFound, "remove device")
	}
	b.mu.Lock()
	delete(b.devices, id)
	b.mu.Unlock()
	b.persist()
	b.broadcastDevicesChanged()
	return nil
}

// ListDevices returns the ordered device_id list.
func (b *Broker) ListDevices() []string {
	return b.prefs.ListDevices()
}

// DeviceInfo answers a DeviceInfo request.
func (b *Broker) DeviceInfo(id string) (control.DeviceInfoReply, error) {
	d := b.deviceOrNil(id)
	if d == nil {
		return control.DeviceInfoReply{}, akerrors.New(akerrors.NotFound, "no such device")
	}
	broadcaster, listeners := d.snapshot()
	return control.DeviceInfoReply{
		Description:   b.prefs.Description(id),
		Formats:       b.prefs.Formats(id),
		Broadcaster:   broadcaster,
		ListenerCount: uint32(listeners),
	}, nil
}

// SetFormats replaces id's advertised format list. No notification is
// emitted; format changes are observed via DeviceInfo polling, and the
// message catalog defines none for this path.
func (b *Broker) SetFormats(id string, formats []videoformat.VideoFormat) error {
	if err := b.prefs.SetFormats(id, formats); err != nil {
		return akerrors.Wrap(err, akerrors.NotFound, "set formats")
	}
	b.persist()
	return nil
}

// StartBroadcast attempts to make peerID the broadcaster for id with
// format.
func (b *Broker) StartBroadcast(peerID, id string, format videoformat.VideoFormat) error {
	d := b.deviceOrNil(id)
	if d == nil {
		return akerrors.New(akerrors.NotFound, "no such device")
	}
	allowed := b.prefs.Formats(id)
	direct := b.prefs.DirectMode(id)

	// Commit and emit under the per-device lock: BroadcastingChanged
	// must reach peers in the order transitions actually happened.
	d.mu.Lock()
	defer d.mu.Unlock()
	changed, err := d.startBroadcast(peerID, format, allowed, direct)
	if err != nil {
		return err
	}
	if changed {
		b.withPeer(peerID, func(p *peer) { p.noteBroadcasting(id) })
		b.broadcastBroadcastingChanged(id, peerID)
	}
	return nil
}

// StopBroadcast releases peerID's broadcaster role on id, if held.
func (b *Broker) StopBroadcast(peerID, id string) error {
	d := b.deviceOrNil(id)
	if d == nil {
		return akerrors.New(akerrors.NotFound, "no such device")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopBroadcast(peerID) {
		b.withPeer(peerID, func(p *peer) { p.noteStoppedBroadcasting(id) })
		b.broadcastBroadcastingChanged(id, "")
	}
	return nil
}

// AddListener registers peerID as a listener on id.
func (b *Broker) AddListener(peerID, id string) error {
	d := b.deviceOrNil(id)
	if d == nil {
		return akerrors.New(akerrors.NotFound, "no such device")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.addListener(peerID) {
		b.withPeer(peerID, func(p *peer) { p.noteListening(id) })
		b.broadcastListenerChanged(control.MsgListenerAdded, id, peerID)
	}
	return nil
}

// RemoveListener unregisters peerID from id.
func (b *Broker) RemoveListener(peerID, id string) error {
	d := b.deviceOrNil(id)
	if d == nil {
		return akerrors.New(akerrors.NotFound, "no such device")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.removeListener(peerID) {
		b.withPeer(peerID, func(p *peer) { p.noteStoppedListening(id) })
		b.broadcastListenerChanged(control.MsgListenerRemoved, id, peerID)
	}
	return nil
}

// GetControls returns id's current control values.
func (b *Broker) GetControls(id string) (map[string]int, error) {
	if b.deviceOrNil(id) == nil {
		return nil, akerrors.New(akerrors.NotFound, "no such device")
	}
	return b.prefs.Controls(id), nil
}

// SetControls persists new control values for id and fans out
// ControlsChanged to every connected peer.
func (b *Broker) SetControls(id string, values map[string]int) error {
	if b.deviceOrNil(id) == nil {
		return akerrors.New(akerrors.NotFound, "no such device")
	}
	for k, v := range values {
		if err := validateControl(k, v); err != nil {
			return err
		}
	}
	for k, v := range values {
		if err := b.prefs.SetControlValue(id, k, v); err != nil {
			return akerrors.Wrap(err, akerrors.InvalidArgument, "set control")
		}
	}
	b.persist()
	b.broadcastControlsChanged(id, b.prefs.Controls(id))
	return nil
}

// RegisterPeer adds a newly greeted peer to the peer table.
func (b *Broker) RegisterPeer(id string, role control.Role, conn *control.Conn) {
	b.mu.Lock()
	b.peers[id] = newPeer(id, role, conn)
	b.mu.Unlock()
	b.touch()
}

// RemovePeer releases all state peerID held: broadcaster roles and
// listener registrations on every device, emitting the same
// notifications a graceful Stop/Remove would.
func (b *Broker) RemovePeer(peerID string) {
	b.mu.Lock()
	p, ok := b.peers[peerID]
	delete(b.peers, peerID)
	b.mu.Unlock()
	if !ok {
		return
	}

	// Peer death is a transition like any other: commit and emit under
	// each device's lock so the released-broadcaster notification can't
	// be reordered against a racing StartBroadcast.
	broadcasting, listening := p.devicesHeld()
	for _, id := range broadcasting {
		if d := b.deviceOrNil(id); d != nil {
			d.mu.Lock()
			if d.stopBroadcast(peerID) {
				// The dead producer can't unlink its channel, so do it here.
				if ch, err := sharedframe.Open(id, 0, b.log); err == nil {
					ch.Destroy()
				}
				b.broadcastBroadcastingChanged(id, "")
			}
			d.mu.Unlock()
		}
	}
	for _, id := range listening {
		if d := b.deviceOrNil(id); d != nil {
			d.mu.Lock()
			if d.removeListener(peerID) {
				b.broadcastListenerChanged(control.MsgListenerRemoved, id, peerID)
			}
			d.mu.Unlock()
		}
	}
	b.touch()
}

// PeerCount returns the number of currently connected peers.
func (b *Broker) PeerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.peers)
}

// IdleSince reports how long the broker has had zero connected peers;
// callers use this against Config.IdleTimeout to decide whether to exit.
func (b *Broker) IdleSince() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.peers) > 0 {
		return 0
	}
	return time.Since(b.lastActivity)
}

func (b *Broker) withPeer(id string, fn func(*peer)) {
	b.mu.RLock()
	p, ok := b.peers[id]
	b.mu.RUnlock()
	if ok {
		fn(p)
	}
}

// WatchPrefs starts a prefs.Watcher over store's backing file and relays
// its change notifications into the broker's own notification fan-out, so
// an external edit of the preferences file (or its picture) reaches every
// connected peer exactly as if it had come through the control protocol.
// The caller owns the returned Watcher and must Close it on shutdown.
func (b *Broker) WatchPrefs(path string) (*prefs.Watcher, error) {
	w, err := prefs.Watch(b.prefs, path, b.log)
	if err != nil {
		return nil, err
	}
	go func() {
		for k := range w.Changes {
			switch k {
			case prefs.DevicesChanged:
				b.syncDevicesFromStore()
				b.broadcastDevicesChanged()
			case prefs.PictureChanged:
				b.broadcastPictureChanged(b.prefs.Picture())
			}
		}
	}()
	return w, nil
}

// syncDevicesFromStore reconciles the runtime device map with the
// preferences store after an external reload, adding deviceState for
// newly appeared devices and dropping state for removed ones. Existing
// devices keep their live broadcaster/listener state untouched.
func (b *Broker) syncDevicesFromStore() {
	ids := b.prefs.ListDevices()
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for id := range want {
		if _, ok := b.devices[id]; !ok {
			b.devices[id] = newDeviceState(id)
		}
	}
	for id := range b.devices {
		if _, ok := want[id]; !ok {
			delete(b.devices, id)
		}
	}
}

// forEachPeer calls fn for a snapshot of currently connected peers.
func (b *Broker) forEachPeer(fn func(*peer)) {
	b.mu.RLock()
	peers := make([]*peer, 0, len(b.peers))
	for _, p := range b.peers {
		peers = append(peers, p)
	}
	b.mu.RUnlock()
	for _, p := range peers {
		fn(p)
	}
}
