/*
NAME
  dispatch.go

DESCRIPTION
  dispatch.go routes each incoming AKCP request frame to the matching
  Broker operation and encodes its reply, translating akerrors.Kind into
  a control-protocol error reply on failure.

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
	"crypto/rand"
	"fmt"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/akvcam/control"
	"github.com/ausocean/akvcam/internal/akerrors"
)

// protocolVersion is reported to peers in HelloReply.ServerVersion.
const protocolVersion = "akvcam-broker/1"

// newPeerID generates a random peer id for a connection that didn't
// suggest its own name in Hello.
func newPeerID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("peer-%x", b)
}

// dispatch handles one request frame and writes its reply (or error
// reply) back on conn.
func (s *Server) dispatch(conn *control.Conn, peerID string, f control.Frame) {
	reply, err := s.handle(peerID, f)
	if err != nil {
		k := akerrors.KindOf(err)
		if rerr := conn.ReplyError(f.CorrelationID, f.ID, k, err.Error()); rerr != nil {
			s.logf(logging.Debug, "failed to send error reply", "peer", peerID, "error", rerr)
		}
		return
	}
	if err := conn.Reply(f.CorrelationID, f.ID, reply); err != nil {
		s.logf(logging.Debug, "failed to send reply", "peer", peerID, "error", err)
	}
}

// handle implements the per-message-id dispatch table, returning the
// encoded reply body on success.
func (s *Server) handle(peerID string, f control.Frame) ([]byte, error) {
	b := s.b
	switch f.ID {
	case control.MsgBye:
		// Explicit unregister: release everything the peer holds now
		// rather than waiting for its connection to drop.
		b.RemovePeer(peerID)
		return control.Ack{}.Encode(), nil

	case control.MsgListDevices:
		return control.ListDevicesReply{DeviceIDs: b.ListDevices()}.Encode(), nil

	case control.MsgDeviceInfo:
		req, err := control.DecodeDeviceInfoRequest(f.Body)
		if err != nil {
			return nil, err
		}
		info, err := b.DeviceInfo(req.DeviceID)
		if err != nil {
			return nil, err
		}
		return info.Encode(), nil

	case control.MsgAddDevice:
		req, err := control.DecodeAddDeviceRequest(f.Body)
		if err != nil {
			return nil, err
		}
		id, err := b.AddDevice(req.Description, req.PreferredID)
		if err != nil {
			return nil, err
		}
		return control.AddDeviceReply{DeviceID: id}.Encode(), nil

	case control.MsgRemoveDevice:
		req, err := control.DecodeRemoveDeviceRequest(f.Body)
		if err != nil {
			return nil, err
		}
		if err := b.RemoveDevice(req.DeviceID); err != nil {
			return nil, err
		}
		return control.Ack{}.Encode(), nil

	case control.MsgUpdateDevices:
		b.syncDevicesFromStore()
		b.broadcastDevicesChanged()
		return control.Ack{}.Encode(), nil

	case control.MsgSetFormats:
		req, err := control.DecodeSetFormatsRequest(f.Body)
		if err != nil {
			return nil, err
		}
		if err := b.SetFormats(req.DeviceID, req.Formats); err != nil {
			return nil, err
		}
		return control.Ack{}.Encode(), nil

	case control.MsgStartBroadcast:
		req, err := control.DecodeStartBroadcastRequest(f.Body)
		if err != nil {
			return nil, err
		}
		if err := b.StartBroadcast(peerID, req.DeviceID, req.Format); err != nil {
			return nil, err
		}
		return control.Ack{}.Encode(), nil

	case control.MsgStopBroadcast:
		req, err := control.DecodeStopBroadcastRequest(f.Body)
		if err != nil {
			return nil, err
		}
		if err := b.StopBroadcast(peerID, req.DeviceID); err != nil {
			return nil, err
		}
		return control.Ack{}.Encode(), nil

	case control.MsgAddListener:
		req, err := control.DecodeAddListenerRequest(f.Body)
		if err != nil {
			return nil, err
		}
		if err := b.AddListener(peerID, req.DeviceID); err != nil {
			return nil, err
		}
		return control.Ack{}.Encode(), nil

	case control.MsgRemoveListener:
		req, err := control.DecodeRemoveListenerRequest(f.Body)
		if err != nil {
			return nil, err
		}
		if err := b.RemoveListener(peerID, req.DeviceID); err != nil {
			return nil, err
		}
		return control.Ack{}.Encode(), nil

	case control.MsgGetControls:
		req, err := control.DecodeGetControlsRequest(f.Body)
		if err != nil {
			return nil, err
		}
		values, err := b.GetControls(req.DeviceID)
		if err != nil {
			return nil, err
		}
		return control.GetControlsReply{Controls: values}.Encode(), nil

	case control.MsgSetControls:
		req, err := control.DecodeSetControlsRequest(f.Body)
		if err != nil {
			return nil, err
		}
		if err := b.SetControls(req.DeviceID, req.Controls); err != nil {
			return nil, err
		}
		return control.Ack{}.Encode(), nil

	case control.MsgGetControlDescriptors:
		req, err := control.DecodeGetControlDescriptorsRequest(f.Body)
		if err != nil {
			return nil, err
		}
		reply, err := b.ControlDescriptors(req.DeviceID)
		if err != nil {
			return nil, err
		}
		return reply.Encode(), nil

	case control.MsgPing:
		b.withPeer(peerID, func(p *peer) { p.resetMissedPings() })
		return control.Ack{}.Encode(), nil

	default:
		return nil, akerrors.New(akerrors.InvalidArgument, fmt.Sprintf("unknown message id %d", f.ID))
	}
}
