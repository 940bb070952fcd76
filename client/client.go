/*
NAME
  client.go

DESCRIPTION
  client.go implements Client, the peer side of the AKCP control
  protocol: it dials the broker, performs the Hello handshake, answers
  the broker's liveness pings, decodes notifications into typed events,
  and wraps every request/reply pair in a context-bounded method.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package client provides the peer-side library for talking to the
// broker: a Client for the control protocol, a Producer that claims a
// device and pushes frames into its shared-frame channel, and a Consumer
// that listens on a device and pulls frames out, falling back to a
// locally rendered test pattern while the device is idle.
package client

import (
	"context"
	"net"
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/akvcam/control"
	"github.com/ausocean/akvcam/internal/akerrors"
	"github.com/ausocean/akvcam/videoformat"
)

// dialTimeout bounds the initial TCP connect to the broker.
const dialTimeout = 5 * time.Second

// Client is one peer's session with the broker.
type Client struct {
	conn *control.Conn
	log  logging.Logger

	// PeerID is the identity the broker assigned in its Hello reply.
	PeerID string

	// ServerVersion is the broker's advertised version string.
	ServerVersion string

	// Events receives decoded broker notifications. The channel is closed
	// when the connection drops; a consumer of Events must tolerate missed
	// notifications by re-polling ListDevices/DeviceInfo on reconnect.
	Events chan Event
}

// Dial connects to the broker at endpoint (empty means the well-known
// service endpoint) and performs the Hello handshake with the given role
// and suggested name. The returned Client answers broker pings until
// Close is called or the connection drops.
func Dial(ctx context.Context, endpoint string, role control.Role, name string, log logging.Logger) (*Client, error) {
	if endpoint == "" {
		endpoint = control.ServiceEndpoint()
	}
	d := net.Dialer{Timeout: dialTimeout}
	nc, err := d.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return nil, akerrors.Wrap(err, akerrors.Transport, "dial broker")
	}

	c := &Client{
		conn:   control.NewConn(nc, log),
		log:    log,
		Events: make(chan Event, 32),
	}

	reply, err := c.request(ctx, control.MsgHello, control.HelloRequest{Role: role, SuggestedName: name}.Encode())
	if err != nil {
		c.conn.Close()
		return nil, err
	}
	hello, err := control.DecodeHelloReply(reply)
	if err != nil {
		c.conn.Close()
		return nil, err
	}
	c.PeerID = hello.PeerID
	c.ServerVersion = hello.ServerVersion

	go c.answerPings()
	go c.decodeEvents()
	return c, nil
}

// answerPings acks every broker-initiated request. Ping is the only one
// the broker sends; anything else gets an error reply.
func (c *Client) answerPings() {
	for f := range c.conn.Requests {
		var err error
		if f.ID == control.MsgPing {
			err = c.conn.Reply(f.CorrelationID, f.ID, control.Ack{}.Encode())
		} else {
			err = c.conn.ReplyError(f.CorrelationID, f.ID, akerrors.InvalidArgument, "unexpected server request")
		}
		if err != nil {
			c.logf(logging.Debug, "failed to answer server request", "id", f.ID, "error", err)
			return
		}
	}
}

func (c *Client) decodeEvents() {
	defer close(c.Events)
	for f := range c.conn.Notifications {
		ev, err := decodeEvent(f)
		if err != nil {
			c.logf(logging.Warning, "undecodable notification", "id", f.ID, "error", err)
			continue
		}
		select {
		case c.Events <- ev:
		default:
			c.logf(logging.Warning, "dropped event, channel full", "id", f.ID)
		}
	}
}

// request performs one request/reply round trip, translating an error
// reply back into a kind-tagged error.
func (c *Client) request(ctx context.Context, id control.MessageID, body []byte) ([]byte, error) {
	reply, err := c.conn.Request(ctx, id, body)
	if err != nil {
		return nil, err
	}
	if reply.IsError() {
		kind, msg, derr := control.DecodeErrorBody(reply.Body)
		if derr != nil {
			return nil, derr
		}
		return nil, akerrors.New(kind, msg)
	}
	return reply.Body, nil
}

// ListDevices returns the broker's ordered device_id list.
func (c *Client) ListDevices(ctx context.Context) ([]string, error) {
	body, err := c.request(ctx, control.MsgListDevices, nil)
	if err != nil {
		return nil, err
	}
	reply, err := control.DecodeListDevicesReply(body)
	if err != nil {
		return nil, err
	}
	return reply.DeviceIDs, nil
}

// DeviceInfo returns one device's description, formats, broadcaster and
// listener count.
func (c *Client) DeviceInfo(ctx context.Context, deviceID string) (control.DeviceInfoReply, error) {
	body, err := c.request(ctx, control.MsgDeviceInfo, control.DeviceInfoRequest{DeviceID: deviceID}.Encode())
	if err != nil {
		return control.DeviceInfoReply{}, err
	}
	return control.DecodeDeviceInfoReply(body)
}

// AddDevice registers a new device and returns its assigned id.
func (c *Client) AddDevice(ctx context.Context, description, preferredID string) (string, error) {
	body, err := c.request(ctx, control.MsgAddDevice, control.AddDeviceRequest{Description: description, PreferredID: preferredID}.Encode())
	if err != nil {
		return "", err
	}
	reply, err := control.DecodeAddDeviceReply(body)
	if err != nil {
		return "", err
	}
	return reply.DeviceID, nil
}

// RemoveDevice unregisters deviceID.
func (c *Client) RemoveDevice(ctx context.Context, deviceID string) error {
	_, err := c.request(ctx, control.MsgRemoveDevice, control.RemoveDeviceRequest{DeviceID: deviceID}.Encode())
	return err
}

// UpdateDevices asks the broker to rescan plugin-visible state.
func (c *Client) UpdateDevices(ctx context.Context) error {
	_, err := c.request(ctx, control.MsgUpdateDevices, nil)
	return err
}

// SetFormats replaces deviceID's advertised format list.
func (c *Client) SetFormats(ctx context.Context, deviceID string, formats []videoformat.VideoFormat) error {
	_, err := c.request(ctx, control.MsgSetFormats, control.SetFormatsRequest{DeviceID: deviceID, Formats: formats}.Encode())
	return err
}

// StartBroadcast claims deviceID for this peer with the given format.
func (c *Client) StartBroadcast(ctx context.Context, deviceID string, format videoformat.VideoFormat) error {
	_, err := c.request(ctx, control.MsgStartBroadcast, control.StartBroadcastRequest{DeviceID: deviceID, Format: format}.Encode())
	return err
}

// StopBroadcast releases this peer's broadcaster role on deviceID.
func (c *Client) StopBroadcast(ctx context.Context, deviceID string) error {
	_, err := c.request(ctx, control.MsgStopBroadcast, control.StopBroadcastRequest{DeviceID: deviceID}.Encode())
	return err
}

// AddListener registers this peer as a listener on deviceID.
func (c *Client) AddListener(ctx context.Context, deviceID string) error {
	_, err := c.request(ctx, control.MsgAddListener, control.AddListenerRequest{DeviceID: deviceID}.Encode())
	return err
}

// RemoveListener unregisters this peer from deviceID.
func (c *Client) RemoveListener(ctx context.Context, deviceID string) error {
	_, err := c.request(ctx, control.MsgRemoveListener, control.RemoveListenerRequest{DeviceID: deviceID}.Encode())
	return err
}

// GetControls returns deviceID's current control values.
func (c *Client) GetControls(ctx context.Context, deviceID string) (map[string]int, error) {
	body, err := c.request(ctx, control.MsgGetControls, control.GetControlsRequest{DeviceID: deviceID}.Encode())
	if err != nil {
		return nil, err
	}
	reply, err := control.DecodeGetControlsReply(body)
	if err != nil {
		return nil, err
	}
	return reply.Controls, nil
}

// GetControlDescriptors returns deviceID's control values together with
// the descriptor table (type, range, menu labels) behind them.
func (c *Client) GetControlDescriptors(ctx context.Context, deviceID string) (control.GetControlsDescriptorsReply, error) {
	body, err := c.request(ctx, control.MsgGetControlDescriptors, control.GetControlDescriptorsRequest{DeviceID: deviceID}.Encode())
	if err != nil {
		return control.GetControlsDescriptorsReply{}, err
	}
	return control.DecodeGetControlsDescriptorsReply(body)
}

// SetControls updates control values on deviceID; the broker persists
// them and fans out ControlsChanged to every connected peer.
func (c *Client) SetControls(ctx context.Context, deviceID string, values map[string]int) error {
	_, err := c.request(ctx, control.MsgSetControls, control.SetControlsRequest{DeviceID: deviceID, Controls: values}.Encode())
	return err
}

// Bye ends the session gracefully. The broker releases this peer's state
// on either Bye or connection loss, so Bye is a courtesy, not a
// requirement.
func (c *Client) Bye(ctx context.Context) error {
	_, err := c.request(ctx, control.MsgBye, control.ByeRequest{PeerID: c.PeerID}.Encode())
	return err
}

// Close drops the connection. If Bye was not sent first, the broker
// releases the peer's state when it sees the connection close.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) logf(level int8, msg string, params ...interface{}) {
	if c.log == nil {
		return
	}
	c.log.Log(level, msg, params...)
}
