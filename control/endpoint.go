/*
NAME
  endpoint.go

DESCRIPTION
  endpoint.go resolves the broker's well-known service endpoint: the
  AKVCAM_SERVICE_ENDPOINT environment variable when set, otherwise the
  loopback default every peer and the broker agree on.

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

import "os"

// DefaultEndpoint is the loopback address the broker listens on when
// nothing overrides it.
const DefaultEndpoint = "127.0.0.1:9393"

// EndpointEnv names the environment variable that overrides the service
// endpoint for both the broker and its peers.
const EndpointEnv = "AKVCAM_SERVICE_ENDPOINT"

// ServiceEndpoint returns the endpoint peers should dial and the broker
// should bind: the EndpointEnv override when set, else DefaultEndpoint.
func ServiceEndpoint() string {
	if ep := os.Getenv(EndpointEnv); ep != "" {
		return ep
	}
	return DefaultEndpoint
}
