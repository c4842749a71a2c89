// Package model defines shared types for the proxy.
package model

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// ProxyRequest represents a client request to be forwarded upstream.
// The path still carries the API version prefix; the forwarding service
// strips it before dispatch.
type ProxyRequest struct {
	Ctx    context.Context
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   io.ReadCloser
}

// ProxyResponse represents the upstream response to be streamed back.
// The caller owns Body and must close it on every exit path.
type ProxyResponse struct {
	StatusCode int
	Reason     string
	Header     http.Header
	Body       io.ReadCloser
}

// FrameKind distinguishes the WebSocket message types relayed by the bridge.
// The values match the gorilla/websocket message type constants so frames
// can be passed through without translation.
type FrameKind int

const (
	TextFrame   FrameKind = 1
	BinaryFrame FrameKind = 2
)

// Frame is a single WebSocket message buffered for upstream delivery.
type Frame struct {
	Kind FrameKind
	Data []byte
}
