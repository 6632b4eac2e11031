// Package transport connects the plugin to the FSM host's unix socket and
// moves length-prefixed frames over it.
//
// A frame is a 4-byte big-endian payload length followed by the payload.
// Frames larger than the configured limit are refused in both directions.
package transport
