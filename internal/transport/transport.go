// Package transport defines the contract between the profile core and the
// VPN tunnel engine. The core hands the engine validated config records and
// never interprets ConfigData beyond protocol tagging.
package transport

import "context"

// Config is the record the tunnel engine consumes.
type Config struct {
	ID            string
	Name          string
	ServerAddress string
	Port          int
	Protocol      string
	ConfigData    string
	Remark        string
	IsFavorite    bool
}

// State is the engine's connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Engine is implemented by the tunnel layer. The profile core only depends
// on this interface; the xraycore subpackage provides the probe-only
// implementation used for latency measurement.
type Engine interface {
	Connect(ctx context.Context, cfg Config) error
	Disconnect(ctx context.Context) error
	States() <-chan State
}
