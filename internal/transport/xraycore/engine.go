package xraycore

import (
	"context"
	"fmt"
	"sync"

	"github.com/xtls/xray-core/core"

	"cybervpn/internal/logger"
	"cybervpn/internal/transport"
)

// LocalEngine implements transport.Engine by running the tunnel core in
// process, exposing a fixed local socks port applications point at.
type LocalEngine struct {
	socksPort int

	mu       sync.Mutex
	instance *core.Instance
	states   chan transport.State
}

func NewLocalEngine(socksPort int) *LocalEngine {
	return &LocalEngine{
		socksPort: socksPort,
		states:    make(chan transport.State, 8),
	}
}

// Connect tears down any existing tunnel and brings one up for cfg.
func (e *LocalEngine) Connect(ctx context.Context, cfg transport.Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.instance != nil {
		e.instance.Close()
		e.instance = nil
	}

	e.emit(transport.StateConnecting)

	instance, err := startInstance(cfg, e.socksPort)
	if err != nil {
		e.emit(transport.StateError)
		return fmt.Errorf("failed to start tunnel for %s: %w", cfg.Name, err)
	}

	e.instance = instance
	e.emit(transport.StateConnected)
	logger.Log.Infof("tunnel up: %s via socks5://127.0.0.1:%d", cfg.Name, e.socksPort)
	return nil
}

func (e *LocalEngine) Disconnect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.instance != nil {
		e.instance.Close()
		e.instance = nil
	}
	e.emit(transport.StateDisconnected)
	return nil
}

func (e *LocalEngine) States() <-chan transport.State {
	return e.states
}

// emit never blocks; stale states are dropped in favor of the newest.
func (e *LocalEngine) emit(s transport.State) {
	select {
	case e.states <- s:
	default:
		select {
		case <-e.states:
		default:
		}
		select {
		case e.states <- s:
		default:
		}
	}
}
