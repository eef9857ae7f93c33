// package tasks implements library transfers between Spotify accounts.
package tasks

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sptx/internal/services"
	"github.com/desertthunder/sptx/internal/shared"
)

// Engine runs library reads and transfers. It holds no per-transfer state and is safe for concurrent use.
type Engine struct {
	connect services.Connector
	logger  *log.Logger
}

// NewEngine creates an [Engine] that opens accounts through connect.
func NewEngine(connect services.Connector, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Engine{connect: connect, logger: logger}
}

// ProgressFunc receives progress updates. Calls never overlap but may come from any goroutine.
type ProgressFunc func(ProgressUpdate)

// ChannelProgress returns a [ProgressFunc] that forwards updates to ch without blocking.
// Updates are dropped while the channel is full.
func ChannelProgress(ch chan<- ProgressUpdate) ProgressFunc {
	return func(update ProgressUpdate) {
		select {
		case ch <- update:
		default:
		}
	}
}

func (p ProgressFunc) send(update ProgressUpdate) {
	if p != nil {
		p(update)
	}
}
