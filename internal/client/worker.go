// Package client implements the client-side connection worker and the
// chat-window state/update-hook contract the UI drives.
package client

import (
	"sync/atomic"
	"time"

	"github.com/tavernmx/tmxchat/internal/connection"
	"github.com/tavernmx/tmxchat/internal/logging"
	"github.com/tavernmx/tmxchat/internal/wire"
)

// TargetLoopMS is the client connection worker's target tick period.
const TargetLoopMS = 2 * connection.SSLRetry

// QuietTimeout is how long the worker tolerates silence from the server
// before probing with a HEARTBEAT, and again before declaring the
// connection lost.
const QuietTimeout = 30 * time.Second

// ConnectionEnded is published by Worker.Run on exit for any reason so the
// UI can pop the chat screen and report loss.
type ConnectionEnded struct {
	Reason string
}

// Worker drives one Connection's frame pump while the chat screen is
// active: reading frames into the inbound queue, probing liveness, and
// writing the outbound queue in one frame per tick.
type Worker struct {
	conn           *connection.Connection
	log            *logging.Logger
	shutdown       chan struct{}
	ended          chan ConnectionEnded
	waitingOnServer atomic.Bool
}

// NewWorker creates a Worker over conn.
func NewWorker(conn *connection.Connection, log *logging.Logger) *Worker {
	return &Worker{
		conn:     conn,
		log:      log,
		shutdown: make(chan struct{}, 1),
		ended:    make(chan ConnectionEnded, 1),
	}
}

// Shutdown requests a clean exit on the next tick.
func (w *Worker) Shutdown() {
	select {
	case w.shutdown <- struct{}{}:
	default:
	}
}

// Ended delivers exactly one ConnectionEnded event when Run returns.
func (w *Worker) Ended() <-chan ConnectionEnded {
	return w.ended
}

// Run drives the worker loop until shutdown is requested, the connection
// is lost, or the server goes quiet for 2*QuietTimeout. It publishes
// exactly one ConnectionEnded on exit.
func (w *Worker) Run() {
	reason := w.run()
	w.ended <- ConnectionEnded{Reason: reason}
}

func (w *Worker) run() string {
	if err := w.conn.SendMessage(wire.CreateRoomListRequest()); err != nil {
		return "unable to request room list"
	}

	lastMessageReceived := time.Now()
	var heartbeatSent *time.Time

	for w.conn.IsConnected() {
		select {
		case <-w.shutdown:
			w.log.Info("connection worker shutting down by request")
			w.conn.Shutdown()
			return "shutdown requested"
		default:
		}

		loopStart := time.Now()
		var outgoing []wire.Message

		messages, err := w.conn.ReceiveMessage()
		if err != nil {
			return "transport error"
		}
		if len(messages) > 0 {
			for _, msg := range messages {
				switch msg.Type {
				case wire.HEARTBEAT:
					outgoing = append(outgoing, wire.CreateAck())
				case wire.ACK, wire.NAK:
				case wire.Invalid:
					w.log.Err("received INVALID message type from server")
				default:
					w.conn.Inbound().Push(msg)
				}
			}
			lastMessageReceived = time.Now()
			heartbeatSent = nil
			w.waitingOnServer.Store(false)
		}

		if time.Since(lastMessageReceived) > QuietTimeout {
			if heartbeatSent == nil {
				outgoing = append(outgoing, wire.CreateHeartbeat())
				now := time.Now()
				heartbeatSent = &now
				w.waitingOnServer.Store(true)
			} else if time.Since(*heartbeatSent) > QuietTimeout {
				w.log.Info("server did not respond to heartbeat")
				break
			}
		}

		for {
			msg, ok := w.conn.Outbound().Pop()
			if !ok {
				break
			}
			outgoing = append(outgoing, msg)
		}
		if len(outgoing) > 0 {
			if err := w.conn.SendMessages(outgoing); err != nil {
				return "transport error"
			}
		}

		elapsed := time.Since(loopStart)
		if elapsed < TargetLoopMS {
			time.Sleep(TargetLoopMS - elapsed)
		} else {
			w.log.Warn("server connection loop took too long to process: %v", elapsed)
		}
	}
	return "connection closed"
}

// IsWaitingOnServer reports whether the worker currently has an
// outstanding, unanswered HEARTBEAT probe.
func (w *Worker) IsWaitingOnServer() bool {
	return w.waitingOnServer.Load()
}
