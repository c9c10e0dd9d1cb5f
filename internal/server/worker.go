package server

import (
	"time"

	"github.com/tavernmx/tmxchat/internal/connection"
	"github.com/tavernmx/tmxchat/internal/logging"
	"github.com/tavernmx/tmxchat/internal/metrics"
	"github.com/tavernmx/tmxchat/internal/wire"
)

// TargetClientLoopMS is the per-client worker's target tick period.
const TargetClientLoopMS = 2 * connection.SSLRetry

// RunClientWorker drives one Session's frame pump: HELLO handshake,
// HEARTBEAT auto-ACK, and otherwise shuttling frames between the socket
// and the session's inbound/outbound queues. It returns once the
// connection is no longer alive.
func RunClientWorker(session *Session, log *logging.Logger, m *metrics.Metrics) {
	if !connection.ServerHandshake(session.Connection) {
		log.Info("no HELLO sent by client, disconnecting")
		return
	}
	log.Info("client connected: %s", session.UserName)

	for session.IsConnected() {
		loopStart := time.Now()

		var outgoing []wire.Message

		messages, err := session.ReceiveMessage()
		if err != nil {
			log.Warn("client worker read error: %v", err)
			break
		}
		for _, msg := range messages {
			switch msg.Type {
			case wire.HEARTBEAT:
				outgoing = append(outgoing, wire.CreateAck())
			case wire.ACK, wire.NAK:
				// only meaningful during an explicit wait_for
			case wire.Invalid:
				log.Err("received INVALID message type from client %s", session.UserName)
			default:
				session.Inbound().Push(msg)
			}
		}

		for {
			msg, ok := session.Outbound().Pop()
			if !ok {
				break
			}
			outgoing = append(outgoing, msg)
		}

		if len(outgoing) > 0 {
			if err := session.SendMessages(outgoing); err != nil {
				log.Warn("client worker write error: %v", err)
				break
			}
			if m != nil {
				for _, msg := range outgoing {
					m.MessagesSent.WithLabelValues(msg.Type.String()).Inc()
				}
			}
		}

		elapsed := time.Since(loopStart)
		if elapsed < TargetClientLoopMS {
			time.Sleep(TargetClientLoopMS - elapsed)
		} else {
			log.Warn("client worker loop took too long to process: %v", elapsed)
		}
	}
	log.Info("client worker exiting for %s", session.UserName)
}
