// Package test exercises the client and server packages together over
// in-memory connections, end to end.
package test

import (
	"net"
	"testing"
	"time"

	"github.com/tavernmx/tmxchat/internal/client"
	"github.com/tavernmx/tmxchat/internal/connection"
	"github.com/tavernmx/tmxchat/internal/logging"
	"github.com/tavernmx/tmxchat/internal/room"
	"github.com/tavernmx/tmxchat/internal/server"
	"github.com/tavernmx/tmxchat/internal/wire"
)

func quietLogger() *logging.Logger {
	return logging.New(logging.Off, discardWriter{})
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// testHarness wires one scheduler against any number of in-memory client
// connections, driving ticks on demand so assertions land deterministically.
type testHarness struct {
	t       *testing.T
	rooms   *room.Manager
	connMgr *server.ConnectionManager
	sched   *server.Scheduler
}

func newHarness(t *testing.T, maxClients int32) *testHarness {
	rooms := room.NewManager()
	connMgr := server.NewConnectionManager(maxClients)
	sched := server.NewScheduler(rooms, connMgr, quietLogger(), nil)
	return &testHarness{t: t, rooms: rooms, connMgr: connMgr, sched: sched}
}

// connectClient dials an in-memory pipe, performs the client handshake
// over it, and starts the server's per-client worker against the other
// end in the background. It returns the client-facing Connection; the
// caller drives the scheduler's ticks.
func (h *testHarness) connectClient(userName string) (*connection.Connection, error) {
	clientSide, serverSide := net.Pipe()
	clientConn := connection.New(clientSide)

	go func() {
		c := connection.New(serverSide)
		session := server.NewSession(c)
		if !h.connMgr.TryAdd(session) {
			connection.RejectTooManyConnections(c)
			return
		}
		server.RunClientWorker(session, quietLogger(), nil)
		h.connMgr.Remove(session)
	}()

	if err := connection.ClientHandshake(clientConn, userName); err != nil {
		return nil, err
	}
	return clientConn, nil
}

func (h *testHarness) tickUntil(condition func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		h.sched.RunOnce()
		if condition() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func waitForMessage(conn *connection.Connection, msgType wire.MessageType, timeout time.Duration) (*wire.Message, bool) {
	return conn.WaitFor(msgType, timeout)
}

func TestIntegrationRoomCreateJoinChatEcho(t *testing.T) {
	h := newHarness(t, 10)

	alice, err := h.connectClient("alice")
	if err != nil {
		t.Fatalf("alice handshake failed: %v", err)
	}
	defer alice.Shutdown()

	bob, err := h.connectClient("bob")
	if err != nil {
		t.Fatalf("bob handshake failed: %v", err)
	}
	defer bob.Shutdown()

	if err := alice.SendMessage(wire.CreateRoomCreate("lobby")); err != nil {
		t.Fatalf("alice create room failed: %v", err)
	}
	if !h.tickUntil(func() bool { return h.rooms.Get("lobby") != nil }, time.Second) {
		t.Fatal("room lobby was never created")
	}

	if _, ok := waitForMessage(bob, wire.RoomCreate, time.Second); !ok {
		t.Fatal("bob never observed the ROOM_CREATE fan-out")
	}

	if err := bob.SendMessage(wire.CreateRoomJoin("lobby")); err != nil {
		t.Fatalf("bob join room failed: %v", err)
	}
	h.tickUntil(func() bool { return false }, 50*time.Millisecond)

	if err := alice.SendMessage(wire.CreateChatSend("lobby", "hello bob")); err != nil {
		t.Fatalf("alice chat send failed: %v", err)
	}

	echo, ok := waitForMessage(bob, wire.ChatEcho, 2*time.Second)
	if !ok {
		t.Fatal("bob never received the CHAT_ECHO for alice's message")
	}
	if wire.StringValueOr(*echo, "text", "") != "hello bob" {
		t.Errorf("echo text = %q, want %q", wire.StringValueOr(*echo, "text", ""), "hello bob")
	}
	if wire.StringValueOr(*echo, "user_name", "") != "alice" {
		t.Errorf("echo user_name = %q, want alice", wire.StringValueOr(*echo, "user_name", ""))
	}
}

func TestIntegrationRoomDestroyFanOut(t *testing.T) {
	h := newHarness(t, 10)

	alice, err := h.connectClient("alice")
	if err != nil {
		t.Fatalf("alice handshake failed: %v", err)
	}
	defer alice.Shutdown()

	if err := alice.SendMessage(wire.CreateRoomCreate("lobby")); err != nil {
		t.Fatalf("alice create room failed: %v", err)
	}
	h.tickUntil(func() bool { return h.rooms.Get("lobby") != nil }, time.Second)
	waitForMessage(alice, wire.RoomCreate, time.Second)

	if err := alice.SendMessage(wire.CreateRoomDestroy("lobby")); err != nil {
		t.Fatalf("alice destroy room failed: %v", err)
	}
	if !h.tickUntil(func() bool { return h.rooms.Get("lobby") == nil }, time.Second) {
		t.Fatal("room lobby was never swept after destroy")
	}

	if _, ok := waitForMessage(alice, wire.RoomDestroy, time.Second); !ok {
		t.Fatal("alice never observed the ROOM_DESTROY fan-out")
	}
}

func TestIntegrationCapacityRejectsExtraConnection(t *testing.T) {
	h := newHarness(t, 1)

	if _, err := h.connectClient("alice"); err != nil {
		t.Fatalf("alice handshake failed: %v", err)
	}

	if _, err := h.connectClient("bob"); err == nil {
		t.Fatal("expected bob's connection to be rejected at capacity, got nil error")
	}
}

func TestIntegrationHandshakeTimesOutWithoutHello(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()

	serverConn := connection.New(serverSide)
	ok := connection.ServerHandshake(serverConn)
	if ok {
		t.Fatal("ServerHandshake() = true, want false when the client never sends HELLO")
	}
}

func TestIntegrationClientScreenDrivesRoomLifecycle(t *testing.T) {
	h := newHarness(t, 10)

	alice, err := h.connectClient("alice")
	if err != nil {
		t.Fatalf("alice handshake failed: %v", err)
	}
	defer alice.Shutdown()

	worker := client.NewWorker(alice, quietLogger())
	screen := client.NewScreen(alice.Outbound())

	go worker.Run()
	defer worker.Shutdown()

	alice.Outbound().Push(wire.CreateRoomCreate("general"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.sched.RunOnce()
		if msg, ok := alice.Inbound().Pop(); ok {
			switch msg.Type {
			case wire.RoomList:
				screen.ApplyRoomList(msg)
			case wire.RoomCreate:
				screen.ApplyRoomCreate(msg)
			}
		}
		if len(screen.RoomNames()) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if len(screen.RoomNames()) == 0 {
		t.Fatal("client screen never observed the created room")
	}
}
