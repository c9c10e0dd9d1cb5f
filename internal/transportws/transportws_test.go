package transportws_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tavernmx/tmxchat/internal/transportws"
)

func dialURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestConnReadReceivesServerMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := transportws.Upgrade(w, r)
		if err != nil {
			t.Errorf("Upgrade() error = %v", err)
			return
		}
		defer conn.Close()
		if _, err := conn.Write([]byte("test message")); err != nil {
			t.Errorf("Write() error = %v", err)
		}
	}))
	defer server.Close()

	conn, err := transportws.Dial(dialURL(server), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got := string(buf[:n]); got != "test message" {
		t.Errorf("Read() = %q, want %q", got, "test message")
	}
}

func TestConnReadSpansMultipleCallsWithinOneMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := transportws.Upgrade(w, r)
		if err != nil {
			t.Errorf("Upgrade() error = %v", err)
			return
		}
		defer conn.Close()
		if _, err := conn.Write([]byte("0123456789")); err != nil {
			t.Errorf("Write() error = %v", err)
		}
	}))
	defer server.Close()

	conn, err := transportws.Dial(dialURL(server), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	first := make([]byte, 4)
	n, err := conn.Read(first)
	if err != nil || n != 4 || string(first[:n]) != "0123" {
		t.Fatalf("first Read() = (%q, %v), want (0123, nil)", first[:n], err)
	}

	second := make([]byte, 64)
	n, err = conn.Read(second)
	if err != nil || string(second[:n]) != "456789" {
		t.Fatalf("second Read() = (%q, %v), want (456789, nil)", second[:n], err)
	}
}

func TestConnWriteReachesServer(t *testing.T) {
	received := make(chan string, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := transportws.Upgrade(w, r)
		if err != nil {
			t.Errorf("Upgrade() error = %v", err)
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		n, err := conn.Read(buf)
		if err != nil {
			t.Errorf("server Read() error = %v", err)
			return
		}
		received <- string(buf[:n])
	}))
	defer server.Close()

	conn, err := transportws.Dial(dialURL(server), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("hello")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if got := <-received; got != "hello" {
		t.Errorf("server received %q, want %q", got, "hello")
	}
}

func TestConnCloseSucceedsFromTheClientSide(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := transportws.Upgrade(w, r)
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		conn.Read(buf)
	}))
	defer server.Close()

	conn, err := transportws.Dial(dialURL(server), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	if err := conn.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestConnRemoteAddrIsPopulated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := transportws.Upgrade(w, r)
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		conn.Read(buf)
	}))
	defer server.Close()

	conn, err := transportws.Dial(dialURL(server), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if conn.RemoteAddr() == nil {
		t.Error("RemoteAddr() = nil")
	}
	if conn.LocalAddr() == nil {
		t.Error("LocalAddr() = nil")
	}
}
