package main

import (
	"crypto/tls"
	"crypto/x509"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/tavernmx/tmxchat/internal/client"
	"github.com/tavernmx/tmxchat/internal/config"
	"github.com/tavernmx/tmxchat/internal/connection"
	"github.com/tavernmx/tmxchat/internal/logging"
	"github.com/tavernmx/tmxchat/internal/tui"
	"github.com/tavernmx/tmxchat/internal/wire"
)

var tlsDialer = net.Dialer{Timeout: 5 * time.Second}

func main() {
	configPath := flag.String("config", "client_config.json", "Path to the client configuration file")
	userName := flag.String("username", "", "Username to present during the HELLO handshake")
	flag.Parse()

	if *userName == "" {
		log.Fatal("username is required; use -username")
	}

	cfg, err := config.LoadClientConfig(*configPath)
	if err != nil {
		log.Fatalf("unable to load config: %v", err)
	}

	appLog, err := logging.NewFromConfig(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("unable to open log file: %v", err)
	}

	tlsConfig := &tls.Config{
		ServerName: cfg.ServerHostName,
		MinVersion: tls.VersionTLS12,
	}
	if len(cfg.CustomCertificates) > 0 {
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		for _, path := range cfg.CustomCertificates {
			pem, err := os.ReadFile(path)
			if err != nil {
				log.Fatalf("unable to read custom certificate %s: %v", path, err)
			}
			if !pool.AppendCertsFromPEM(pem) {
				log.Fatalf("unable to parse custom certificate %s", path)
			}
		}
		tlsConfig.RootCAs = pool
	}

	addr := fmt.Sprintf("%s:%d", cfg.ServerHostName, cfg.ServerHostPort)
	rawConn, err := tls.DialWithDialer(&tlsDialer, "tcp", addr, tlsConfig)
	if err != nil {
		log.Fatalf("unable to connect to %s: %v", addr, err)
	}

	conn := connection.New(rawConn)
	if err := connection.ClientHandshake(conn, *userName); err != nil {
		log.Fatalf("handshake failed: %v", err)
	}
	appLog.Info("connected to %s as %s", addr, *userName)

	screen := client.NewScreen(conn.Outbound())
	worker := client.NewWorker(conn, appLog)

	window, err := tui.New(screen)
	if err != nil {
		log.Fatalf("unable to start terminal UI: %v", err)
	}
	defer window.Close()

	go worker.Run()
	go pumpInboundToScreen(conn, screen, worker, window)

	if err := window.Run(); err != nil {
		appLog.Err("terminal UI error: %v", err)
	}
	worker.Shutdown()
	<-worker.Ended()
}

func pumpInboundToScreen(conn *connection.Connection, screen *client.Screen, worker *client.Worker, window *tui.ChatWindow) {
	for conn.IsConnected() {
		screen.WaitingOnServer = worker.IsWaitingOnServer()

		msg, ok := conn.Inbound().Pop()
		if !ok {
			window.Refresh()
			time.Sleep(25 * time.Millisecond)
			continue
		}
		switch msg.Type {
		case wire.RoomList:
			screen.ApplyRoomList(msg)
		case wire.RoomCreate:
			screen.ApplyRoomCreate(msg)
		case wire.RoomDestroy:
			screen.ApplyRoomDestroy(msg)
		case wire.RoomHistory:
			screen.ApplyRoomHistory(msg)
		case wire.ChatEcho:
			screen.ApplyChatEcho(msg)
		}
		window.Refresh()
	}
}
