package main

import (
	"crypto/tls"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tavernmx/tmxchat/internal/config"
	"github.com/tavernmx/tmxchat/internal/connection"
	"github.com/tavernmx/tmxchat/internal/logging"
	"github.com/tavernmx/tmxchat/internal/metrics"
	"github.com/tavernmx/tmxchat/internal/room"
	"github.com/tavernmx/tmxchat/internal/server"
	"github.com/tavernmx/tmxchat/internal/transportws"
)

func main() {
	configPath := flag.String("config", "server_config.json", "Path to the server configuration file")
	flag.Parse()

	cfg, err := config.LoadServerConfig(*configPath)
	if err != nil {
		log.Fatalf("unable to load config: %v", err)
	}

	appLog, err := logging.NewFromConfig(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("unable to open log file: %v", err)
	}

	cert, err := tls.LoadX509KeyPair(cfg.HostCertificatePath, cfg.HostPrivateKeyPath)
	if err != nil {
		log.Fatalf("unable to load host certificate/key: %v", err)
	}
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	rooms := room.NewManager()
	for _, name := range cfg.InitialRooms {
		if _, ok := rooms.Create(name); !ok {
			appLog.Warn("skipping invalid or duplicate initial room: %s", name)
		}
	}

	connMgr := server.NewConnectionManager(cfg.MaxClients)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	sched := server.NewScheduler(rooms, connMgr, appLog, m)

	listener, err := tls.Listen("tcp", fmt.Sprintf(":%d", cfg.HostPort), tlsConfig)
	if err != nil {
		log.Fatalf("unable to listen on :%d: %v", cfg.HostPort, err)
	}

	acceptClient := func(conn net.Conn) {
		c := connection.New(conn)
		session := server.NewSession(c)
		if !connMgr.TryAdd(session) {
			connection.RejectTooManyConnections(c)
			return
		}
		server.RunClientWorker(session, appLog, m)
		connMgr.Remove(session)
	}

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				if !connMgr.IsAcceptingConnections() {
					return
				}
				appLog.Warn("accept error: %v", err)
				continue
			}
			go acceptClient(conn)
		}
	}()

	if cfg.WebSocketPort != 0 {
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
			conn, err := transportws.Upgrade(w, r)
			if err != nil {
				appLog.Warn("websocket upgrade error: %v", err)
				return
			}
			acceptClient(conn)
		})
		wsServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.WebSocketPort), Handler: mux}
		go func() {
			appLog.Info("listening for websocket connections on :%d", cfg.WebSocketPort)
			if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				appLog.Err("websocket listener error: %v", err)
			}
		}()
	}

	if cfg.MetricsPort != 0 {
		go func() {
			appLog.Info("serving metrics on :%d", cfg.MetricsPort)
			mux := http.NewServeMux()
			mux.Handle("/metrics", m.Handler())
			if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.MetricsPort), mux); err != nil {
				appLog.Err("metrics listener error: %v", err)
			}
		}()
	}

	go sched.Run()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	appLog.Info("received signal %v, shutting down", sig)

	connMgr.StopAccepting()
	_ = listener.Close()
}
