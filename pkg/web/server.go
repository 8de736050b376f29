// Package web provides the HTTP status and metrics endpoints.
package web

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/denwilliams/go-mqtt-sensor/pkg/config"
	"github.com/denwilliams/go-mqtt-sensor/pkg/mqtt"
	"github.com/denwilliams/go-mqtt-sensor/pkg/publisher"
	"github.com/denwilliams/go-mqtt-sensor/pkg/subscriber"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ConnectionStatus interface {
	GetState() mqtt.ConnectionState
	Broker() string
	ClientID() string
}

type PublisherStatus interface {
	State() publisher.State
	Cycles() uint64
	Failures() uint64
}

type SubscriberStatus interface {
	Latest() (subscriber.Received, bool)
	Counts() (received, rejected uint64)
}

type Server struct {
	config     *config.Config
	version    string
	connection ConnectionStatus
	publisher  PublisherStatus
	subscriber SubscriberStatus
	logger     *log.Logger
	startedAt  time.Time
	server     *http.Server
}

func NewServer(cfg *config.Config, version string, connection ConnectionStatus,
	pub PublisherStatus, sub SubscriberStatus, logger *log.Logger) *Server {

	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		config:     cfg,
		version:    version,
		connection: connection,
		publisher:  pub,
		subscriber: sub,
		logger:     logger,
		startedAt:  time.Now(),
	}
	s.server = &http.Server{
		Addr:              cfg.GetAddress(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Printf("Starting web server on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Println("Shutting down web server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/status", s.handleAPIStatus)
	mux.HandleFunc("/api/readings/latest", s.handleAPILatestReading)
	return mux
}
