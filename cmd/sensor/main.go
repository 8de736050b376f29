package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/denwilliams/go-mqtt-sensor/pkg/config"
	"github.com/denwilliams/go-mqtt-sensor/pkg/mqtt"
	"github.com/denwilliams/go-mqtt-sensor/pkg/publisher"
	"github.com/denwilliams/go-mqtt-sensor/pkg/sensor"
	"github.com/denwilliams/go-mqtt-sensor/pkg/subscriber"
	"github.com/denwilliams/go-mqtt-sensor/pkg/web"
)

var (
	configPath  = flag.String("config", "", "Path to configuration file (built-in defaults when empty)")
	showVersion = flag.Bool("version", false, "Show version and exit")

	// Build-time variables
	version   = "dev"
	buildDate = "unknown"
)

const (
	appName         = "MQTT Sensor"
	shutdownTimeout = 10 * time.Second
)

type Application struct {
	config     *config.Config
	logger     *log.Logger
	mqttClient *mqtt.Client
	publisher  *publisher.Publisher
	subscriber *subscriber.Subscriber
	webServer  *web.Server
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func main() {
	flag.Parse()

	if *showVersion {
		log.Printf("%s version %s (built %s)", appName, version, buildDate)
		return
	}

	app, err := NewApplication(*configPath)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.setupSignalHandling()

	if err := app.Start(); err != nil {
		app.Shutdown()
		log.Fatalf("Failed to start application: %v", err)
	}

	// The subscriber owns the main goroutine until the stream ends or we are signalled
	runErr := app.subscriber.Run(app.ctx, app.mqttClient.Events())

	app.Shutdown()

	if runErr != nil {
		log.Fatalf("Subscriber stopped: %v", runErr)
	}
	log.Println("Application shutdown complete")
}

func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := log.New(os.Stdout, "", log.LstdFlags|log.Lshortfile)
	logger.Printf("Starting %s %s", appName, version)
	if configPath != "" {
		logger.Printf("Loaded configuration from: %s", configPath)
	}

	ctx, cancel := context.WithCancel(context.Background())

	app := &Application{
		config: cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	app.initializeComponents()

	return app, nil
}

func (a *Application) initializeComponents() {
	a.logger.Println("Initializing MQTT client...")
	a.mqttClient = mqtt.NewClient(a.config.MQTT, a.logger)

	reader := sensor.NewSimulated(sensor.Celsius(a.config.Sensor.Temperature), a.config.Sensor.Humidity)

	a.publisher = publisher.New(reader, a.mqttClient, publisher.Options{
		Topic:    a.config.MQTT.Topic,
		QoS:      byte(a.config.MQTT.PublishQoS),
		Retain:   a.config.MQTT.Retain,
		Interval: a.config.Publisher.IntervalDuration(),
	}, a.logger)

	a.subscriber = subscriber.New(subscriber.PrintObserver(os.Stdout), subscriber.Options{
		StopOnDecodeError: a.config.Subscriber.StopOnDecodeError,
	}, a.logger)

	if a.config.Web.Port != 0 {
		a.webServer = web.NewServer(a.config, version, a.mqttClient, a.publisher, a.subscriber, a.logger)
	}

	a.logger.Println("All components initialized successfully")
}

// Start connects and subscribes, both fatal on failure, then launches the
// publisher and the optional web server in the background.
func (a *Application) Start() error {
	if err := a.mqttClient.Connect(); err != nil {
		return err
	}

	if err := a.mqttClient.Subscribe(a.config.MQTT.Topic, byte(a.config.MQTT.SubscribeQoS)); err != nil {
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.publisher.Run(a.ctx); err != nil {
			a.logger.Printf("Publisher error: %v", err)
		}
	}()

	if a.webServer != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.webServer.Start(); err != nil && err != http.ErrServerClosed {
				a.logger.Printf("Web server error: %v", err)
			}
		}()
	}

	a.logger.Println("Application started successfully")
	return nil
}

func (a *Application) setupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		a.logger.Printf("Received signal: %v", sig)
		a.logger.Println("Initiating graceful shutdown...")
		a.cancel()
	}()
}

func (a *Application) Shutdown() {
	a.cancel()
	a.logger.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if a.webServer != nil {
		if err := a.webServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Printf("Error shutting down web server: %v", err)
		}
	}

	// Wait for goroutines to finish with timeout
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Println("All goroutines stopped")
	case <-shutdownCtx.Done():
		a.logger.Println("Shutdown timeout reached")
	}

	a.mqttClient.Disconnect()
}
