package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	nats "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anomstream/anomalyd/config"
	"github.com/anomstream/anomalyd/pkg/detector"
	"github.com/anomstream/anomalyd/pkg/notify/natsio"
	"github.com/anomstream/anomalyd/pkg/storage"
	"github.com/anomstream/anomalyd/pkg/stream"
	"github.com/anomstream/anomalyd/pkg/stream/kafka"
)

type detectorServer struct {
	quitCh chan bool
	doneCh chan bool

	c  *config.Config
	nc *nats.Conn

	store       storage.Interface
	reader      stream.Reader
	deadLetters stream.Writer
	det         *detector.Detector

	errCh chan error
}

func init() {
	formatter := &logrus.TextFormatter{
		FullTimestamp: true,
	}
	logrus.SetFormatter(formatter)

	// Output to stdout instead of the default stderr
	log.SetOutput(os.Stdout)

	log.SetLevel(log.InfoLevel)
}

func newDetectorServer(c *config.Config) (*detectorServer, error) {
	s := &detectorServer{
		quitCh: make(chan bool),
		doneCh: make(chan bool),
		c:      c,

		errCh: make(chan error, 1),
	}

	store, err := newStore(c)
	if err != nil {
		return nil, err
	}
	s.store = store

	nc, err := nats.Connect(c.NATSServerURL,
		nats.DrainTimeout(10*time.Second),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error("nats error: ", err)
			select {
			case s.errCh <- err:
			default:
			}
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Debug("nats connection closed")
		}),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			// The client keeps buffering publishes and reconnects on
			// its own, failed publishes go through the handler retry
			// path.
			log.Warn("nats connection lost")
		}))
	if err != nil {
		return nil, err
	}
	s.nc = nc

	s.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers: c.BrokerList(),
		Topic:   c.KafkaTopic,
		GroupID: c.KafkaDetectorGroup,
	})
	s.deadLetters = kafka.NewWriter(kafka.WriterConfig{
		Brokers: c.BrokerList(),
		Topic:   c.DeadLetterTopic(),
	})

	publisher := natsio.NewPublisher(nc, c.NotifySubject)
	s.det = detector.New(
		s.reader,
		s.deadLetters,
		detector.NewFilter(c.Threshold),
		detector.NewHandler(store, publisher),
		detector.Options{
			Workers:     c.DetectorWorkers,
			MaxAttempts: c.DetectorMaxAttempts,
			RetryDelay:  c.DetectorRetryDelay,
		})

	return s, nil
}

func (s *detectorServer) Serve() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(logger())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	go func() {
		log.WithFields(log.Fields{
			"host": s.c.BindHost,
			"port": s.c.MetricsPort,
		}).Info("Starting metrics server")

		if err := e.Start(fmt.Sprintf("%s:%d", s.c.BindHost, s.c.MetricsPort)); err != nil {
			e.Logger.Info("Shutting down the metrics server")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDoneCh := make(chan error, 1)
	go func() {
		runDoneCh <- s.det.Run(ctx)
	}()

	// Wait until receiving the quit signal or the detector stopping on
	// its own.
	stopped := false
	select {
	case <-s.quitCh:
		log.Info("Shutdown signal received")
	case err := <-runDoneCh:
		stopped = true
		if err != nil {
			log.Error("detector stopped unexpectedly: ", err)
		}
		syscall.Kill(syscall.Getpid(), syscall.SIGINT)
		<-s.quitCh
	}

	cancel()
	if !stopped {
		if err := <-runDoneCh; err != nil {
			log.Error("detector run failed: ", err)
		}
	}

	if err := s.reader.Close(); err != nil {
		log.Error("failed to close stream reader: ", err)
	}
	if err := s.deadLetters.Close(); err != nil {
		log.Error("failed to close dead letter writer: ", err)
	}

	// Create a 10 second timeout context
	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()

	// Shutdown the echo web server
	if err := e.Shutdown(sctx); err != nil {
		e.Logger.Error(err)
	}

	// Check if the messaging connection reported an error meanwhile
	select {
	case err := <-s.errCh:
		log.Error("messaging connection error: ", err)
	default:
	}

	// We've done!
	s.doneCh <- true
}

func (s *detectorServer) Shutdown() {
	// Send the quit signal to the server.Serve() routine
	s.quitCh <- true

	// Wait up to 10 seconds
	select {
	case <-s.doneCh:
		log.Info("Shutdown server successful")
	case <-time.After(10 * time.Second):
		log.Error("Shutdown server failed")
	}

	// Drain after the workers stopped, in-flight publishes are flushed
	// this way.
	if s.nc != nil {
		s.nc.Drain()
	}
}

func RunServeDetector(c *config.Config) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		s, err := newDetectorServer(c)
		if err != nil {
			log.Error("failed to create new server instance: ", err)
			os.Exit(1)
		}

		go s.Serve()

		// Wait for interrupt signal to gracefully shutdown the server
		quitCh := make(chan os.Signal, 1)
		signal.Notify(quitCh, os.Interrupt)
		<-quitCh

		// Shutdown the server
		s.Shutdown()
	}
}
