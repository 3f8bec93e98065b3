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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anomstream/anomalyd/config"
	"github.com/anomstream/anomalyd/pkg/archive"
	"github.com/anomstream/anomalyd/pkg/stream"
	"github.com/anomstream/anomalyd/pkg/stream/kafka"
)

type archiverServer struct {
	quitCh chan bool
	doneCh chan bool

	c        *config.Config
	reader   stream.Reader
	inserter *archive.ClickHouseInserter
	arch     *archive.Archiver
}

func newArchiverServer(c *config.Config) (*archiverServer, error) {
	s := &archiverServer{
		quitCh: make(chan bool),
		doneCh: make(chan bool),
		c:      c,
	}

	inserter, err := archive.NewClickHouseInserter(archive.ClickHouseConfig{
		Addr:     c.ClickHouseAddr,
		Database: c.ClickHouseDatabase,
		Username: c.ClickHouseUsername,
		Password: c.ClickHousePassword,
	})
	if err != nil {
		return nil, err
	}
	s.inserter = inserter

	s.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers: c.BrokerList(),
		Topic:   c.KafkaTopic,
		GroupID: c.KafkaArchiverGroup,
	})

	s.arch = archive.New(s.reader, inserter, archive.Options{
		BatchSize:     c.ArchiveBatchSize,
		FlushInterval: c.ArchiveFlushInterval,
	})

	return s, nil
}

func (s *archiverServer) Serve() {
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
		runDoneCh <- s.arch.Run(ctx)
	}()

	// Wait until receiving the quit signal or the archiver stopping on
	// its own.
	stopped := false
	select {
	case <-s.quitCh:
		log.Info("Shutdown signal received")
	case err := <-runDoneCh:
		stopped = true
		if err != nil {
			log.Error("archiver stopped unexpectedly: ", err)
		}
		syscall.Kill(syscall.Getpid(), syscall.SIGINT)
		<-s.quitCh
	}

	cancel()
	if !stopped {
		if err := <-runDoneCh; err != nil {
			log.Error("archiver run failed: ", err)
		}
	}

	if err := s.reader.Close(); err != nil {
		log.Error("failed to close stream reader: ", err)
	}
	if err := s.inserter.Close(); err != nil {
		log.Error("failed to close archive connection: ", err)
	}

	// Create a 10 second timeout context
	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()

	// Shutdown the echo web server
	if err := e.Shutdown(sctx); err != nil {
		e.Logger.Error(err)
	}

	// We've done!
	s.doneCh <- true
}

func (s *archiverServer) Shutdown() {
	// Send the quit signal to the server.Serve() routine
	s.quitCh <- true

	// Wait up to 10 seconds
	select {
	case <-s.doneCh:
		log.Info("Shutdown server successful")
	case <-time.After(10 * time.Second):
		log.Error("Shutdown server failed")
	}
}

func RunServeArchiver(c *config.Config) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		s, err := newArchiverServer(c)
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
