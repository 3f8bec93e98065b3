package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	nats "github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anomstream/anomalyd/config"
	"github.com/anomstream/anomalyd/pkg/api"
	"github.com/anomstream/anomalyd/pkg/notify/natsio"
	"github.com/anomstream/anomalyd/pkg/storage"
)

type apiServer struct {
	quitCh chan bool
	doneCh chan bool

	c     *config.Config
	nc    *nats.Conn
	store storage.Interface
}

func newAPIServer(c *config.Config) (*apiServer, error) {
	s := &apiServer{
		quitCh: make(chan bool),
		doneCh: make(chan bool),
		c:      c,
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
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Debug("nats connection closed")
		}),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			log.Warn("nats connection lost")
		}))
	if err != nil {
		return nil, err
	}
	s.nc = nc

	return s, nil
}

func (s *apiServer) Serve() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(logger())

	// Register API endpoints
	subscriber := natsio.NewSubscriber(s.nc, s.c.NotifySubject+".>")
	apiHandler := api.NewHandler(subscriber, s.store)
	apiHandler.RegisterRoutes(e)

	go func() {
		log.WithFields(log.Fields{
			"host": s.c.BindHost,
			"port": s.c.BindPort,
		}).Info("Starting server")

		if err := e.Start(fmt.Sprintf("%s:%d", s.c.BindHost, s.c.BindPort)); err != nil {
			e.Logger.Info("Shutting down the server")
		}
	}()

	// Wait until receiving the quit signal
	<-s.quitCh
	log.Info("Shutdown signal received")

	// Create a 10 second timeout context
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown the echo web server
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Error(err)
	}

	// We've done!
	s.doneCh <- true
}

func (s *apiServer) Shutdown() {
	// Send the quit signal to the server.Serve() routine
	s.quitCh <- true

	// Wait up to 10 seconds
	select {
	case <-s.doneCh:
		log.Info("Shutdown server successful")
	case <-time.After(10 * time.Second):
		log.Error("Shutdown server failed")
	}

	if s.nc != nil {
		s.nc.Drain()
	}
}

func RunServeAPI(c *config.Config) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		s, err := newAPIServer(c)
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
