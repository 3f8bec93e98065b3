package cli

import (
	"fmt"
	"os"
	"os/signal"

	nats "github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anomstream/anomalyd/config"
	"github.com/anomstream/anomalyd/pkg/notify/natsio"
)

type WatchHandler struct {
	c *config.Config
}

func newWatchHandler(c *config.Config) *WatchHandler {
	return &WatchHandler{c: c}
}

// Watch prints every anomaly notification to stdout until interrupted.
func (h *WatchHandler) Watch(cmd *cobra.Command, args []string) {
	nc, err := nats.Connect(h.c.NATSServerURL)
	if err != nil {
		log.Error("failed to connect to NATS server: ", err)
		os.Exit(1)
	}
	defer nc.Close()

	sub, err := natsio.NewSubscriber(nc, h.c.NotifySubject+".>").
		Subscribe(func(subject string, data []byte) {
			fmt.Printf("subject: %s, message: %s\n", subject, string(data))
		})
	if err != nil {
		log.Error("failed to subscribe: ", err)
		os.Exit(1)
	}
	defer sub.Unsubscribe()

	// Wait for interrupt signal
	quitCh := make(chan os.Signal, 1)
	signal.Notify(quitCh, os.Interrupt)
	<-quitCh
}
