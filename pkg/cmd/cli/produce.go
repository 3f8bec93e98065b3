package cli

import (
	"context"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anomstream/anomalyd/config"
	"github.com/anomstream/anomalyd/pkg/producer"
	"github.com/anomstream/anomalyd/pkg/stream/kafka"
)

type ProduceHandler struct {
	c *config.Config
}

func newProduceHandler(c *config.Config) *ProduceHandler {
	return &ProduceHandler{c: c}
}

func (h *ProduceHandler) Produce(cmd *cobra.Command, args []string) {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: h.c.BrokerList(),
		Topic:   h.c.KafkaTopic,
	})
	defer func() {
		if err := writer.Close(); err != nil {
			log.Error("failed to close stream writer: ", err)
		}
	}()

	p := producer.New(writer, producer.Options{
		Rate:  h.c.ProduceRate,
		Count: h.c.ProduceCount,
		Banks: h.c.ProduceBanks,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stop producing on interrupt signal
	quitCh := make(chan os.Signal, 1)
	signal.Notify(quitCh, os.Interrupt)
	go func() {
		<-quitCh
		cancel()
	}()

	if err := p.Run(ctx); err != nil {
		log.Error("producer failed: ", err)
		os.Exit(1)
	}
}
