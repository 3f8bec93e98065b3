package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	kafka "github.com/segmentio/kafka-go"
)

func main() {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		brokers = "localhost:9092"
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{brokers},
		Topic:       "transactions",
		StartOffset: kafka.LastOffset,
	})
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		quitCh := make(chan os.Signal, 1)
		signal.Notify(quitCh, os.Interrupt)
		<-quitCh
		cancel()
	}()

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Fatal(err)
		}
		fmt.Printf("partition: %d, offset: %d, key: %s, value: %s\n",
			m.Partition, m.Offset, string(m.Key), string(m.Value))
	}
}
