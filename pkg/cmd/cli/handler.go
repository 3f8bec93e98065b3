package cli

import "github.com/anomstream/anomalyd/config"

type Handler struct {
	Migration *MigrateHandler
	Producer  *ProduceHandler
	Watch     *WatchHandler
}

func NewHandler(c *config.Config) *Handler {
	return &Handler{
		Migration: newMigrateHandler(c),
		Producer:  newProduceHandler(c),
		Watch:     newWatchHandler(c),
	}
}
