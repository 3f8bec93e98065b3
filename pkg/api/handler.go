package api

import (
	"net/http"

	"github.com/labstack/echo"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/anomstream/anomalyd/pkg/notify"
	"github.com/anomstream/anomalyd/pkg/storage"
)

// Handler contains all properties to serve the API
type Handler struct {
	subscriber notify.Subscriber
	store      storage.Interface
}

// NewHandler create a new API handler
func NewHandler(subscriber notify.Subscriber, store storage.Interface) *Handler {
	return &Handler{
		subscriber: subscriber,
		store:      store,
	}
}

// RegisterRoutes attaches the handlers to the echo web server
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	log.Debug("Register API routes")
	api := e.Group("/api/v1")
	api.GET("/anomalies", h.handleFetchAnomalies)
	api.GET("/anomalies/:transactionId", h.handleFetchAnomaliesByTransactionID)
	api.GET("/anomalies/:transactionId/:createdAt", h.handleGetAnomalyByKey)

	api.Any("/realtime-anomalies", h.realtimeAnomaliesHandler())

	e.GET("/healthz", h.handleHealthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

func (h *Handler) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
