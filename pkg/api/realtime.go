package api

import (
	"encoding/json"
	"strings"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/labstack/echo"
	log "github.com/sirupsen/logrus"

	"github.com/anomstream/anomalyd/pkg/api/resource"
)

// realtimeAnomaliesHandler upgrades the request to a websocket and
// forwards every published anomaly notification to the client until it
// disconnects.
func (h *Handler) realtimeAnomaliesHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, _, _, err := ws.UpgradeHTTP(c.Request(), c.Response())
		if err != nil {
			log.Error("api: failed to upgrade to websocket: ", err)
			return nil
		}
		defer conn.Close()

		sub, err := h.subscriber.Subscribe(func(subject string, data []byte) {
			var payload interface{}
			if err := json.Unmarshal(data, &payload); err != nil {
				return
			}

			event := resource.NewRealtimeAnomaly(bankIDFromSubject(subject), payload)
			out, _ := json.Marshal(event)
			if err := wsutil.WriteServerMessage(conn, ws.OpText, out); err != nil {
				log.Error("api: failed to send realtime anomaly: ", err)
			}
		})
		if err != nil {
			log.Error("api: failed to subscribe for realtime anomalies: ", err)
			return nil
		}
		defer sub.Unsubscribe()

		// Reading keeps the connection serviced and detects the client
		// going away, the received frames themselves are discarded.
		for {
			if _, _, err := wsutil.ReadClientData(conn); err != nil {
				return nil
			}
		}
	}
}

// bankIDFromSubject extracts the last subject token, which carries the
// bank ID of the published anomaly.
func bankIDFromSubject(subject string) string {
	if i := strings.LastIndex(subject, "."); i >= 0 {
		return subject[i+1:]
	}
	return subject
}
