package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"
	"github.com/google/uuid"
)

// Locator identifies the user behind an upgrade request and the household
// room the connection should join.
type Locator func(r *http.Request) (userID, householdID uuid.UUID, err error)

// HandleWebSocket upgrades authenticated requests and runs them as Hub clients.
func HandleWebSocket(hub *Hub, locate Locator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, householdID, err := locate(r)
		if err != nil {
			hub.logger.Warn("websocket locate", "error", err)
			http.Error(w, "no household", http.StatusForbidden)
			return
		}

		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			hub.logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, userID, householdID)
		client.Run(r.Context())
	}
}
