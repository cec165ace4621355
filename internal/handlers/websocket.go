package handlers

import (
  "context"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/gorilla/websocket"

  "github.com/snapmoment/snapmoment-backend/internal/logger"
  "github.com/snapmoment/snapmoment-backend/internal/requestdata"
  "github.com/snapmoment/snapmoment-backend/internal/socket"
)

var upgrader = websocket.Upgrader{
  CheckOrigin: func(r *http.Request) bool {
    return true
  },
}

// WsHandler upgrades the request and parks the client on the global moments
// channel plus its own user channel. Further subscriptions arrive as inbound
// subscribe/unsubscribe frames handled by the client read loop.
func WsHandler(hub *socket.Hub, log *logger.Logger) gin.HandlerFunc {
  return func(c *gin.Context) {
    rd := requestdata.GetRequestData(c.Request.Context())
    if rd == nil || rd.UserID == uuid.Nil {
      c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
      return
    }
    conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
    if err != nil {
      log.Warn("Failed to upgrade to websocket", "error", err)
      return
    }

    // The socket outlives the HTTP request, so it gets its own context.
    ctx, cancel := context.WithCancel(context.Background())
    client := socket.NewClient(conn, hub, rd.UserID, cancel, log)

    channels := []string{
      socket.ChannelMoments,
      "user:" + rd.UserID.String(),
    }
    hub.Subscribe(client, channels)

    go client.ReadLoop(ctx)
    go client.WriteLoop(ctx)
  }
}
