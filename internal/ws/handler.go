package ws

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// ServeWS upgrades the connection and attaches it to the hub. The
// user id comes from the query string; dedicated auth is out of scope
// for the status feed, which only carries the user's own match events.
func ServeWS(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
		if err != nil || userID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "valid user_id query parameter required"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade failed for user %d: %v", userID, err)
			return
		}

		client := &Client{
			conn:   conn,
			userID: userID,
			send:   make(chan []byte, 32),
		}
		hub.register <- client

		go client.writePump()
		go client.readPump(hub)
	}
}
