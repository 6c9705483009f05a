package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/menu-catalog/hub"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// MenuHubHandler upgrades to a websocket and keeps the client registered
// until it disconnects. Incoming messages are read and discarded.
func MenuHubHandler(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		h.Register(ws)

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		h.Unregister(ws)
	}
}
