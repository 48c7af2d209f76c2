package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"trading-core/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// topicEvents maps the ?topic= query param to the bus event it streams.
// bar is the default: per-bar progress is the highest-volume, most useful
// feed for a live-updating run dashboard.
var topicEvents = map[string]events.Event{
	"bar":  events.EventBarProcessed,
	"run":  events.EventRunCompleted,
	"risk": events.EventRiskAlert,
}

func (s *Server) websocket(c *gin.Context) {
	topic := c.DefaultQuery("topic", "bar")
	event, ok := topicEvents[topic]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_TOPIC", "error": "unknown topic"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if s.Bus == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"bus not ready"}`))
		return
	}

	stream, unsub := s.Bus.Subscribe(event, 100)
	defer unsub()

	for msg := range stream {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("ws write error: %v", err)
			return
		}
	}
}
