// Transcript Viewer shows dictated utterances and mode changes live.
// Consumes from Kafka topics and pushes events to the browser over WebSocket.
package main

import (
	"context"
	"embed"
	"encoding/json"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"

	"voice-dictation/internal/models"
)

//go:embed static/*
var staticFiles embed.FS

// ViewerEvent is what the page receives. Utterance fields are empty for
// mode changes and the other way round.
type ViewerEvent struct {
	EventType   string `json:"eventType"`
	SessionID   string `json:"sessionId"`
	UtteranceID string `json:"utteranceId,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Text        string `json:"text,omitempty"`
	Chunks      int    `json:"chunks,omitempty"`
	AudioMs     int64  `json:"audioMs,omitempty"`
	Provider    string `json:"provider,omitempty"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

// Hub manages WebSocket connections
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan ViewerEvent
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan ViewerEvent, 100),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("Client connected. Total: %d", n)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("Client disconnected. Total: %d", n)

		case event := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteJSON(event); err != nil {
					log.Printf("Write error: %v", err)
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local tool
	},
}

func wsHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade error: %v", err)
			return
		}
		hub.register <- conn

		go func() {
			defer func() {
				hub.unregister <- conn
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					break
				}
			}
		}()
	}
}

// decode maps a topic payload onto ViewerEvent.
func decode(value []byte) (ViewerEvent, error) {
	var head struct {
		EventType string `json:"eventType"`
	}
	if err := json.Unmarshal(value, &head); err != nil {
		return ViewerEvent{}, err
	}

	switch head.EventType {
	case models.EventModeChanged:
		var ev models.ModeChanged
		if err := json.Unmarshal(value, &ev); err != nil {
			return ViewerEvent{}, err
		}
		return ViewerEvent{
			EventType: ev.EventType,
			SessionID: ev.SessionID,
			From:      ev.From,
			To:        ev.To,
			Reason:    ev.Reason,
			Timestamp: ev.Timestamp,
		}, nil
	default:
		var ev models.UtteranceTranscribed
		if err := json.Unmarshal(value, &ev); err != nil {
			return ViewerEvent{}, err
		}
		return ViewerEvent{
			EventType:   ev.EventType,
			SessionID:   ev.SessionID,
			UtteranceID: ev.UtteranceID,
			Mode:        ev.Mode,
			Text:        ev.Text,
			Chunks:      ev.Chunks,
			AudioMs:     ev.AudioMs,
			Provider:    ev.Provider,
			Timestamp:   ev.Timestamp,
		}, nil
	}
}

func consumeKafka(ctx context.Context, hub *Hub, brokers, topic string) {
	// Partition reader without a consumer group
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   strings.Split(brokers, ","),
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	if err := reader.SetOffsetAt(ctx, time.Now().Add(-1*time.Hour)); err != nil {
		log.Printf("Could not rewind %s, reading from the end: %v", topic, err)
	}

	log.Printf("Consuming from Kafka topic: %s partition 0 (last hour)", topic)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Kafka read error on %s: %v", topic, err)
			time.Sleep(time.Second)
			continue
		}

		event, err := decode(msg.Value)
		if err != nil {
			log.Printf("JSON unmarshal error: %v", err)
			continue
		}

		log.Printf("Received %s: %s (session: %s)", event.EventType, truncate(event.Text+event.To, 40), event.SessionID)
		hub.broadcast <- event
	}
}

func main() {
	port := flag.String("port", "8081", "HTTP server port")
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topicUtterance := flag.String("topic-utterance", "dictation.utterance.transcribed", "Utterance topic")
	topicSession := flag.String("topic-session", "dictation.session.mode", "Mode change topic")
	flag.Parse()

	hub := newHub()
	go hub.run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go consumeKafka(ctx, hub, *brokers, *topicUtterance)
	go consumeKafka(ctx, hub, *brokers, *topicSession)

	staticFS, _ := fs.Sub(staticFiles, "static")
	http.Handle("/", http.FileServer(http.FS(staticFS)))
	http.HandleFunc("/ws", wsHandler(hub))

	log.Printf("Transcript Viewer starting on http://localhost:%s", *port)
	log.Printf("   Kafka brokers: %s", *brokers)
	log.Printf("   Topics: %s, %s", *topicUtterance, *topicSession)

	if err := http.ListenAndServe(":"+*port, nil); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
