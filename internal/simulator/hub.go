package simulator

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024
)

// Hub keeps the client registry and fans broadcasts out per topic. Unlike a
// chat hub keyed by a fixed room, clients join and leave topics dynamically
// through subscribe/unsubscribe messages while keeping one connection.
type Hub struct {
	// Registered clients and the topics each follows.
	clients map[*Client]map[string]bool
	// Topic to subscribed clients.
	topics map[string]map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	subscribe   chan *topicRequest
	unsubscribe chan *topicRequest
	broadcast   chan *TopicMessage

	// InboundMessages is consumed by the auction message handler.
	InboundMessages chan *ClientMessage
}

// Client represents one WebSocket connection to the simulator.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	// Buffered channel of outbound messages.
	Send chan []byte
	// Unique identifier for the client.
	ID string
}

type topicRequest struct {
	Client *Client
	Topic  string
}

// TopicMessage is an outbound frame addressed to every subscriber of Topic.
type TopicMessage struct {
	Topic string
	Data  []byte
}

// ClientMessage wraps an inbound frame with the client that sent it.
type ClientMessage struct {
	Client *Client
	Data   []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:         make(map[*Client]map[string]bool),
		topics:          make(map[string]map[*Client]bool),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		subscribe:       make(chan *topicRequest),
		unsubscribe:     make(chan *topicRequest),
		broadcast:       make(chan *TopicMessage, 64),
		InboundMessages: make(chan *ClientMessage, 64),
	}
}

// Run starts the hub listening on its channels until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	log.Info("Simulator hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info("Simulator hub shutting down")
			for client := range h.clients {
				close(client.Send)
			}
			return

		case client := <-h.register:
			h.clients[client] = make(map[string]bool)
			log.Info("Client registered",
				zap.String("clientID", client.ID),
				zap.Int("total_clients", len(h.clients)),
			)

		case client := <-h.unregister:
			if topics, ok := h.clients[client]; ok {
				for topic := range topics {
					h.dropFromTopic(client, topic)
				}
				delete(h.clients, client)
				close(client.Send)
				log.Info("Client unregistered",
					zap.String("clientID", client.ID),
					zap.Int("total_clients", len(h.clients)),
				)
			}

		case req := <-h.subscribe:
			if topics, ok := h.clients[req.Client]; ok {
				topics[req.Topic] = true
				if _, ok := h.topics[req.Topic]; !ok {
					h.topics[req.Topic] = make(map[*Client]bool)
				}
				h.topics[req.Topic][req.Client] = true
				log.Info("Client subscribed to topic",
					zap.String("clientID", req.Client.ID),
					zap.String("topic", req.Topic),
					zap.Int("subscribers", len(h.topics[req.Topic])),
				)
			}

		case req := <-h.unsubscribe:
			if topics, ok := h.clients[req.Client]; ok {
				delete(topics, req.Topic)
				h.dropFromTopic(req.Client, req.Topic)
			}

		case message := <-h.broadcast:
			clients := h.topics[message.Topic]
			log.Debug("Broadcasting to topic",
				zap.String("topic", message.Topic),
				zap.Int("clients", len(clients)),
			)
			for client := range clients {
				select {
				case client.Send <- message.Data:
				default:
					// Client cannot keep up, drop it.
					h.dropFromTopic(client, message.Topic)
					for topic := range h.clients[client] {
						h.dropFromTopic(client, topic)
					}
					delete(h.clients, client)
					close(client.Send)
					log.Warn("Failed to send to client, unregistering",
						zap.String("clientID", client.ID),
						zap.String("topic", message.Topic),
					)
				}
			}
		}
	}
}

func (h *Hub) dropFromTopic(client *Client, topic string) {
	if clients, ok := h.topics[topic]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.topics, topic)
			log.Info("Topic group removed as empty", zap.String("topic", topic))
		}
	}
}

// RegisterClient queues a new client for registration.
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient queues a client for removal.
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	default:
		log.Error("Unregister channel is full", zap.String("clientID", client.ID))
	}
}

// SubscribeClient adds the client to a topic group.
func (h *Hub) SubscribeClient(client *Client, topic string) {
	h.subscribe <- &topicRequest{Client: client, Topic: topic}
}

// UnsubscribeClient removes the client from a topic group.
func (h *Hub) UnsubscribeClient(client *Client, topic string) {
	h.unsubscribe <- &topicRequest{Client: client, Topic: topic}
}

// BroadcastToTopic sends data to every client subscribed to topic.
func (h *Hub) BroadcastToTopic(topic string, data []byte) {
	select {
	case h.broadcast <- &TopicMessage{Topic: topic, Data: data}:
	default:
		log.Error("Broadcast channel is full, message dropped", zap.String("topic", topic))
	}
}

// ReadPump reads frames from the client and forwards them to the hub's
// inbound channel. Runs on the connection's handler goroutine and returns
// when the connection drops.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
		log.Info("ReadPump stopped", zap.String("clientID", c.ID))
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("WebSocket read error",
					zap.String("clientID", c.ID),
					zap.Error(err),
				)
			} else {
				log.Info("WebSocket connection closed by peer",
					zap.String("clientID", c.ID),
				)
			}
			return
		}

		select {
		case c.Hub.InboundMessages <- &ClientMessage{Client: c, Data: message}:
		default:
			log.Error("Inbound channel is full, dropping message",
				zap.String("clientID", c.ID),
			)
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection and
// keeps the connection alive with pings. One goroutine per connection; it is
// the sole writer.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		log.Info("WritePump stopped", zap.String("clientID", c.ID))
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return

		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error("Failed to write message to client",
					zap.String("clientID", c.ID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
