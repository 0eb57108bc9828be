package stream

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	channelPrefix  = "heggeo:"
	channelSuffix  = ":events"
	channelPattern = channelPrefix + "*" + channelSuffix
)

// Event is what websocket clients receive for their owner.
type Event struct {
	Kind    string    `json:"kind"`
	Owner   string    `json:"owner"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// Hub fans events out to the websocket clients of each owner. With Redis
// configured every event goes through pub/sub so all instances see it;
// without Redis delivery is local only.
type Hub struct {
	redis  *redis.Client
	pubsub *redis.PubSub
	log    zerolog.Logger
	now    func() time.Time

	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	Owner string
	Send  chan []byte
}

func NewHub(redisClient *redis.Client, log zerolog.Logger) *Hub {
	h := &Hub{
		log:     log,
		now:     time.Now,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		ps := redisClient.PSubscribe(ctx, channelPattern)
		if _, err := ps.Receive(ctx); err != nil {
			log.Warn().Err(err).Msg("redis subscribe failed, events stay local")
			_ = ps.Close()
			return h
		}
		h.redis = redisClient
		h.pubsub = ps
		go h.forward(ps.Channel())
	}
	return h
}

func (h *Hub) Register(owner string) *Client {
	client := &Client{
		Owner: owner,
		Send:  make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[owner] == nil {
		h.clients[owner] = map[*Client]struct{}{}
	}
	h.clients[owner][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ownerClients, ok := h.clients[client.Owner]; ok {
		if _, registered := ownerClients[client]; !registered {
			return
		}
		delete(ownerClients, client)
		if len(ownerClients) == 0 {
			delete(h.clients, client.Owner)
		}
		close(client.Send)
	}
}

// Broadcast sends payload to every client of owner.
func (h *Hub) Broadcast(owner string, payload []byte) {
	if h.redis != nil {
		err := h.redis.Publish(context.Background(), redisChannel(owner), payload).Err()
		if err == nil {
			return
		}
		h.log.Warn().Err(err).Str("owner", owner).Msg("redis publish failed, delivering locally")
	}
	h.deliver(owner, payload)
}

func (h *Hub) PublishEvent(owner, kind string, payload any) {
	data, err := json.Marshal(Event{Kind: kind, Owner: owner, Payload: payload, At: h.now()})
	if err != nil {
		h.log.Error().Err(err).Str("kind", kind).Msg("encode event")
		return
	}
	h.Broadcast(owner, data)
}

// Close stops the Redis subscription. Registered clients are left to their
// handlers.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	return h.pubsub.Close()
}

func (h *Hub) deliver(owner string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[owner] {
		select {
		case client.Send <- payload:
		default:
			h.log.Debug().Str("owner", owner).Msg("client buffer full, dropping event")
		}
	}
}

func (h *Hub) forward(ch <-chan *redis.Message) {
	for msg := range ch {
		owner := ownerFromChannel(msg.Channel)
		if owner == "" {
			continue
		}
		h.deliver(owner, []byte(msg.Payload))
	}
}

func redisChannel(owner string) string {
	return channelPrefix + owner + channelSuffix
}

func ownerFromChannel(ch string) string {
	// heggeo:{owner}:events
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
