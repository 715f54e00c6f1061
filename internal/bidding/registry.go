package bidding

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// UpdateHandler receives every bid update published on a subscribed topic.
type UpdateHandler func(update BidUpdatePayload)

type subscription struct {
	id      uint64
	handler UpdateHandler
}

// Registry multiplexes one physical connection across many logical topic
// subscriptions. It holds non-owning associations only: removing the last
// subscription for a topic never closes the underlying connection, whose
// lifetime is governed by whoever opened it.
type Registry struct {
	mu     sync.Mutex
	nextID uint64
	topics map[string][]subscription
}

func NewRegistry() *Registry {
	return &Registry{topics: make(map[string][]subscription)}
}

// Subscribe registers handler for every update addressed to topic and
// returns the matching unsubscribe function. Multiple subscribers per topic
// are allowed; each receives every dispatched update while registered.
// The returned function is idempotent.
func (r *Registry) Subscribe(topic string, handler UpdateHandler) (unsubscribe func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.topics[topic] = append(r.topics[topic], subscription{id: id, handler: handler})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.remove(topic, id)
		})
	}
}

func (r *Registry) remove(topic string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := r.topics[topic]
	for i, sub := range subs {
		if sub.id == id {
			r.topics[topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(r.topics[topic]) == 0 {
		delete(r.topics, topic)
	}
}

// Dispatch fans update out to every handler subscribed to topic. Updates for
// unknown topics are dropped without error, so the client stays forward
// compatible with message types it does not yet understand.
func (r *Registry) Dispatch(topic string, update BidUpdatePayload) {
	r.mu.Lock()
	subs := r.topics[topic]
	handlers := make([]UpdateHandler, len(subs))
	for i, sub := range subs {
		handlers[i] = sub.handler
	}
	r.mu.Unlock()

	if len(handlers) == 0 {
		log.Debug("No subscribers for topic, dropping update", zap.String("topic", topic))
		return
	}
	for _, h := range handlers {
		h(update)
	}
}

// Route returns a raw-message sink that decodes inbound frames and feeds bid
// updates into the registry. Wire it as the ConnManager's onMessage callback.
func Route(registry *Registry) func(data []byte) {
	return func(data []byte) {
		var base BaseMessage
		if err := json.Unmarshal(data, &base); err != nil {
			log.Warn("Dropping malformed message from server", zap.Error(err))
			return
		}
		switch base.Type {
		case MessageTypeBidUpdate:
			var msg BidUpdateMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				log.Warn("Dropping malformed bid update", zap.Error(err))
				return
			}
			registry.Dispatch(TopicForKoi(msg.Payload.AuctionKoiID), msg.Payload)
		case MessageTypeServerError:
			var msg ServerErrorMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				return
			}
			log.Warn("Bidding server reported an error", zap.String("error", msg.Payload.Error))
		default:
			// Unknown message types are dropped for forward compatibility.
			log.Debug("Ignoring message of unknown type", zap.String("type", string(base.Type)))
		}
	}
}
