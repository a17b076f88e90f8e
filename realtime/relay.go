package realtime

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

// Relay bridges the local hub over a Redis channel so several instances
// share one bus. Publish goes to Redis only; the Run loop feeds everything
// arriving on the channel (own events included) into the local hub, which
// keeps local delivery order equal to channel order across instances.
type Relay struct {
	rc      *redis.Client
	channel string
	hub     *Hub
}

// NewRelay creates a relay publishing on the given Redis channel.
func NewRelay(rc *redis.Client, channel string, hub *Hub) *Relay {
	return &Relay{rc: rc, channel: channel, hub: hub}
}

// Publish serializes ev onto the Redis channel. Failures are logged and
// dropped: the bus is best-effort by contract.
func (r *Relay) Publish(ev domain.Event) {
	data, err := sonic.Marshal(ev)
	if err != nil {
		log.Errorf("marshal event: %v", err)
		return
	}
	if err := r.rc.Publish(context.Background(), r.channel, data).Err(); err != nil {
		log.WithFields(log.Fields{"board": ev.BoardID, "event": ev.Type}).
			Errorf("relay publish: %v", err)
	}
}

// Run consumes the Redis channel until ctx is done, reconnecting with a
// short pause whenever the subscription channel closes.
func (r *Relay) Run(ctx context.Context) {
	for {
		sub := r.rc.Subscribe(ctx, r.channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var ev domain.Event
				if err := sonic.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Errorf("unable to parse relayed event: %v", err)
					continue
				}
				r.hub.Publish(ev)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		log.Error("relay channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}
