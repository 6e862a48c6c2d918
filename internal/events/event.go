// Package events publishes order lifecycle events to a message broker.
package events

import (
	"time"

	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/xenking/sareeta-shop/internal/domain/order"
)

// EventType names an order event.
type EventType string

// EventTypeOrderSubmitted is emitted once per committed order.
const EventTypeOrderSubmitted EventType = "order.submitted"

// Event is the envelope written to the broker.
type Event struct {
	ID         string
	Type       EventType
	OccurredAt time.Time
	Payload    []byte
}

// NewOrderSubmitted builds the event for a committed order.
func NewOrderSubmitted(o *order.Order, now time.Time) Event {
	ev := Event{
		ID:         uuid.NewString(),
		Type:       EventTypeOrderSubmitted,
		OccurredAt: now.UTC(),
	}
	ev.Payload = encodeEvent(ev, func(e *jx.Encoder) { encodeOrder(e, o) })
	return ev
}

func encodeEvent(ev Event, data func(e *jx.Encoder)) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(ev.ID) })
		e.Field("type", func(e *jx.Encoder) { e.Str(string(ev.Type)) })
		e.Field("occurred_at", func(e *jx.Encoder) { e.Str(ev.OccurredAt.Format(time.RFC3339Nano)) })
		e.Field("data", data)
	})
	return e.Bytes()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("order_id", func(e *jx.Encoder) { e.Int64(o.ID) })
		e.Field("user_id", func(e *jx.Encoder) { e.Int64(o.User.ID) })
		e.Field("username", func(e *jx.Encoder) { e.Str(o.User.Username) })
		e.Field("total", func(e *jx.Encoder) { e.Str(o.Total.StringFixed(2)) })
		e.Field("created_at", func(e *jx.Encoder) { e.Str(o.CreatedAt.UTC().Format(time.RFC3339Nano)) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("id", func(e *jx.Encoder) { e.Int64(it.ID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
						e.Field("price", func(e *jx.Encoder) { e.Str(it.Price.StringFixed(2)) })
					})
				}
			})
		})
	})
}
