package eventbus

import (
	"context"

	"github.com/emetric-hq/emetric/pkg/eventbus"
	"github.com/emetric-hq/emetric/pkg/outbox"
)

// Dispatcher bridges relayed outbox messages onto the in-process event
// bus. Subscribers use the signature
//
//	func(meta *outbox.Meta, topic string, payload json.RawMessage) error
//
// and a returned error makes the relay retry the message.
type Dispatcher struct {
	bus eventbus.EventBusWithError
}

func New(bus eventbus.EventBusWithError) *Dispatcher {
	return &Dispatcher{bus: bus}
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg outbox.DispatchedMessage) error {
	_ = ctx
	return d.bus.PublishE(&msg.Meta, msg.Meta.Topic, msg.Payload)
}
