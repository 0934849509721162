package worker

import (
	"context"
	"encoding/json"

	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
	"github.com/ibrahimkeyboad/maxen/internal/core/ports"
)

// Publisher turns domain events into webhook jobs for url.
type Publisher struct {
	outbox ports.Outbox
	url    string
}

func NewPublisher(outbox ports.Outbox, url string) *Publisher {
	return &Publisher{outbox: outbox, url: url}
}

func (p *Publisher) Publish(ctx context.Context, ev domain.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.outbox.Enqueue(ctx, p.url, payload)
}
