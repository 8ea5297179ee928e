package mailbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Postman stores outgoing drafts and delivers them locally or over a Sender.
type Postman struct {
	store  *Store
	sender Sender
	domain string
	logger *slog.Logger
}

// NewPostman wires delivery. sender may be nil, in which case only local
// recipients on domain can be reached.
func NewPostman(store *Store, sender Sender, domain string, logger *slog.Logger) *Postman {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Postman{store: store, sender: sender, domain: strings.ToLower(strings.TrimSpace(domain)), logger: logger}
}

// Post enqueues draft from sender and attempts delivery. The returned message
// carries the final status; delivery errors are also returned.
func (p *Postman) Post(ctx context.Context, from string, draft Draft) (Message, error) {
	msg, err := p.store.Enqueue(ctx, from, draft)
	if err != nil {
		return Message{}, err
	}

	status, deliverErr := p.deliver(ctx, msg)
	reason := ""
	if deliverErr != nil {
		reason = deliverErr.Error()
	}
	if err := p.store.SetStatus(ctx, msg.ID, status, reason); err != nil {
		return Message{}, err
	}
	msg.Status = status
	msg.Error = reason

	p.logger.Info("message posted",
		"message_id", msg.ID,
		"status", string(status),
		"local", p.isLocal(msg.To),
	)
	return msg, deliverErr
}

func (p *Postman) deliver(ctx context.Context, msg Message) (Status, error) {
	if p.isLocal(msg.To) {
		if _, err := p.store.Account(ctx, msg.To); err != nil {
			return StatusFailed, fmt.Errorf("deliver to %s: %w", msg.To, err)
		}
		return StatusDelivered, nil
	}
	if p.sender == nil {
		return StatusFailed, fmt.Errorf("deliver to %s: no smtp relay configured", msg.To)
	}
	if err := p.sender.Send(ctx, msg); err != nil {
		return StatusFailed, err
	}
	return StatusSent, nil
}

func (p *Postman) isLocal(addr string) bool {
	return p.domain != "" && strings.HasSuffix(normalizeAddress(addr), "@"+p.domain)
}
