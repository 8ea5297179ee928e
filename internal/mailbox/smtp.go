package mailbox

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"
)

// Sender relays a stored message outside the local mailbox.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender relays messages through an unauthenticated SMTP server, e.g. a local MTA.
type SMTPSender struct {
	addr     string
	from     string
	sendMail sendMailFunc
}

// NewSMTPSender creates a relay for addr. from overrides the envelope sender when set.
func NewSMTPSender(addr string, from string) *SMTPSender {
	return &SMTPSender{addr: addr, from: strings.TrimSpace(from), sendMail: smtp.SendMail}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	envelope := msg.From
	if s.from != "" {
		envelope = s.from
	}

	done := make(chan error, 1)
	go func() {
		done <- s.sendMail(s.addr, nil, envelope, []string{msg.To}, buildMessage(envelope, msg))
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", msg.To, err)
		}
		return nil
	}
}

// buildMessage renders RFC 5322 headers and a plain-text body.
func buildMessage(from string, msg Message) []byte {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = from[at+1:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	if from != msg.From {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", msg.From)
	}
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", msg.CreatedAt.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@%s>\r\n", msg.ID, domain)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}
