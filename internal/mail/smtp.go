package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-cfp-voting/internal/config"
)

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier renders templates and sends them through an SMTP relay.
type SMTPNotifier struct {
	Addr     string
	Auth     smtp.Auth
	From     string
	Renderer *Renderer

	// Send delivers the message; defaults to smtp.SendMail.
	Send SendFunc
	// Now stamps the Date header; defaults to time.Now.
	Now func() time.Time
}

// NewSMTPNotifier builds a notifier from cfg. PLAIN auth is used when a
// username is configured.
func NewSMTPNotifier(cfg config.MailConfig, r *Renderer) *SMTPNotifier {
	n := &SMTPNotifier{
		Addr:     net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		From:     cfg.Sender,
		Renderer: r,
		Send:     smtp.SendMail,
		Now:      time.Now,
	}
	if cfg.SMTPUsername != "" {
		n.Auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return n
}

// Notify renders tmpl and sends it to every recipient in one message.
// smtp.SendMail has no context support; ctx is only checked before sending.
func (n *SMTPNotifier) Notify(ctx context.Context, to []string, tmpl string, data map[string]any) error {
	if len(to) == 0 {
		return fmt.Errorf("mail %s: no recipients", tmpl)
	}
	subject, body, err := n.Renderer.Render(tmpl, data)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	msg := buildMessage(n.From, to, subject, body, now())
	send := n.Send
	if send == nil {
		send = smtp.SendMail
	}
	if err := send(n.Addr, n.Auth, n.From, to, msg); err != nil {
		return fmt.Errorf("mail %s: %w", tmpl, err)
	}
	return nil
}

// buildMessage assembles an RFC 5322 plain-text message with CRLF endings.
func buildMessage(from string, to []string, subject, body string, date time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + sanitizeHeader(subject) + "\r\n")
	b.WriteString("Date: " + date.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}

// sanitizeHeader drops line breaks so user text cannot inject headers.
func sanitizeHeader(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
