package mail

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogNotifier renders messages and logs them instead of sending. It is the
// default when SMTP_HOST is empty.
type LogNotifier struct {
	Renderer *Renderer
}

// Notify renders tmpl and logs the result at info level.
func (n LogNotifier) Notify(ctx context.Context, to []string, tmpl string, data map[string]any) error {
	subject, body, err := n.Renderer.Render(tmpl, data)
	if err != nil {
		return err
	}
	ctxLogger(ctx).Info().
		Strs("to", to).
		Str("template", tmpl).
		Str("subject", subject).
		Int("body_bytes", len(body)).
		Msg("mail not sent: no SMTP relay configured")
	return nil
}

// ctxLogger returns the logger carried by ctx, or the global logger.
func ctxLogger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
