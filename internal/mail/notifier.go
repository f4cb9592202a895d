// Package mail delivers templated notifications.
//
// A Notifier renders a named template (e.g. "email/conduct-report") with a
// data map and delivers it to the recipients. Three implementations exist:
//
//   - SMTPNotifier sends through an SMTP relay.
//   - LogNotifier writes the rendered message to the log; it is used when no
//     relay is configured.
//   - Async wraps another Notifier and delivers in the background.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

// ConductReportTemplate is sent to the conference's conduct contact.
const ConductReportTemplate = "email/conduct-report"

// Notifier delivers a rendered template to recipients.
type Notifier interface {
	Notify(ctx context.Context, to []string, tmpl string, data map[string]any) error
}

//go:embed templates/email/*.tmpl
var templateFS embed.FS

// Renderer turns template names into subject and body text.
type Renderer struct {
	tmpls map[string]*template.Template
}

// NewRenderer parses the embedded templates. Each file must define a
// "subject" and a "body" template.
func NewRenderer() (*Renderer, error) {
	entries, err := templateFS.ReadDir("templates/email")
	if err != nil {
		return nil, err
	}
	r := &Renderer{tmpls: make(map[string]*template.Template, len(entries))}
	for _, e := range entries {
		path := "templates/email/" + e.Name()
		t, err := template.New(e.Name()).ParseFS(templateFS, path)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		name := "email/" + strings.TrimSuffix(e.Name(), ".tmpl")
		r.tmpls[name] = t
	}
	return r, nil
}

// Render executes tmpl with data.
func (r *Renderer) Render(tmpl string, data map[string]any) (subject, body string, err error) {
	t, ok := r.tmpls[tmpl]
	if !ok {
		return "", "", fmt.Errorf("unknown template %q", tmpl)
	}
	var sb, bb bytes.Buffer
	if err := t.ExecuteTemplate(&sb, "subject", data); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", tmpl, err)
	}
	if err := t.ExecuteTemplate(&bb, "body", data); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", tmpl, err)
	}
	return strings.TrimSpace(sb.String()), bb.String(), nil
}
