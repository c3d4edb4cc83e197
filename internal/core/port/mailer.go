package port

import "context"

// Mailer delivers a single transactional email. Implementations fail loudly
// on transport errors; whether that failure is fatal is the caller's call.
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// TemplateRenderer turns a named template plus context data into HTML.
// Missing templates are a startup-time configuration error, so Render only
// fails on execution problems.
type TemplateRenderer interface {
	Render(name string, data any) (string, error)
}
