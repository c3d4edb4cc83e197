package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names recognized by the renderer. Referencing an unknown name is
// a configuration error surfaced at startup.
const (
	TemplateVerification    = "verification"
	TemplatePasswordReset   = "password_reset"
	TemplatePurchaseReceipt = "purchase_receipt"
	TemplateLicenseDelivery = "license_delivery"
)

var requiredTemplates = []string{
	TemplateVerification,
	TemplatePasswordReset,
	TemplatePurchaseReceipt,
	TemplateLicenseDelivery,
}

// Renderer renders named HTML templates parsed once at startup.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded template set and verifies every required
// template is present. A missing template fails construction, not a request.
func NewRenderer() (*Renderer, error) {
	parsed, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}

	for _, name := range requiredTemplates {
		if parsed.Lookup(name+".html") == nil {
			return nil, fmt.Errorf("mail template %q missing", name)
		}
	}

	return &Renderer{templates: parsed}, nil
}

// Render executes the named template with the provided data.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return "", fmt.Errorf("render mail template %q: %w", name, err)
	}
	return buf.String(), nil
}
