package services

import (
	"fmt"
	"html/template"
	"strings"
	"sync"

	"github.com/osteele/liquid"
)

// EmailTemplate is a Liquid subject/body pair.
type EmailTemplate struct {
	Subject string
	Body    string
}

// Template names used by the workflow.
const (
	TemplateApplicationSubmitted = "application_submitted"
	TemplateStatusChanged        = "status_changed"
	TemplateChangesRequested     = "changes_requested"
	TemplateApplicationDecided   = "application_decided"
	TemplateDocumentValidated    = "document_validated"
)

var defaultTemplates = map[string]EmailTemplate{
	TemplateApplicationSubmitted: {
		Subject: "Application {{ reference }} received",
		Body: `<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{ first_name | default: "applicant" }},</h2>
	<p>We have received your application <strong>{{ reference }}</strong> for {{ program }} ({{ academic_year }}).</p>
	<p>{{ document_count }} document(s) were attached. We will let you know as soon as it has been checked.</p>
	<p><a href="{{ application_url }}">Follow your application</a></p>
	<p>Registrations Office</p>
</body>
</html>`,
	},
	TemplateStatusChanged: {
		Subject: "Application {{ reference }}: {{ status_label }}",
		Body: `<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{ first_name | default: "applicant" }},</h2>
	<p>The status of your application <strong>{{ reference }}</strong> is now <strong>{{ status_label }}</strong>.</p>
	{% if comment != "" %}<p>Comment from the registrations office: {{ comment }}</p>{% endif %}
	<p><a href="{{ application_url }}">View your application</a></p>
	<p>Registrations Office</p>
</body>
</html>`,
	},
	TemplateChangesRequested: {
		Subject: "Application {{ reference }}: changes requested",
		Body: `<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{ first_name | default: "applicant" }},</h2>
	<p>Your application <strong>{{ reference }}</strong> needs changes before it can be reviewed.</p>
	{% if missing.size > 0 %}<p>Missing or rejected items:</p>
	<ul>{% for item in missing %}<li>{{ item }}</li>{% endfor %}</ul>{% endif %}
	{% if comment != "" %}<p>Comment from the registrations office: {{ comment }}</p>{% endif %}
	<p><a href="{{ application_url }}">Update your application</a></p>
	<p>Registrations Office</p>
</body>
</html>`,
	},
	TemplateApplicationDecided: {
		Subject: "Application {{ reference }}: final decision",
		Body: `<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{ first_name | default: "applicant" }},</h2>
	<p>A final decision has been made on your application <strong>{{ reference }}</strong>: <strong>{{ status_label }}</strong>.</p>
	{% if comment != "" %}<p>{{ comment }}</p>{% endif %}
	<p>Registrations Office</p>
</body>
</html>`,
	},
	TemplateDocumentValidated: {
		Subject: "Document {{ file_name }} validated",
		Body: `<p>Your document {{ file_name }} attached to application {{ reference }} has been validated.</p>`,
	},
}

// TemplateService renders email templates with Liquid, caching parsed templates.
type TemplateService struct {
	engine    *liquid.Engine
	mu        sync.RWMutex
	templates map[string]EmailTemplate
	cache     sync.Map // map[string]*liquid.Template
}

func NewTemplateService() *TemplateService {
	engine := liquid.NewEngine()

	// Default value filter: {{ first_name | default: "applicant" }}
	engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		if s := fmt.Sprintf("%v", value); s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})

	// {{ status | humanize }} turns CHANGES_REQUESTED into "changes requested"
	engine.RegisterFilter("humanize", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", " "))
	})

	templates := make(map[string]EmailTemplate, len(defaultTemplates))
	for name, tpl := range defaultTemplates {
		templates[name] = tpl
	}

	return &TemplateService{engine: engine, templates: templates}
}

// Register adds or replaces a named template after checking that it parses.
func (ts *TemplateService) Register(name string, tpl EmailTemplate) error {
	if _, err := ts.engine.ParseString(tpl.Subject); err != nil {
		return fmt.Errorf("invalid subject template %s: %w", name, err)
	}
	if _, err := ts.engine.ParseString(tpl.Body); err != nil {
		return fmt.Errorf("invalid body template %s: %w", name, err)
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.cache.Delete(name + ":subject")
	ts.cache.Delete(name + ":body")
	ts.templates[name] = tpl
	return nil
}

// Render returns the rendered subject and body of the named template. String
// values are HTML-escaped in the body; the subject is plain text.
func (ts *TemplateService) Render(name string, data map[string]interface{}) (string, string, error) {
	ts.mu.RLock()
	tpl, ok := ts.templates[name]
	ts.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}

	subject, err := ts.render(name+":subject", tpl.Subject, data)
	if err != nil {
		return "", "", err
	}
	body, err := ts.render(name+":body", tpl.Body, escapeBindings(data))
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(subject), body, nil
}

func (ts *TemplateService) render(cacheKey, source string, data map[string]interface{}) (string, error) {
	var tpl *liquid.Template
	if cached, ok := ts.cache.Load(cacheKey); ok {
		tpl = cached.(*liquid.Template)
	} else {
		parsed, err := ts.engine.ParseString(source)
		if err != nil {
			return "", fmt.Errorf("failed to parse template %s: %w", cacheKey, err)
		}
		ts.cache.Store(cacheKey, parsed)
		tpl = parsed
	}

	out, err := tpl.RenderString(data)
	if err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", cacheKey, err)
	}
	return out, nil
}

func escapeBindings(data map[string]interface{}) map[string]interface{} {
	escaped := make(map[string]interface{}, len(data))
	for key, value := range data {
		escaped[key] = escapeValue(value)
	}
	return escaped
}

func escapeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return template.HTMLEscapeString(v)
	case []string:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = template.HTMLEscapeString(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = escapeValue(item)
		}
		return out
	case map[string]interface{}:
		return escapeBindings(v)
	default:
		return value
	}
}
