package commander

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cuongbtq/unoapi-commander/internal/domain"
)

// Command is the classified form of a job. Exactly one concrete type is
// produced per job.
type Command interface {
	Name() string
}

// TemplateCall carries the template name and the components to bind
type TemplateCall struct {
	Name       string
	Components []domain.Component
}

// BulkCampaign starts a bulk import from a tagged document upload
type BulkCampaign struct {
	AccountID string
	Link      string
}

// WebhookTemplate replaces the account webhook list
type WebhookTemplate struct {
	AccountID string
	Template  TemplateCall
}

// BulkReportTemplate requests a report for an existing bulk
type BulkReportTemplate struct {
	AccountID string
	Template  TemplateCall
}

// ConfigTemplate merges generic settings into the account config
type ConfigTemplate struct {
	AccountID string
	Template  TemplateCall
}

// Unrecognized is a job no action applies to
type Unrecognized struct {
	AccountID string
	Reason    string
}

func (BulkCampaign) Name() string       { return "bulk-campaign" }
func (WebhookTemplate) Name() string    { return "webhook-template" }
func (BulkReportTemplate) Name() string { return "bulk-report-template" }
func (ConfigTemplate) Name() string     { return "config-template" }
func (Unrecognized) Name() string       { return "unrecognized" }

// fields is a JSON object whose members are decoded only when a rule
// reads them, so a wrong-typed member never hides the others.
type fields map[string]json.RawMessage

// objectOf returns raw as an object, or nil when it is anything else
func objectOf(raw json.RawMessage) fields {
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	return f
}

// str returns the member when it is a JSON string
func (f fields) str(key string) string {
	var v string
	if err := json.Unmarshal(f[key], &v); err != nil {
		return ""
	}
	return v
}

// text returns a string member, or the literal of a number or boolean
func (f fields) text(key string) string {
	raw := bytes.TrimSpace(f[key])
	if v := f.str(key); v != "" {
		return v
	}
	var scalar any
	if err := json.Unmarshal(raw, &scalar); err != nil {
		return ""
	}
	switch scalar.(type) {
	case float64, bool:
		return string(raw)
	default:
		return ""
	}
}

func (f fields) object(key string) fields {
	if raw, ok := f[key]; ok {
		return objectOf(raw)
	}
	return nil
}

func (f fields) array(key string) []json.RawMessage {
	var items []json.RawMessage
	if err := json.Unmarshal(f[key], &items); err != nil {
		return nil
	}
	return items
}

// components reads template components, skipping entries that are not
// objects
func components(tpl fields) []domain.Component {
	var out []domain.Component
	for _, rawComponent := range tpl.array("components") {
		c := objectOf(rawComponent)
		if c == nil {
			continue
		}
		component := domain.Component{Type: c.str("type")}
		for _, rawParam := range c.array("parameters") {
			p := objectOf(rawParam)
			if p == nil {
				continue
			}
			component.Parameters = append(component.Parameters, domain.Parameter{
				Type:          p.str("type"),
				Text:          p.text("text"),
				ParameterName: p.str("parameter_name"),
			})
		}
		out = append(out, component)
	}
	return out
}

// Classify reads the job payload and returns the command for the first
// matching rule: bulk trigger, then webhook, bulk-report and config
// templates addressed to the job's own account. Each rule looks only at
// the members it needs.
func Classify(job domain.Job) Command {
	raw := bytes.TrimSpace(job.Payload)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Unrecognized{AccountID: job.AccountID, Reason: "empty payload"}
	}

	p := objectOf(raw)
	if p == nil {
		return Unrecognized{AccountID: job.AccountID, Reason: "payload is not an object"}
	}

	isDocument := p.str("type") == domain.PayloadTypeDocument
	if doc := p.object("document"); isDocument && doc != nil &&
		strings.EqualFold(doc.str("caption"), domain.BulkCaption) {
		return BulkCampaign{AccountID: job.AccountID, Link: doc.text("link")}
	}

	tpl := p.object("template")
	if tpl == nil {
		if isDocument {
			return Unrecognized{AccountID: job.AccountID, Reason: "document caption is not a bulk trigger"}
		}
		return Unrecognized{AccountID: job.AccountID, Reason: "no template"}
	}

	if to := p.str("to"); to == "" || to != job.AccountID {
		return Unrecognized{AccountID: job.AccountID, Reason: "template not addressed to the account"}
	}

	name := tpl.str("name")
	call := TemplateCall{Name: name, Components: components(tpl)}
	switch name {
	case domain.TemplateWebhook:
		return WebhookTemplate{AccountID: job.AccountID, Template: call}
	case domain.TemplateBulkReport:
		return BulkReportTemplate{AccountID: job.AccountID, Template: call}
	case domain.TemplateConfig:
		return ConfigTemplate{AccountID: job.AccountID, Template: call}
	default:
		return Unrecognized{AccountID: job.AccountID, Reason: fmt.Sprintf("unknown template %q", name)}
	}
}
