package domain

// Recognized template names, matched exactly.
const (
	TemplateWebhook    = "unoapi-webhook"
	TemplateBulkReport = "unoapi-bulk-report"
	TemplateConfig     = "unoapi-config"
)

// Default queue names used by the commander when the config leaves them empty.
const (
	QueueCommander  = "unoapi-commander"
	QueueBulkParser = "unoapi-bulk-parser"
	QueueBulkReport = "unoapi-bulk-report"
	QueueReload     = "unoapi-reload"
	QueueOutgoing   = "unoapi-outgoing"
)

const (
	// PayloadTypeDocument marks a payload carrying a document upload
	PayloadTypeDocument = "document"

	// BulkCaption triggers a bulk campaign, compared case-insensitively
	BulkCaption = "campanha"

	// BulkTemplate is the parser template assigned to every bulk request
	BulkTemplate = "sisodonto"
)
