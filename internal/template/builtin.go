package template

import "github.com/cuongbtq/unoapi-commander/internal/domain"

var builtinTemplates = map[string]string{
	domain.TemplateWebhook: `url: {{url}}
header: {{header}}
token: {{token}}
`,
	domain.TemplateBulkReport: `bulk: {{bulk}}
`,
	domain.TemplateConfig: `ignoreGroupMessages: {{ignoreGroupMessages}}
ignoreBroadcastStatuses: {{ignoreBroadcastStatuses}}
ignoreBroadcastMessages: {{ignoreBroadcastMessages}}
ignoreOwnMessages: {{ignoreOwnMessages}}
ignoreYourselfMessages: {{ignoreYourselfMessages}}
sendConnectionStatus: {{sendConnectionStatus}}
composingMessage: {{composingMessage}}
rejectCalls: {{rejectCalls}}
messageCallsWebhook: {{messageCallsWebhook}}
sendReactionAsReply: {{sendReactionAsReply}}
readOnReceipt: {{readOnReceipt}}
sessionTtl: {{sessionTtl}}
`,
}
