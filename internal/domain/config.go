package domain

// AccountConfig is the persisted per-account settings document. Only the keys
// present in a write are touched.
type AccountConfig map[string]any

// Webhooks returns the raw webhook list, or nil when absent
func (c AccountConfig) Webhooks() []any {
	if c == nil {
		return nil
	}
	list, _ := c["webhooks"].([]any)
	return list
}
