package domain

import "strings"

const jidSuffix = "@s.whatsapp.net"

// MessageKey identifies a protocol message and its direction
type MessageKey struct {
	FromMe    bool   `json:"fromMe"`
	RemoteJid string `json:"remoteJid"`
	ID        string `json:"id"`
}

// MessageContent holds the text body
type MessageContent struct {
	Conversation string `json:"conversation"`
}

// OutgoingMessage is the envelope handed to the outgoing sender
type OutgoingMessage struct {
	Key              MessageKey     `json:"key"`
	Message          MessageContent `json:"message"`
	MessageTimestamp int64          `json:"messageTimestamp"`
}

// PhoneNumberToJid converts an account phone number to a user JID.
// Values that already carry a server part are returned unchanged.
func PhoneNumberToJid(phone string) string {
	if strings.Contains(phone, "@") {
		return phone
	}
	return strings.TrimPrefix(phone, "+") + jidSuffix
}
