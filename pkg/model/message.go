package model

import "encoding/json"

// MaxPayloadBytes caps the serialized payload of a relayed message (64 KiB).
const MaxPayloadBytes = 64 * 1024

// MailboxCap is the per-node mailbox depth; overflow drops the oldest entry.
const MailboxCap = 100

// RelayMessage is one unit of store-and-forward mailbox traffic on a
// foundation lane. ID, From and Timestamp are server-assigned; a client can
// neither spoof the sender nor backdate the message.
type RelayMessage struct {
	ID        string          `json:"id"`
	Target    string          `json:"target"`
	Lane      Lane            `json:"lane"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	From      string          `json:"from"`
	Timestamp int64           `json:"timestamp"` // enqueue time, unix milliseconds
}
