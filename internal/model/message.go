package model

import (
	"time"
)

// MessageDetail is one inbound or outbound message instance as seen by the gateway.
type MessageDetail struct {
	// Identity
	RequestID      string `json:"requestId" db:"request_id"`
	CpaID          string `json:"cpaId" db:"cpa_id"`
	ConversationID string `json:"conversationId" db:"conversation_id"`
	MessageID      string `json:"messageId" db:"message_id"`

	// Set on outbound messages only
	RefToMessageID *string `json:"refToMessageId,omitempty" db:"ref_to_message_id"`

	// Parties
	FromPartyID string  `json:"fromPartyId" db:"from_party_id"`
	FromRole    *string `json:"fromRole,omitempty" db:"from_role"`
	ToPartyID   string  `json:"toPartyId" db:"to_party_id"`
	ToRole      *string `json:"toRole,omitempty" db:"to_role"`

	// Routing
	Service  string  `json:"service" db:"service"`
	Action   string  `json:"action" db:"action"`
	RefParam *string `json:"refParam,omitempty" db:"ref_param"`
	Sender   *string `json:"sender,omitempty" db:"sender"`

	// Timestamps
	SentAt  *time.Time `json:"sentAt,omitempty" db:"sent_at"`
	SavedAt time.Time  `json:"savedAt" db:"saved_at"`
}

// IsOutbound reports whether the message answers another message.
func (d *MessageDetail) IsOutbound() bool {
	return d.RefToMessageID != nil && *d.RefToMessageID != ""
}

// MessageFilter narrows a message detail query. Empty fields are ignored.
type MessageFilter struct {
	ReadableIDPattern string
	CpaIDPattern      string
	MessageIDPattern  string
	Role              string
	Service           string
	Action            string
}

// MessageInfo is the message-level read view.
type MessageInfo struct {
	ReadableID         string    `json:"readableId"`
	RequestID          string    `json:"requestId"`
	ReceivedAt         time.Time `json:"receivedAt"`
	CpaID              string    `json:"cpaId"`
	ConversationID     string    `json:"conversationId"`
	MessageID          string    `json:"messageId"`
	RefToMessageID     *string   `json:"refToMessageId,omitempty"`
	Role               string    `json:"role"`
	Service            string    `json:"service"`
	Action             string    `json:"action"`
	Sender             string    `json:"sender"`
	Reference          string    `json:"reference"`
	Status             string    `json:"status"`
	RelatedRequestIDs  string    `json:"relatedRequestIds"`
	RelatedReadableIDs string    `json:"relatedReadableIds"`
}

// MessageDetailView is a single message detail with its computed readable id.
type MessageDetailView struct {
	MessageDetail
	ReadableID string `json:"readableId"`
}

// Record kinds carried on the ingestion stream. Each is the last token of its subject.
const (
	RecordKindMessageDetail = "message-details"
	RecordKindEvent         = "events"
)
