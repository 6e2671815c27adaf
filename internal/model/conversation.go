// Package model defines data structures for the message event tracker.
package model

import (
	"time"
)

// ConversationStatus is the latest observed status of a conversation.
type ConversationStatus struct {
	ConversationID string      `json:"conversationId" db:"conversation_id"`
	CreatedAt      time.Time   `json:"createdAt" db:"created_at"`
	LatestStatus   EventStatus `json:"latestStatus" db:"latest_status"`
	StatusAt       time.Time   `json:"statusAt" db:"status_at"`
}

// ConversationStatusFilter narrows a conversation status query. Empty fields are ignored.
type ConversationStatusFilter struct {
	CpaIDPattern string
	Service      string
	Statuses     []EventStatus
}

// ConversationStatusInfo is the conversation-level read view.
type ConversationStatusInfo struct {
	ConversationID string      `json:"conversationId"`
	CreatedAt      time.Time   `json:"createdAt"`
	CpaID          string      `json:"cpaId"`
	Service        string      `json:"service"`
	LatestStatus   EventStatus `json:"latestStatus"`
	StatusAt       time.Time   `json:"statusAt"`
}
