package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func inboundDetail() *MessageDetail {
	return &MessageDetail{
		RequestID:      "7d1f4c2e-9a0b-4a51-8f3e-1c2d3e4f5a6b",
		CpaID:          "nav:qass:31162",
		ConversationID: "conv-1",
		MessageID:      "msg-1",
		FromPartyID:    "HER:8141253",
		ToPartyID:      "HER:79768",
		Service:        "BehandlerKrav",
		Action:         "OppgjorsMelding",
		Sender:         strPtr("Legekontoret Bryn"),
		SavedAt:        time.Date(2024, 3, 5, 13, 7, 42, 0, time.UTC),
	}
}

func TestGenerateReadableID_Inbound(t *testing.T) {
	d := inboundDetail()

	// 13:07 UTC is 14:07 in Oslo during winter time.
	require.Equal(t, "IN.2403051407.lege.4f5a6b", GenerateReadableID(d))
}

func TestGenerateReadableID_OutboundUsesOperatorCode(t *testing.T) {
	d := inboundDetail()
	d.RefToMessageID = strPtr("msg-0")
	d.Sender = strPtr("Someone Else")

	require.Equal(t, "OUT.2403051407."+SystemOperatorCode+".4f5a6b", GenerateReadableID(d))
}

func TestGenerateReadableID_SenderSegment(t *testing.T) {
	tests := []struct {
		name   string
		sender *string
		want   string
	}{
		{"missing sender", nil, UnknownSenderCode},
		{"blank sender", strPtr("  \t "), UnknownSenderCode},
		{"whitespace stripped", strPtr(" A b\tC d e"), "abcd"},
		{"short sender", strPtr("Ab"), "ab"},
		{"operator name on inbound", strPtr(SystemOperatorName), SystemOperatorCode},
		{"non ascii", strPtr("Ølen Legesenter"), "ølen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := inboundDetail()
			d.Sender = tt.sender
			got := GenerateReadableID(d)
			assert.Equal(t, "IN.2403051407."+tt.want+".4f5a6b", got)
		})
	}
}

func TestGenerateReadableID_Deterministic(t *testing.T) {
	d := inboundDetail()
	first := GenerateReadableID(d)
	require.Equal(t, first, GenerateReadableID(d))

	sameMinute := inboundDetail()
	sameMinute.SavedAt = d.SavedAt.Add(15 * time.Second)
	assert.Equal(t, first, GenerateReadableID(sameMinute))

	nextMinute := inboundDetail()
	nextMinute.SavedAt = d.SavedAt.Add(time.Minute)
	assert.NotEqual(t, first, GenerateReadableID(nextMinute))

	otherTail := inboundDetail()
	otherTail.RequestID = "7d1f4c2e-9a0b-4a51-8f3e-1c2d3e4f5a6c"
	assert.NotEqual(t, first, GenerateReadableID(otherTail))

	otherSender := inboundDetail()
	otherSender.Sender = strPtr("Tannlege Hansen")
	assert.NotEqual(t, first, GenerateReadableID(otherSender))

	outbound := inboundDetail()
	outbound.RefToMessageID = strPtr("msg-0")
	assert.NotEqual(t, first, GenerateReadableID(outbound))
}

func TestGenerateReadableID_ShortRequestID(t *testing.T) {
	d := inboundDetail()
	d.RequestID = "abc"

	require.Equal(t, "IN.2403051407.lege.abc", GenerateReadableID(d))
}

func TestGenerateReadableID_EmptyRefToMessageIDIsInbound(t *testing.T) {
	d := inboundDetail()
	d.RefToMessageID = strPtr("")

	require.Equal(t, "IN.2403051407.lege.4f5a6b", GenerateReadableID(d))
}

func TestResolveSenderName(t *testing.T) {
	d := inboundDetail()
	require.Equal(t, "Legekontoret Bryn", *ResolveSenderName(d))

	d.Sender = nil
	require.Nil(t, ResolveSenderName(d))

	d.RefToMessageID = strPtr("msg-0")
	require.Equal(t, SystemOperatorName, *ResolveSenderName(d))
}
