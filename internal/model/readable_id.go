package model

import (
	"strings"
	"time"
	_ "time/tzdata"
	"unicode"
)

const (
	// SystemOperatorName is the display name of messages sent by the gateway operator.
	SystemOperatorName = "NAV"
	// SystemOperatorCode replaces the sender segment for operator messages.
	SystemOperatorCode = "navo"
	// UnknownSenderCode is used when no sender name is available.
	UnknownSenderCode = "ukjt"

	readableIDTimeLayout = "0601021504"
	senderSegmentLength  = 4
	idTailLength         = 6
)

// Location is the fixed local time zone used for display values.
var Location = loadLocation("Europe/Oslo")

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("CET", 60*60)
	}
	return loc
}

// ResolveSenderName returns the display name for a message. Outbound messages are always
// sent by the operator; inbound messages carry the sender verbatim.
func ResolveSenderName(d *MessageDetail) *string {
	if d.IsOutbound() {
		name := SystemOperatorName
		return &name
	}
	return d.Sender
}

// GenerateReadableID builds the display identifier
// DIRECTION.yyMMddHHmm.sender.tail for a message detail.
func GenerateReadableID(d *MessageDetail) string {
	direction := "IN"
	if d.IsOutbound() {
		direction = "OUT"
	}

	return strings.Join([]string{
		direction,
		d.SavedAt.In(Location).Format(readableIDTimeLayout),
		senderSegment(ResolveSenderName(d)),
		idTail(d.RequestID),
	}, ".")
}

func senderSegment(name *string) string {
	if name == nil {
		return UnknownSenderCode
	}
	if *name == SystemOperatorName {
		return SystemOperatorCode
	}

	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, *name)
	if compact == "" {
		return UnknownSenderCode
	}

	runes := []rune(compact)
	if len(runes) > senderSegmentLength {
		runes = runes[:senderSegmentLength]
	}
	return strings.ToLower(string(runes))
}

func idTail(requestID string) string {
	runes := []rune(requestID)
	if len(runes) <= idTailLength {
		return requestID
	}
	return string(runes[len(runes)-idTailLength:])
}
