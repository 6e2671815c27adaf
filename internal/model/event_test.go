package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEventStatus(t *testing.T) {
	for _, st := range EventStatuses() {
		got, err := ParseEventStatus(string(st))
		require.NoError(t, err)
		require.Equal(t, st, got)
	}

	_, err := ParseEventStatus("information")
	require.ErrorIs(t, err, ErrUnknownStatus)

	_, err = ParseEventStatus("")
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestEventStatuses_IncludesLegacyCategories(t *testing.T) {
	all := EventStatuses()
	require.Len(t, all, 7)
	require.Contains(t, all, StatusCreated)
	require.Contains(t, all, StatusManualProcessing)
	require.Contains(t, all, StatusWarning)
	require.Contains(t, all, StatusFatalError)
}
