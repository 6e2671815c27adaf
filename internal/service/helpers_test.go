package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/event-tracker/internal/model"
	"github.com/capitalize-ai/event-tracker/internal/store"
	"github.com/capitalize-ai/event-tracker/pkg/logger"
)

var baseTime = time.Date(2024, 3, 5, 13, 7, 0, 0, time.UTC)

type fixture struct {
	store      *store.Store
	classifier *Classifier
	duplicates *DuplicateChecker
	query      *QueryService
	ingestor   *Ingestor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())

	s, err := store.Open(ctx, store.Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate())

	log := logger.NewNop()
	classifier := NewClassifier(s, log)
	require.NoError(t, classifier.Load(ctx))

	duplicates := NewDuplicateChecker(s)
	ingestor := NewIngestor(s, duplicates, classifier, log)
	ingestor.now = func() time.Time { return baseTime }

	return &fixture{
		store:      s,
		classifier: classifier,
		duplicates: duplicates,
		query:      NewQueryService(s, classifier, log),
		ingestor:   ingestor,
	}
}

func strPtr(s string) *string { return &s }

func newDetail(requestID, conversationID string) *model.MessageDetail {
	return &model.MessageDetail{
		RequestID:      requestID,
		CpaID:          "nav:qass:31162",
		ConversationID: conversationID,
		MessageID:      "msg-" + requestID,
		FromPartyID:    "HER:8141253",
		FromRole:       strPtr("Behandler"),
		ToPartyID:      "HER:79768",
		ToRole:         strPtr("Fordringshaver"),
		Service:        "BehandlerKrav",
		Action:         "OppgjorsMelding",
		SavedAt:        baseTime,
	}
}
