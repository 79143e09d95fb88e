package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-project/custodia/internal/server/models"
)

func TestInMemoryRepository_AppendAndList(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ev := &models.AuditEvent{
			ID:        fmt.Sprintf("ae%d", i),
			CaseID:    "case1",
			EventType: models.EventUploadInit,
			Payload:   json.RawMessage(`{}`),
			CreatedAt: time.Now(),
		}
		require.NoError(t, repo.Append(ctx, ev))
	}
	require.NoError(t, repo.Append(ctx, &models.AuditEvent{ID: "other", CaseID: "case2"}))

	list, err := repo.ListByCase(ctx, "case1")
	require.NoError(t, err)
	require.Len(t, list, 5)

	// append order is preserved
	for i, ev := range list {
		assert.Equal(t, fmt.Sprintf("ae%d", i), ev.ID)
	}

	other, err := repo.ListByCase(ctx, "case2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestInMemoryRepository_List_DoesNotAliasStored(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	src := &models.AuditEvent{ID: "ae1", CaseID: "case1", EventType: models.EventUploadInit}
	require.NoError(t, repo.Append(ctx, src))
	src.EventType = models.EventHashMismatch

	list, err := repo.ListByCase(ctx, "case1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.EventUploadInit, list[0].EventType)

	list[0].EventType = models.EventReplayRun
	again, err := repo.ListByCase(ctx, "case1")
	require.NoError(t, err)
	assert.Equal(t, models.EventUploadInit, again[0].EventType)
}
