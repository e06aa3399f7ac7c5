package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelchat/internal/model"
)

type recordingSyncer struct {
	mu   sync.Mutex
	jobs []model.SyncJob
}

func (r *recordingSyncer) UpsertMany(_ context.Context, sessions []model.Session, ownerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, model.SyncJob{OwnerID: ownerID, Sessions: sessions})
}

func (r *recordingSyncer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func TestBackground_DispatchAndWait(t *testing.T) {
	syncer := &recordingSyncer{}
	bg := NewBackground(syncer, nil)

	for i := 0; i < 5; i++ {
		require.NoError(t, bg.Dispatch(context.Background(), model.SyncJob{OwnerID: "u1"}))
	}
	bg.Wait()

	assert.Equal(t, 5, syncer.count())
}

func TestBackground_RejectsAfterClose(t *testing.T) {
	bg := NewBackground(&recordingSyncer{}, nil)
	bg.Close()

	err := bg.Dispatch(context.Background(), model.SyncJob{OwnerID: "u1"})
	assert.ErrorIs(t, err, ErrDispatcherClosed)
}

func TestSessionSyncWorker_Handle(t *testing.T) {
	syncer := &recordingSyncer{}
	w := NewSessionSyncWorker(nil, syncer, "q", nil)

	body, err := json.Marshal(model.SyncJob{OwnerID: "u1", Sessions: []model.Session{{ID: "s1"}}})
	require.NoError(t, err)

	require.NoError(t, w.Handle(context.Background(), body))
	require.Equal(t, 1, syncer.count())
	assert.Equal(t, "u1", syncer.jobs[0].OwnerID)
	assert.Equal(t, "s1", syncer.jobs[0].Sessions[0].ID)

	assert.Error(t, w.Handle(context.Background(), []byte("{")))
	assert.Equal(t, 1, syncer.count())
}
