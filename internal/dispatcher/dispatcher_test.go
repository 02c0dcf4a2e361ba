package dispatcher

import (
	"context"
	"log/slog"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuabates/tina-daemon/internal/models"
	"github.com/joshuabates/tina-daemon/internal/remoteclient"
)

type fakeStore struct {
	mu        sync.Mutex
	claims    map[string]remoteclient.ClaimResult
	completed map[string]struct {
		message string
		success bool
	}
}

func (f *fakeStore) ClaimAction(ctx context.Context, actionID string) (remoteclient.ClaimResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.claims[actionID], nil
}

func (f *fakeStore) CompleteAction(ctx context.Context, actionID, resultMessage string, success bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed[actionID] = struct {
		message string
		success bool
	}{resultMessage, success}
	return nil
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		claims: make(map[string]remoteclient.ClaimResult),
		completed: make(map[string]struct {
			message string
			success bool
		}),
	}
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcessBatchClaimLostSkipsExecution(t *testing.T) {
	store := newFakeStore()
	store.claims["a1"] = remoteclient.ClaimResult{Success: false, Reason: "already claimed"}

	d := &Dispatcher{Remote: store, Runner: &Runner{Command: "true"}, Logger: silentLogger()}
	d.ProcessBatch(context.Background(), []models.InboundAction{
		{ID: "a1", ActionType: models.ActionResume, Payload: `{"feature":"auth"}`},
	})

	_, completed := store.completed["a1"]
	require.False(t, completed)
}

func TestProcessBatchUnknownActionTypeCompletesFailed(t *testing.T) {
	store := newFakeStore()
	store.claims["a2"] = remoteclient.ClaimResult{Success: true}

	d := &Dispatcher{Remote: store, Runner: &Runner{Command: "true"}, Logger: silentLogger()}
	d.ProcessBatch(context.Background(), []models.InboundAction{
		{ID: "a2", ActionType: models.ActionType("bogus"), Payload: `{"feature":"auth"}`},
	})

	result := store.completed["a2"]
	require.False(t, result.success)
}

func TestProcessBatchMalformedPayloadCompletesFailed(t *testing.T) {
	store := newFakeStore()
	store.claims["a4"] = remoteclient.ClaimResult{Success: true}

	d := &Dispatcher{Remote: store, Runner: &Runner{Command: "true"}, Logger: silentLogger()}
	d.ProcessBatch(context.Background(), []models.InboundAction{
		{ID: "a4", ActionType: models.ActionResume, Payload: "not json"},
	})

	result := store.completed["a4"]
	require.False(t, result.success)
}

func TestProcessBatchSuccessCompletesSuccessfully(t *testing.T) {
	store := newFakeStore()
	store.claims["a3"] = remoteclient.ClaimResult{Success: true}

	d := &Dispatcher{Remote: store, Runner: &Runner{Command: "true"}, Logger: silentLogger()}
	d.ProcessBatch(context.Background(), []models.InboundAction{
		{ID: "a3", ActionType: models.ActionResume, Payload: `{"feature":"auth"}`},
	})

	result := store.completed["a3"]
	require.True(t, result.success)
}
