package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSQLiteRecordAndRecent(t *testing.T) {
	sink, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	ctx := context.Background()
	base := time.Now().Add(-time.Minute)
	require.NoError(t, sink.Record(ctx, Event{OccurredAt: base, Service: "web", Action: ActionStart, PID: 1234}))
	require.NoError(t, sink.Record(ctx, Event{OccurredAt: base.Add(time.Second), Service: "web", Action: ActionStop, PID: 1234, Detail: "graceful"}))

	events, err := sink.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Most recent first.
	require.Equal(t, ActionStop, events[0].Action)
	require.Equal(t, "graceful", events[0].Detail)
	require.Equal(t, ActionStart, events[1].Action)
	require.Equal(t, 1234, events[1].PID)
}

func TestSQLiteInMemory(t *testing.T) {
	sink, err := NewSQLite("sqlite://:memory:")
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	require.NoError(t, sink.Record(context.Background(), Event{Service: "cli-monitor", Action: ActionKill, PID: 99}))
	events, err := sink.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.False(t, events[0].OccurredAt.IsZero())
}

func TestNewSQLiteEmptyDSN(t *testing.T) {
	_, err := NewSQLite("  ")
	require.Error(t, err)
}
