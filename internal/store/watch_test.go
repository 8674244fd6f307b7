package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchSignalsOnCommit(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Mutate(func(tree *Tree) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	require.NoError(t, s.Watch(ctx, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}))

	require.NoError(t, s.Mutate(func(tree *Tree) error {
		tree.Cases = append(tree.Cases, NewCase("C-1", "watched", "i"))
		return nil
	}))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not fire after commit")
	}
}
