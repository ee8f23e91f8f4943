package checkpoint_test

import (
	"context"
	"testing"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactory creates a store instance for testing.
type storeFactory func(t *testing.T) checkpoint.Store

// cp builds a checkpoint with a small state payload.
func cp(thread string, step int, state string) *checkpoint.Checkpoint {
	return checkpoint.New(thread, step, []byte(state))
}

// storeContractTest runs contract tests against any Store implementation.
func storeContractTest(t *testing.T, name string, factory storeFactory) {
	ctx := context.Background()

	t.Run(name+"/Put_and_Get", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Put(ctx, cp("thread-1", 0, `{"key":"value"}`).WithFrontier(nil, []string{"a"})))

		loaded, err := store.Get(ctx, "thread-1", 0)
		require.NoError(t, err)
		assert.Equal(t, "thread-1", loaded.ThreadID)
		assert.JSONEq(t, `{"key":"value"}`, string(loaded.State))
		assert.Equal(t, []string{"a"}, loaded.Next)
		assert.Equal(t, checkpoint.StatusRunning, loaded.Status)
	})

	t.Run(name+"/Get_NotFound", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		_, err := store.Get(ctx, "thread-nonexistent", 3)
		assert.ErrorIs(t, err, checkpoint.ErrNotFound)
	})

	t.Run(name+"/Put_Immutable", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Put(ctx, cp("thread-1", 1, `{"v":1}`)))
		err := store.Put(ctx, cp("thread-1", 1, `{"v":2}`))
		assert.ErrorIs(t, err, checkpoint.ErrConflict)

		loaded, err := store.Get(ctx, "thread-1", 1)
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":1}`, string(loaded.State))
	})

	t.Run(name+"/Latest", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		_, err := store.Latest(ctx, "thread-1")
		assert.ErrorIs(t, err, checkpoint.ErrNotFound)

		// Out-of-order puts still resolve to the highest step.
		require.NoError(t, store.Put(ctx, cp("thread-1", 0, `{"v":0}`)))
		require.NoError(t, store.Put(ctx, cp("thread-1", 2, `{"v":2}`)))
		require.NoError(t, store.Put(ctx, cp("thread-1", 1, `{"v":1}`)))

		latest, err := store.Latest(ctx, "thread-1")
		require.NoError(t, err)
		assert.Equal(t, 2, latest.Step)
	})

	t.Run(name+"/List_Empty", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		infos, err := store.List(ctx, "thread-nonexistent")
		require.NoError(t, err)
		assert.Empty(t, infos)
	})

	t.Run(name+"/List_Ordered", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Put(ctx, cp("thread-1", 1, `"bb"`)))
		require.NoError(t, store.Put(ctx, cp("thread-1", 0, `"a"`)))
		require.NoError(t, store.Put(ctx, cp("thread-1", 2, `"ccc"`).WithFrontier([]string{"x"}, nil)))

		infos, err := store.List(ctx, "thread-1")
		require.NoError(t, err)
		require.Len(t, infos, 3)

		assert.Equal(t, 0, infos[0].Step)
		assert.Equal(t, 1, infos[1].Step)
		assert.Equal(t, 2, infos[2].Step)
		assert.Equal(t, checkpoint.StatusDone, infos[2].Status)
		assert.Equal(t, "thread-1", infos[0].ThreadID)
		assert.Greater(t, infos[0].Size, int64(0))
		assert.False(t, infos[0].Timestamp.IsZero())
	})

	t.Run(name+"/List_AllThreads", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Put(ctx, cp("thread-b", 0, `{}`)))
		require.NoError(t, store.Put(ctx, cp("thread-a", 0, `{}`)))
		require.NoError(t, store.Put(ctx, cp("thread-b", 1, `{}`)))

		infos, err := store.List(ctx, "")
		require.NoError(t, err)
		require.Len(t, infos, 3)

		threads, err := checkpoint.Threads(ctx, store)
		require.NoError(t, err)
		assert.Equal(t, []string{"thread-b", "thread-a"}, threads)
	})

	t.Run(name+"/DeleteThread", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Put(ctx, cp("thread-1", 0, `{}`)))
		require.NoError(t, store.Put(ctx, cp("thread-1", 1, `{}`)))
		require.NoError(t, store.Put(ctx, cp("thread-2", 0, `{}`)))

		require.NoError(t, store.DeleteThread(ctx, "thread-1"))

		infos, err := store.List(ctx, "thread-1")
		require.NoError(t, err)
		assert.Empty(t, infos)

		infos, err = store.List(ctx, "thread-2")
		require.NoError(t, err)
		assert.Len(t, infos, 1)

		threads, err := checkpoint.Threads(ctx, store)
		require.NoError(t, err)
		assert.Equal(t, []string{"thread-2"}, threads)
	})

	t.Run(name+"/DeleteThread_Nonexistent", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		assert.NoError(t, store.DeleteThread(ctx, "thread-nonexistent"))
	})

	t.Run(name+"/Interrupts_RoundTrip", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		suspended := cp("thread-1", 4, `{}`).
			WithFrontier([]string{"a", "b"}, nil).
			WithInterrupts([]string{"a"}, []checkpoint.Interrupt{
				{ID: "int-1", NodeID: "b", Step: 4, Payload: []byte(`{"question":"ok?"}`)},
			})
		require.NoError(t, store.Put(ctx, suspended))

		loaded, err := store.Latest(ctx, "thread-1")
		require.NoError(t, err)
		assert.Equal(t, checkpoint.StatusSuspended, loaded.Status)
		assert.Equal(t, []string{"a", "b"}, loaded.Frontier)
		assert.Equal(t, []string{"a"}, loaded.Completed)
		require.Len(t, loaded.Interrupts, 1)

		var payload struct{ Question string }
		require.NoError(t, loaded.Interrupts[0].Decode(&payload))
		assert.Equal(t, "ok?", payload.Question)
	})

	t.Run(name+"/Close_ThenError", func(t *testing.T) {
		store := factory(t)
		require.NoError(t, store.Close())

		err := store.Put(ctx, cp("thread-1", 0, `{}`))
		assert.ErrorIs(t, err, checkpoint.ErrStoreClosed)

		_, err = store.Get(ctx, "thread-1", 0)
		assert.ErrorIs(t, err, checkpoint.ErrStoreClosed)

		_, err = store.List(ctx, "thread-1")
		assert.ErrorIs(t, err, checkpoint.ErrStoreClosed)

		assert.NoError(t, store.Close())
	})
}

// TestMemoryStore runs contract tests against MemoryStore.
func TestMemoryStore(t *testing.T) {
	factory := func(t *testing.T) checkpoint.Store {
		return checkpoint.NewMemoryStore()
	}
	storeContractTest(t, "MemoryStore", factory)
}

// TestSQLiteStore runs contract tests against SQLiteStore.
func TestSQLiteStore(t *testing.T) {
	factory := func(t *testing.T) checkpoint.Store {
		store, err := checkpoint.NewSQLiteStore(":memory:")
		require.NoError(t, err)
		return store
	}
	storeContractTest(t, "SQLiteStore", factory)
}
