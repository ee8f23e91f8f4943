package checkpoint_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpoint_New(t *testing.T) {
	state := []byte(`{"value": 42}`)
	c := checkpoint.New("thread-123", 3, state)

	assert.Equal(t, checkpoint.Version, c.Version)
	assert.Equal(t, "thread-123", c.ThreadID)
	assert.Equal(t, 3, c.Step)
	assert.Equal(t, json.RawMessage(state), c.State)
	assert.Equal(t, checkpoint.SourceLoop, c.Source)
	assert.Equal(t, checkpoint.StatusRunning, c.Status)
	assert.False(t, c.Timestamp.IsZero())
}

func TestCheckpoint_WithFrontier(t *testing.T) {
	t.Run("pending frontier keeps running", func(t *testing.T) {
		c := checkpoint.New("t", 1, []byte("{}")).WithFrontier([]string{"a"}, []string{"b", "c"})
		assert.Equal(t, checkpoint.StatusRunning, c.Status)
		assert.Equal(t, []string{"a"}, c.Frontier)
		assert.Equal(t, []string{"b", "c"}, c.Next)
	})

	t.Run("empty frontier is done", func(t *testing.T) {
		c := checkpoint.New("t", 1, []byte("{}")).WithFrontier([]string{"a"}, nil)
		assert.Equal(t, checkpoint.StatusDone, c.Status)
	})
}

func TestCheckpoint_WithInterrupts(t *testing.T) {
	c := checkpoint.New("t", 2, []byte("{}")).
		WithFrontier([]string{"a", "b"}, []string{"c"}).
		WithInterrupts([]string{"a"}, []checkpoint.Interrupt{{ID: "i", NodeID: "b", Step: 2}}).
		WithWrites(map[string]json.RawMessage{"a": json.RawMessage(`{"log":["a"]}`)})

	assert.Equal(t, checkpoint.StatusSuspended, c.Status)
	assert.Nil(t, c.Next)
	assert.Equal(t, []string{"a"}, c.Completed)

	data, err := c.Marshal()
	require.NoError(t, err)
	loaded, err := checkpoint.Unmarshal(data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"log":["a"]}`, string(loaded.Writes["a"]))
}

func TestCheckpoint_MarshalUnmarshal(t *testing.T) {
	original := checkpoint.New("thread-123", 5, []byte(`{"counter":10}`)).
		WithSource(checkpoint.SourceResume).
		WithRunID("run-9").
		WithFrontier([]string{"process"}, []string{"validate"})

	data, err := original.Marshal()
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	loaded, err := checkpoint.Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, original.Version, loaded.Version)
	assert.Equal(t, original.ThreadID, loaded.ThreadID)
	assert.Equal(t, original.Step, loaded.Step)
	assert.Equal(t, original.RunID, loaded.RunID)
	assert.Equal(t, original.Source, loaded.Source)
	assert.Equal(t, original.Frontier, loaded.Frontier)
	assert.Equal(t, original.Next, loaded.Next)
	assert.JSONEq(t, string(original.State), string(loaded.State))
	assert.WithinDuration(t, original.Timestamp, loaded.Timestamp, time.Second)
}

func TestCheckpoint_UnmarshalInvalidJSON(t *testing.T) {
	_, err := checkpoint.Unmarshal([]byte("not json"))
	assert.Error(t, err)
}

func TestCheckpoint_JSONFormat(t *testing.T) {
	c := checkpoint.New("thread-1", 1, []byte(`{"value":42}`)).WithFrontier([]string{"a"}, []string{"b"})

	data, err := c.Marshal()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, float64(checkpoint.Version), raw["version"])
	assert.Equal(t, "thread-1", raw["thread_id"])
	assert.Equal(t, float64(1), raw["step"])
	assert.Equal(t, "running", raw["status"])
	assert.Equal(t, []any{"b"}, raw["next"])
	assert.NotEmpty(t, raw["timestamp"])

	stateMap, ok := raw["state"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(42), stateMap["value"])
}

func TestInterrupt_Decode(t *testing.T) {
	var empty map[string]any
	require.NoError(t, checkpoint.Interrupt{}.Decode(&empty))
	assert.Nil(t, empty)

	var v map[string]string
	require.NoError(t, checkpoint.Interrupt{Payload: []byte(`{"k":"v"}`)}.Decode(&v))
	assert.Equal(t, "v", v["k"])
}
