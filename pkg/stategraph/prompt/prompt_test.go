package prompt_test

import (
	"testing"

	"github.com/randalmurphal/stategraph/pkg/stategraph/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tweetState struct {
	Topic     string `json:"topic"`
	Iteration int    `json:"iteration"`
	Draft     string `json:"-"`
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		text string
		data any
		want string
	}{
		{
			name: "struct fields by json name",
			text: "Write a tweet on ${topic}. This is version ${iteration}.",
			data: tweetState{Topic: "black holes", Iteration: 2},
			want: "Write a tweet on black holes. This is version 2.",
		},
		{
			name: "map values",
			text: "Translate into ${language}:\n${text}",
			data: map[string]any{"language": "Hindi", "text": "hello"},
			want: "Translate into Hindi:\nhello",
		},
		{
			name: "repeated placeholder",
			text: "${a} and ${a}",
			data: map[string]any{"a": "x"},
			want: "x and x",
		},
		{
			name: "non string values as json",
			text: "scores ${scores}, ok ${ok}, none ${none}",
			data: map[string]any{"scores": []int{1, 2}, "ok": true, "none": nil},
			want: "scores [1,2], ok true, none ",
		},
		{
			name: "dollar without braces is literal",
			text: "costs $5 and $topic",
			data: nil,
			want: "costs $5 and $topic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := prompt.Must(tt.text).Render(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_Missing(t *testing.T) {
	_, err := prompt.Must("${topic} by ${draft} and ${author}").Render(tweetState{Topic: "x"})

	var missing *prompt.MissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"draft", "author"}, missing.Names)
	assert.EqualError(t, err, "prompt: no values for ${draft}, ${author}")
}

func TestRender_NotAnObject(t *testing.T) {
	_, err := prompt.Must("${x}").Render([]string{"a"})
	assert.ErrorContains(t, err, "data is not an object")
}

func TestNew_Malformed(t *testing.T) {
	_, err := prompt.New("hello ${topic")
	assert.ErrorContains(t, err, "malformed placeholder")

	assert.Panics(t, func() { prompt.Must("${1x}") })
}

func TestNames(t *testing.T) {
	tmpl := prompt.Must("${b} ${a} ${b}")
	assert.Equal(t, []string{"b", "a"}, tmpl.Names())
}

func TestWith(t *testing.T) {
	vars, err := prompt.With(tweetState{Topic: "cats", Iteration: 1}, map[string]any{"topic": "dogs", "aspect": "tone"})
	require.NoError(t, err)

	out, err := prompt.Must("${aspect} of ${topic} v${iteration}").Render(vars)
	require.NoError(t, err)
	assert.Equal(t, "tone of dogs v1", out)
}
