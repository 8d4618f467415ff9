package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{
			name: "bare object",
			in:   `{"score": 7}`,
			want: `{"score": 7}`,
			ok:   true,
		},
		{
			name: "bare array",
			in:   `[1, 2, 3]`,
			want: `[1, 2, 3]`,
			ok:   true,
		},
		{
			name: "surrounding whitespace",
			in:   "  \n{\"a\":1}\n  ",
			want: `{"a":1}`,
			ok:   true,
		},
		{
			name: "json code fence",
			in:   "Here is the result:\n```json\n{\"score\": 9}\n```\nLet me know.",
			want: `{"score": 9}`,
			ok:   true,
		},
		{
			name: "plain code fence",
			in:   "```\n{\"score\": 9}\n```",
			want: `{"score": 9}`,
			ok:   true,
		},
		{
			name: "object embedded in prose",
			in:   `Sure! The assessment is {"clarity": 8, "depth": 6} as requested.`,
			want: `{"clarity": 8, "depth": 6}`,
			ok:   true,
		},
		{
			name: "trailing comma recovered",
			in:   `{"a": 1, "b": 2,}`,
			want: `{"a": 1, "b": 2}`,
			ok:   true,
		},
		{
			name: "trailing comma in nested array",
			in:   `{"tags": ["a", "b",],}`,
			want: `{"tags": ["a", "b"]}`,
			ok:   true,
		},
		{
			name: "bare string is not a payload",
			in:   `"just a string"`,
			ok:   false,
		},
		{
			name: "bare number is not a payload",
			in:   `42`,
			ok:   false,
		},
		{
			name: "no json at all",
			in:   "I could not produce a structured answer.",
			ok:   false,
		},
		{
			name: "empty",
			in:   "",
			ok:   false,
		},
		{
			name: "irrecoverably malformed",
			in:   `{"a": }`,
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, ok := ExtractJSON(tt.in)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.JSONEq(t, tt.want, string(payload))
			}
		})
	}
}

func TestUnmarshal(t *testing.T) {
	var out struct {
		Score int `json:"score"`
	}
	require.NoError(t, Unmarshal([]byte(`{"score": 7}`), "score_question", &out))
	assert.Equal(t, 7, out.Score)

	err := Unmarshal([]byte(`{"score": "seven"}`), "score_question", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "score_question")
}
