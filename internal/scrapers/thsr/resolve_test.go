package thsr

import (
	"errors"
	"io"
	"testing"
	"thsr-booker/internal/components/console"

	"github.com/stretchr/testify/require"
)

var countField = Field[int]{Hint: "count?", Default: 1, Parse: parseInt}

func TestResolveOverrideWins(t *testing.T) {
	prompt := console.NewScripted("7")
	value, err := Resolve(prompt, ptr(3), countField)
	require.NoError(t, err)
	require.Equal(t, 3, value)
	require.Empty(t, prompt.Hints())
	require.Equal(t, 1, prompt.Remaining())
}

func TestResolvePrompts(t *testing.T) {
	cases := []struct {
		name   string
		answer string
		want   int
	}{
		{name: "answer", answer: "7", want: 7},
		{name: "padded answer", answer: "  4 ", want: 4},
		{name: "empty answer", answer: "", want: 1},
		{name: "unparsable answer", answer: "two", want: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prompt := console.NewScripted(tc.answer)
			value, err := Resolve(prompt, nil, countField)
			require.NoError(t, err)
			require.Equal(t, tc.want, value)
			require.Equal(t, []string{"count?"}, prompt.Hints())
		})
	}
}

func TestResolveWithoutPrompt(t *testing.T) {
	value, err := Resolve[int](nil, nil, countField)
	require.NoError(t, err)
	require.Equal(t, 1, value)
}

func TestResolveReadError(t *testing.T) {
	_, err := Resolve(console.NewScripted(), nil, countField)
	require.True(t, errors.Is(err, io.EOF))
}

func TestParseYesNo(t *testing.T) {
	for _, answer := range []string{"y", "Y", "yes"} {
		value, err := parseYesNo(answer)
		require.NoError(t, err)
		require.True(t, value, answer)
	}
	for _, answer := range []string{"n", "no", "maybe"} {
		value, err := parseYesNo(answer)
		require.NoError(t, err)
		require.False(t, value, answer)
	}
}
