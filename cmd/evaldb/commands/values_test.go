package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssignments(t *testing.T) {
	t.Run("decodes JSON values and keeps strings", func(t *testing.T) {
		values, err := parseAssignments([]string{
			"lr=0.1",
			"epochs=30",
			"shuffle=true",
			"layers=[64,32]",
			"optimizer=adam",
			`quoted="0.1"`,
			"empty=",
			"expr=a=b",
			"seed=9007199254740993",
			"pair=1 2",
		})
		require.NoError(t, err)

		assert.Equal(t, map[string]any{
			"lr":        json.Number("0.1"),
			"epochs":    json.Number("30"),
			"shuffle":   true,
			"layers":    []any{json.Number("64"), json.Number("32")},
			"optimizer": "adam",
			"quoted":    "0.1",
			"empty":     "",
			"expr":      "a=b",
			"seed":      json.Number("9007199254740993"),
			"pair":      "1 2",
		}, values)
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name    string
			input   []string
			wantErr string
		}{
			{name: "no equals sign", input: []string{"lr"}, wantErr: "expected key=value"},
			{name: "empty key", input: []string{"=1"}, wantErr: "expected key=value"},
			{name: "duplicate key", input: []string{"lr=1", "lr=2"}, wantErr: "duplicate key 'lr'"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := parseAssignments(tt.input)
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			})
		}
	})
}

func TestDefaultRecordPath(t *testing.T) {
	p := defaultRecordPath("results", "resnet/v2 large")
	assert.Regexp(t, `^results/resnet_v2_large-[0-9a-f-]{36}\.json$`, p)
	assert.NotEqual(t, p, defaultRecordPath("results", "resnet/v2 large"))
}

func TestEnsureNewline(t *testing.T) {
	assert.Equal(t, "a\n", ensureNewline("a"))
	assert.Equal(t, "a\n", ensureNewline("a\n"))
}
