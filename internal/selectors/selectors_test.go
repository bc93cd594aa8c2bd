package selectors

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Set
	}{
		{
			name: "mapping keeps file order",
			input: `
".tracking-progress-bar-status": Progress bar status
".tb-status": Status banner
"#trackingHistory": Event history
".delivery-date": Expected delivery date
`,
			want: Set{
				{Selector: ".tracking-progress-bar-status", Purpose: "Progress bar status"},
				{Selector: ".tb-status", Purpose: "Status banner"},
				{Selector: "#trackingHistory", Purpose: "Event history"},
				{Selector: ".delivery-date", Purpose: "Expected delivery date"},
			},
		},
		{
			name: "list of strings keeps duplicates",
			input: `
- "[class*='status']"
- h1
- "[class*='status']"
`,
			want: Set{
				{Selector: "[class*='status']"},
				{Selector: "h1"},
				{Selector: "[class*='status']"},
			},
		},
		{
			name: "list of entries",
			input: `
- selector: .timeline
  purpose: Event timeline
- selector: .carrier
`,
			want: Set{
				{Selector: ".timeline", Purpose: "Event timeline"},
				{Selector: ".carrier"},
			},
		},
		{
			name: "nested under selectors key",
			input: `
selectors:
  h2: Section heading
  h3: Sub heading
`,
			want: Set{
				{Selector: "h2", Purpose: "Section heading"},
				{Selector: "h3", Purpose: "Sub heading"},
			},
		},
		{
			name: "mapping with empty purpose",
			input: `
".tb-step":
`,
			want: Set{{Selector: ".tb-step"}},
		},
		{
			name:  "selectors key with nothing under it",
			input: "selectors:\n",
			want:  Set{},
		},
		{
			name:  "empty document",
			input: "",
			want:  Set{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "scalar document", input: "just a string"},
		{name: "blank selector in list", input: "- h1\n- '  '\n"},
		{name: "nested purpose", input: "h1:\n  nested: value\n"},
		{name: "nested list item", input: "- [h1, h2]\n"},
		{name: "invalid yaml", input: "h1: [unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte("- selector: ''\n  purpose: nothing\n"))
	assert.ErrorIs(t, err, ErrEmptySelector)
}

func TestSet_Selectors(t *testing.T) {
	set := FromStrings(".a", ".b", ".a")
	assert.Equal(t, []string{".a", ".b", ".a"}, set.Selectors())
	assert.Empty(t, Set{}.Selectors())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "usps.yaml")
	require.NoError(t, os.WriteFile(path, []byte("\".tb-status\": Status banner\n"), 0o644))

	set, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Set{{Selector: ".tb-status", Purpose: "Status banner"}}, set)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("- ''\n"), 0o644))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrEmptySelector)
	assert.Contains(t, err.Error(), "bad.yaml")
}
