package hcl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	// --- Arrange ---
	src := `
		aboutHelp = "The help DB contains key value pairs."
		retries   = 3
		enabled   = true
		nested    = { inner = "deep" }

		locale "fr" {
			aboutHelp = "La base d'aide contient des paires clé valeur."
		}

		template "inline" {
			source = "<em>{{.Text}}</em>"
		}
	`

	// --- Act ---
	model, err := Decode(context.Background(), "help.hcl", []byte(src))

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"aboutHelp": "The help DB contains key value pairs.",
		"retries":   "3",
		"enabled":   "true",
		"nested":    map[string]any{"inner": "deep"},
		"fr":        map[string]any{"aboutHelp": "La base d'aide contient des paires clé valeur."},
	}, model.Database.ToAny())
	assert.Equal(t, map[string]string{"inline": "<em>{{.Text}}</em>"}, model.Templates)
}

func TestDecode_LocaleBlockMergesWithAttribute(t *testing.T) {
	src := `
		fr = { greet = "salut" }
		locale "fr" {
			bye = "au revoir"
		}
	`
	model, err := Decode(context.Background(), "help.hcl", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"fr": map[string]any{"greet": "salut", "bye": "au revoir"},
	}, model.Database.ToAny())
}

func TestDecode_Errors(t *testing.T) {
	testCases := []struct {
		name        string
		src         string
		errContains string
	}{
		{
			name:        "syntax error",
			src:         `greet = "unterminated`,
			errContains: "failed to parse HCL file",
		},
		{
			name:        "unknown block",
			src:         `widget "x" {}`,
			errContains: "help.hcl",
		},
		{
			name:        "list value",
			src:         `greet = ["a", "b"]`,
			errContains: "unsupported type",
		},
		{
			name:        "null value",
			src:         `greet = null`,
			errContains: "null values are not allowed",
		},
		{
			name:        "interpolation needs variables",
			src:         `greet = "hi ${name}"`,
			errContains: "invalid value for \"greet\"",
		},
		{
			name: "template without source",
			src: `
				template "inline" {}
			`,
			errContains: "failed to decode HCL file",
		},
		{
			name: "nested block inside locale",
			src: `
				locale "fr" {
					locale "de" {}
				}
			`,
			errContains: "locale \"fr\"",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(context.Background(), "help.hcl", []byte(tc.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errContains)
		})
	}
}
