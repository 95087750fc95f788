package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name       string
		args       []string
		env        map[string]string
		wantPaths  []string
		wantLocale string
		wantHidden bool
		wantPort   int
		wantWatch  bool
		wantFormat string
		wantLevel  string
	}{
		{
			name:       "positional path with defaults",
			args:       []string{"help.hcl"},
			wantPaths:  []string{"help.hcl"},
			wantFormat: "text",
			wantLevel:  "info",
		},
		{
			name:       "repeatable db flag before positional paths",
			args:       []string{"-db", "a.hcl", "-db", "b.yaml", "c.json"},
			wantPaths:  []string{"a.hcl", "b.yaml", "c.json"},
			wantFormat: "text",
			wantLevel:  "info",
		},
		{
			name:       "all flags",
			args:       []string{"-locale", "fr", "-hidden", "-port", "8080", "-watch", "-log-format", "JSON", "-log-level", "debug", "help"},
			wantPaths:  []string{"help"},
			wantLocale: "fr",
			wantHidden: true,
			wantPort:   8080,
			wantWatch:  true,
			wantFormat: "json",
			wantLevel:  "debug",
		},
		{
			name: "environment defaults",
			env: map[string]string{
				"HELPME_DB":         "a.hcl,b.hcl",
				"HELPME_LOCALE":     "de",
				"HELPME_HIDDEN":     "true",
				"HELPME_PORT":       "9090",
				"HELPME_LOG_FORMAT": "json",
			},
			wantPaths:  []string{"a.hcl", "b.hcl"},
			wantLocale: "de",
			wantHidden: true,
			wantPort:   9090,
			wantFormat: "json",
			wantLevel:  "info",
		},
		{
			name:       "flags override environment",
			env:        map[string]string{"HELPME_DB": "env.hcl", "HELPME_LOCALE": "de", "HELPME_PORT": "9090"},
			args:       []string{"-locale", "fr", "-port", "0", "flag.hcl"},
			wantPaths:  []string{"flag.hcl"},
			wantLocale: "fr",
			wantFormat: "text",
			wantLevel:  "info",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, shouldExit, err := Parse(tc.args, &bytes.Buffer{})

			require.NoError(t, err)
			require.False(t, shouldExit)
			assert.Equal(t, tc.wantPaths, cfg.DBPaths)
			assert.Equal(t, tc.wantLocale, cfg.Locale)
			assert.Equal(t, tc.wantHidden, cfg.Hidden)
			assert.Equal(t, tc.wantPort, cfg.Port)
			assert.Equal(t, tc.wantWatch, cfg.Watch)
			assert.Equal(t, tc.wantFormat, cfg.LogFormat)
			assert.Equal(t, tc.wantLevel, cfg.LogLevel)
		})
	}
}

func TestParse_ExitsCleanly(t *testing.T) {
	for name, args := range map[string][]string{
		"help flag": {"-h"},
		"no paths":  {},
	} {
		t.Run(name, func(t *testing.T) {
			out := &bytes.Buffer{}
			cfg, shouldExit, err := Parse(args, out)
			require.NoError(t, err)
			assert.True(t, shouldExit)
			assert.Nil(t, cfg)
			assert.Contains(t, out.String(), "Usage:")
		})
	}
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name        string
		args        []string
		env         map[string]string
		errContains string
	}{
		{name: "unknown flag", args: []string{"-nope"}, errContains: "flag provided but not defined"},
		{name: "bad log format", args: []string{"-log-format", "xml", "a"}, errContains: "invalid log-format"},
		{name: "bad log level", args: []string{"-log-level", "loud", "a"}, errContains: "invalid log-level"},
		{name: "bad port", args: []string{"-port", "70000", "a"}, errContains: "port must be between"},
		{name: "bad env", env: map[string]string{"HELPME_PORT": "many"}, args: []string{"a"}, errContains: "parse env"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, _, err := Parse(tc.args, &bytes.Buffer{})

			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Error(), tc.errContains)
		})
	}
}
