package app_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/specialistvlad/helpme/internal/app"
	"github.com/specialistvlad/helpme/internal/notify"
	"github.com/specialistvlad/helpme/internal/remote"
	"github.com/specialistvlad/helpme/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var helpFiles = map[string]string{
	"help.hcl": `
		aboutHelp = "text"
		locale "fr" {
			aboutHelp = "texte"
		}
		locale "de-CH" {
			aboutHelp = "Text"
		}
		template "inline" {
			source = "<em>{{.Text}}</em>"
		}
	`,
}

func newServer(t *testing.T, cfg *app.Config) (*testutil.HarnessResult, *httptest.Server) {
	t.Helper()
	result := testutil.NewTestApp(t, helpFiles, cfg)
	require.NoError(t, result.Err)
	require.NoError(t, result.App.Registry().Ready(context.Background()))

	srv := httptest.NewServer(result.App.Handler())
	t.Cleanup(srv.Close)
	return result, srv
}

func do(t *testing.T, method, url, body string, header ...string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &m))
	return m
}

func TestNew_AppliesConfig(t *testing.T) {
	result := testutil.NewTestApp(t, helpFiles, &app.Config{Locale: "fr", Hidden: true})
	require.NoError(t, result.Err)
	reg := result.App.Registry()
	require.NoError(t, reg.Ready(context.Background()))

	assert.Equal(t, "fr", reg.Locale())
	assert.False(t, reg.IsVisible())
	text, ok := reg.Lookup("aboutHelp")
	require.True(t, ok)
	assert.Equal(t, "texte", text)

	src, ok := reg.Template("inline")
	require.True(t, ok)
	assert.Equal(t, "<em>{{.Text}}</em>", src)
	testutil.AssertLogged(t, result, "Help files loaded.")
}

func TestNew_BrokenFile(t *testing.T) {
	result := testutil.NewTestApp(t, map[string]string{"help.hcl": `aboutHelp = `}, nil)
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "failed to load help database")
	assert.Nil(t, result.App)
}

func TestNewConfig(t *testing.T) {
	_, err := app.NewConfig(app.Config{})
	require.Error(t, err)

	_, err = app.NewConfig(app.Config{DBPaths: []string{"x"}, Port: 70000})
	require.Error(t, err)

	cfg, err := app.NewConfig(app.Config{DBPaths: []string{"x"}, Port: 8080})
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
}

func TestHTTP_Health(t *testing.T) {
	_, srv := newServer(t, nil)
	status, body := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK\n", body)
}

func TestHTTP_GetHelp(t *testing.T) {
	_, srv := newServer(t, nil)

	testCases := []struct {
		name       string
		path       string
		header     []string
		wantStatus int
		wantLocale string
		wantText   string
	}{
		{name: "active locale", path: "/help/aboutHelp", wantStatus: http.StatusOK, wantText: "text"},
		{name: "lang query", path: "/help/aboutHelp?lang=fr", wantStatus: http.StatusOK, wantLocale: "fr", wantText: "texte"},
		{
			name:       "accept language",
			path:       "/help/aboutHelp",
			header:     []string{"Accept-Language", "de-CH, fr;q=0.5"},
			wantStatus: http.StatusOK,
			wantLocale: "de-CH",
			wantText:   "Text",
		},
		{name: "query beats header", path: "/help/aboutHelp?lang=fr", header: []string{"Accept-Language", "de-CH"}, wantStatus: http.StatusOK, wantLocale: "fr", wantText: "texte"},
		{name: "missing key", path: "/help/nope", wantStatus: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := do(t, http.MethodGet, srv.URL+tc.path, "", tc.header...)
			require.Equal(t, tc.wantStatus, status, body)
			m := decode(t, body)
			assert.Equal(t, tc.wantLocale, m["locale"])
			assert.Equal(t, tc.wantText, m["text"])
			assert.Equal(t, tc.wantStatus == http.StatusOK, m["found"])
		})
	}
}

func TestHTTP_PutHelp(t *testing.T) {
	result, srv := newServer(t, nil)

	status, _ := do(t, http.MethodPut, srv.URL+"/help/greet", `{"text":"bonjour","locale":"fr"}`)
	require.Equal(t, http.StatusNoContent, status)

	text, ok := result.App.Registry().LookupIn("fr", "greet")
	require.True(t, ok)
	assert.Equal(t, "bonjour", text)

	status, _ = do(t, http.MethodPut, srv.URL+"/help/greet", `{`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHTTP_Render(t *testing.T) {
	_, srv := newServer(t, nil)

	status, body := do(t, http.MethodGet, srv.URL+"/help/aboutHelp/render", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, `<span class="help-block">text</span>`, body)

	status, body = do(t, http.MethodGet, srv.URL+"/help/aboutHelp/render?template=inline", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, `<em>text</em>`, body)

	status, _ = do(t, http.MethodGet, srv.URL+"/help/aboutHelp/render?template=nope", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHTTP_Visibility(t *testing.T) {
	result, srv := newServer(t, nil)
	reg := result.App.Registry()

	status, body := do(t, http.MethodPost, srv.URL+"/visibility/toggle", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, decode(t, body)["visible"])
	assert.False(t, reg.IsVisible())

	status, body = do(t, http.MethodPut, srv.URL+"/visibility", `{"visible":true}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, decode(t, body)["visible"])

	status, _ = do(t, http.MethodPut, srv.URL+"/visibility", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, http.MethodDelete, srv.URL+"/visibility", "")
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}

func TestHTTP_Locale(t *testing.T) {
	result, srv := newServer(t, nil)

	status, body := do(t, http.MethodPut, srv.URL+"/locale", `{"locale":"fr"}`)
	require.Equal(t, http.StatusOK, status)
	m := decode(t, body)
	assert.Equal(t, "fr", m["locale"])
	assert.ElementsMatch(t, []any{"de-CH", "fr"}, m["available"])
	assert.Equal(t, "fr", result.App.Registry().Locale())

	status, _ = do(t, http.MethodPut, srv.URL+"/locale", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHTTP_SocketIO(t *testing.T) {
	ctx := context.Background()
	_, srv := newServer(t, nil)

	client, err := remote.Dial(ctx, srv.URL, remote.WithTimeout(5*time.Second))
	require.NoError(t, err)
	defer client.Close()

	state, err := client.Bind(ctx, "aboutHelp", "")
	require.NoError(t, err)
	assert.Equal(t, "text", state.Text)

	status, _ := do(t, http.MethodPut, srv.URL+"/locale", `{"locale":"fr"}`)
	require.Equal(t, http.StatusOK, status)

	require.Eventually(t, func() bool {
		s, _ := client.State("aboutHelp")
		return s.Text == "texte" && client.Notifications(notify.LocaleChanged) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRun_WatchesAndStops(t *testing.T) {
	result := testutil.NewTestApp(t, helpFiles, &app.Config{Watch: true})
	require.NoError(t, result.Err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- result.App.Run(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(result.LogOutput(), "Watching help files for changes.")
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(result.Dir, "extra.yaml"), []byte("greet: hi\n"), 0644))
	require.Eventually(t, func() bool {
		text, _ := result.App.Registry().Lookup("greet")
		return text == "hi"
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	testutil.AssertLogged(t, result, "HTTP server not started: disabled")
}
