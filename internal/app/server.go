package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/specialistvlad/helpme/internal/binding"
	"github.com/specialistvlad/helpme/internal/locale"
)

const shutdownTimeout = 5 * time.Second

// helpResponse is the JSON shape of GET /help/{key}.
type helpResponse struct {
	Key     string `json:"key"`
	Locale  string `json:"locale"`
	Text    string `json:"text"`
	Found   bool   `json:"found"`
	Visible bool   `json:"visible"`
}

type addEntryRequest struct {
	Text   string `json:"text"`
	Locale string `json:"locale"`
}

type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

type localeRequest struct {
	Locale *string `json:"locale"`
}

// Handler returns the HTTP API including the socket.io endpoint.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.healthHandler)
	mux.HandleFunc("GET /help/{key}", a.getHelpHandler)
	mux.HandleFunc("GET /help/{key}/render", a.renderHelpHandler)
	mux.HandleFunc("PUT /help/{key}", a.putHelpHandler)
	mux.HandleFunc("GET /visibility", a.getVisibilityHandler)
	mux.HandleFunc("PUT /visibility", a.putVisibilityHandler)
	mux.HandleFunc("POST /visibility/toggle", a.toggleVisibilityHandler)
	mux.HandleFunc("GET /locale", a.getLocaleHandler)
	mux.HandleFunc("PUT /locale", a.putLocaleHandler)
	mux.Handle("/socket.io/", a.relay.Handler())
	return mux
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// requestLocale picks the locale for a read: ?lang= first, then the best
// Accept-Language match among the database locales, then the active locale.
func (a *App) requestLocale(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return lang
	}
	if pref := r.Header.Get("Accept-Language"); pref != "" {
		if l, ok := locale.Negotiate(a.registry.Locales(), pref); ok {
			return l
		}
	}
	return a.registry.Locale()
}

func (a *App) getHelpHandler(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	lang := a.requestLocale(r)

	text, found := a.registry.LookupIn(lang, key)
	resp := helpResponse{
		Key:     key,
		Locale:  lang,
		Text:    text,
		Found:   found,
		Visible: a.registry.IsVisible() && text != "",
	}
	status := http.StatusOK
	if !found {
		status = http.StatusNotFound
	}
	a.writeJSON(w, status, resp)
}

// renderHelpHandler renders key through a binding, so the output is exactly
// what a bound view element would show.
func (a *App) renderHelpHandler(w http.ResponseWriter, r *http.Request) {
	b, err := binding.New(a.registry, r.PathValue("key"), binding.WithTemplate(r.URL.Query().Get("template")))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, binding.ErrUnknownTemplate) {
			status = http.StatusNotFound
		}
		a.writeError(w, status, err)
		return
	}
	defer b.Close()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := b.Render(w); err != nil {
		a.logger.Error("Failed to render help.", "key", b.Key(), "error", err)
	}
}

func (a *App) putHelpHandler(w http.ResponseWriter, r *http.Request) {
	var req addEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	key := r.PathValue("key")
	a.registry.AddEntry(key, req.Text, req.Locale)
	a.logger.Info("Help entry added.", "key", key, "locale", req.Locale)
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) getVisibilityHandler(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]bool{"visible": a.registry.IsVisible()})
}

func (a *App) putVisibilityHandler(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if req.Visible == nil {
		a.writeError(w, http.StatusBadRequest, errors.New("missing field: visible"))
		return
	}
	a.registry.SetVisible(*req.Visible)
	a.getVisibilityHandler(w, r)
}

func (a *App) toggleVisibilityHandler(w http.ResponseWriter, r *http.Request) {
	a.registry.ToggleVisible()
	a.getVisibilityHandler(w, r)
}

func (a *App) getLocaleHandler(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]any{
		"locale":    a.registry.Locale(),
		"available": a.registry.Locales(),
	})
}

func (a *App) putLocaleHandler(w http.ResponseWriter, r *http.Request) {
	var req localeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if req.Locale == nil {
		a.writeError(w, http.StatusBadRequest, errors.New("missing field: locale"))
		return
	}
	a.registry.SetLocale(*req.Locale)
	a.getLocaleHandler(w, r)
}

func (a *App) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("Failed to write response.", "error", err)
	}
}

func (a *App) writeError(w http.ResponseWriter, status int, err error) {
	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// startServer binds the configured port and serves the API in the background.
// A zero port disables the server.
func (a *App) startServer() error {
	if a.config.Port <= 0 {
		a.logger.Warn("HTTP server not started: disabled")
		return nil
	}

	addr := fmt.Sprintf(":%d", a.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	a.httpServer = &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.logger.Info("🩺 HTTP server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		// Serve returns ErrServerClosed on graceful shutdown.
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server failed unexpectedly", "error", err)
		}
	}()
	return nil
}

func (a *App) closeServer() error {
	if a.httpServer == nil {
		a.logger.Debug("HTTP server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(a.ctx, shutdownTimeout)
	defer cancel()

	a.logger.Info("🩺 Shutting down HTTP server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("HTTP server shutdown failed", "error", err)
		return err
	}
	a.logger.Debug("HTTP server shut down gracefully.")
	return nil
}
