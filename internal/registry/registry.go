package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/specialistvlad/helpme/internal/ctxlog"
	"github.com/specialistvlad/helpme/internal/helpdb"
	"github.com/specialistvlad/helpme/internal/notify"
	"github.com/specialistvlad/helpme/internal/templatestore"
)

// DefaultTemplateName is the reserved name of the default help template.
const DefaultTemplateName = "helpme.default"

// BuiltinTemplate is installed under DefaultTemplateName unless the caller
// registered a default template first. It is an html/template source rendered
// with the binding state.
const BuiltinTemplate = `{{if .Visible}}<span class="help-block">{{.Text}}</span>{{end}}`

// Option configures a Registry at construction.
type Option func(*options)

type options struct {
	templates       map[string]string
	builtinTemplate string
}

// WithTemplate registers a template before the registry initializes. Using
// DefaultTemplateName (or "") replaces the built-in default.
func WithTemplate(name, source string) Option {
	return func(o *options) {
		if name == "" {
			name = DefaultTemplateName
		}
		o.templates[name] = source
	}
}

// WithBuiltinTemplate changes the fallback installed in the default slot when
// nothing else occupies it.
func WithBuiltinTemplate(source string) Option {
	return func(o *options) {
		o.builtinTemplate = source
	}
}

// Registry is the help registry. All methods are safe for concurrent use.
type Registry struct {
	// ctx carries the logger only; it is detached from the caller's cancellation.
	ctx    context.Context
	logger *slog.Logger

	mu      sync.RWMutex
	db      helpdb.Table
	locale  string
	visible bool

	templates *templatestore.Store
	bus       notify.Bus
	initial   *Load
}

// New creates a registry with an empty database, installs templates and then
// starts loading the provider's source. The provider is called exactly once; a
// nil provider means an empty initial database.
func New(ctx context.Context, provider Provider, opts ...Option) *Registry {
	o := options{
		templates:       make(map[string]string),
		builtinTemplate: BuiltinTemplate,
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger := ctxlog.FromContext(ctx).With("component", "registry")
	r := &Registry{
		ctx:       ctxlog.WithLogger(context.WithoutCancel(ctx), logger),
		logger:    logger,
		db:        make(helpdb.Table),
		visible:   true,
		templates: templatestore.New(),
	}

	for name, source := range o.templates {
		r.templates.Set(name, source)
	}
	if r.templates.SetIfAbsent(DefaultTemplateName, o.builtinTemplate) {
		logger.Debug("Installed built-in default template.")
	} else {
		logger.Debug("Default template pre-registered, keeping it.")
	}

	if provider == nil {
		provider = StaticProvider(nil)
	}
	r.initial = r.LoadDatabase(ctx, provider.Get())
	return r
}

// Ready waits for the initial database load. A failed provider leaves the
// registry usable with an empty database and is reported here as *LoadError.
func (r *Registry) Ready(ctx context.Context) error {
	return r.initial.Wait(ctx)
}

// Subscribe registers fn for every notification the registry publishes.
func (r *Registry) Subscribe(fn notify.Handler) (unsubscribe func()) {
	return r.bus.Subscribe(fn)
}

func (r *Registry) publish(n notify.Notification) {
	r.logger.Debug("Publishing notification.", "event", string(n.Event), "key", n.Key)
	r.bus.Publish(r.ctx, n)
}

// Lookup returns the help text for key under the active locale. The second
// result is false when no text is stored there.
func (r *Registry) Lookup(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lookup(r.db, r.locale, key)
}

// LookupIn applies the Lookup rule for an explicit locale, leaving the active
// locale untouched. An empty locale reads the top level.
func (r *Registry) LookupIn(locale, key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lookup(r.db, locale, key)
}

func lookup(db helpdb.Table, locale, key string) (string, bool) {
	if locale != "" {
		if lv, ok := db[locale]; ok {
			sub, ok := lv.Table()
			if !ok {
				// A text value where a locale table is expected holds no keys.
				return "", false
			}
			return textAt(sub, key)
		}
	}
	return textAt(db, key)
}

func textAt(t helpdb.Table, key string) (string, bool) {
	v, ok := t[key]
	if !ok {
		return "", false
	}
	return v.Text()
}

// IsVisible reports whether help is globally shown.
func (r *Registry) IsVisible() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.visible
}

// SetVisible sets the visibility flag and publishes notify.ToggleVisibility,
// even when the value did not change.
func (r *Registry) SetVisible(visible bool) {
	r.mu.Lock()
	r.visible = visible
	r.mu.Unlock()
	r.publish(notify.Notification{Event: notify.ToggleVisibility})
}

// ToggleVisible flips the visibility flag and publishes notify.ToggleVisibility.
func (r *Registry) ToggleVisible() {
	r.mu.Lock()
	r.visible = !r.visible
	r.mu.Unlock()
	r.publish(notify.Notification{Event: notify.ToggleVisibility})
}

// Locale returns the active locale, or "" when none is set.
func (r *Registry) Locale() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.locale
}

// SetLocale sets the active locale and publishes notify.LocaleChanged. An empty
// locale switches back to unlocalized lookups.
func (r *Registry) SetLocale(locale string) {
	r.mu.Lock()
	r.locale = locale
	r.mu.Unlock()
	r.publish(notify.Notification{Event: notify.LocaleChanged})
}

// Locales returns the top-level keys that hold tables, sorted. These are the
// locales the database currently has entries for.
func (r *Registry) Locales() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for k, v := range r.db {
		if v.IsTable() {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// SetTemplate stores a template. An empty name addresses the default template.
func (r *Registry) SetTemplate(name, source string) {
	if name == "" {
		name = DefaultTemplateName
	}
	r.templates.Set(name, source)
}

// Template returns the template stored under name, or the default template
// when name is empty.
func (r *Registry) Template(name string) (string, bool) {
	if name == "" {
		name = DefaultTemplateName
	}
	return r.templates.Get(name)
}

// TemplateNames lists all registered template names.
func (r *Registry) TemplateNames() []string {
	return r.templates.Names()
}

// LoadDatabase resolves src on a new goroutine, merges the result into the
// database and then publishes notify.DatabaseChanged. ctx reaches only the
// source; once it has resolved, the merge and notification always happen.
func (r *Registry) LoadDatabase(ctx context.Context, src Source) *Load {
	l := newLoad()
	go func() {
		defer close(l.done)

		table, err := resolve(ctx, src)
		if err != nil {
			l.err = &LoadError{Err: err}
			r.logger.Error("Help database load failed.", "error", err)
			return
		}

		r.mu.Lock()
		helpdb.Merge(r.db, table)
		size := len(r.db)
		r.mu.Unlock()

		r.logger.Debug("Help database merged.", "merged_keys", len(table), "total_keys", size)
		r.publish(notify.Notification{Event: notify.DatabaseChanged})
	}()
	return l
}

func resolve(ctx context.Context, src Source) (table helpdb.Table, err error) {
	if src == nil {
		return nil, errNilSource
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("source panicked: %v", rec)
		}
	}()
	return src.Resolve(ctx)
}

// AddEntry stores one help text and publishes notify.DatabaseUpdated carrying
// key. With a locale the text goes into that locale's table, which is created
// when missing and replaces a text value occupying the locale's slot. Without
// one the top-level entry is overwritten.
func (r *Registry) AddEntry(key, text, locale string) {
	r.mu.Lock()
	if locale != "" {
		sub, ok := r.db[locale].Table()
		if !ok {
			sub = make(helpdb.Table)
			r.db[locale] = helpdb.Nested(sub)
		}
		sub[key] = helpdb.Text(text)
	} else {
		r.db[key] = helpdb.Text(text)
	}
	r.mu.Unlock()
	r.publish(notify.Notification{Event: notify.DatabaseUpdated, Key: key})
}

// Snapshot returns a deep copy of the database.
func (r *Registry) Snapshot() helpdb.Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.db.Clone()
}
