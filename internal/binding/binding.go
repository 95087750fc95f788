// Package binding attaches help for one key to a view element.
//
// A Binding reads its text and the visibility flag from the registry, renders
// through a named html/template, and keeps itself up to date by listening to
// the registry's notifications:
//
//   - notify.ToggleVisibility recomputes visibility
//   - notify.LocaleChanged and notify.DatabaseChanged re-read the text
//   - notify.DatabaseUpdated re-reads the text only for its own key
//
// The template is resolved and parsed once, when the binding is created.
package binding

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"sync"

	"github.com/specialistvlad/helpme/internal/notify"
)

var (
	// ErrEmptyKey is returned when a binding is created without a key.
	ErrEmptyKey = errors.New("binding: empty help key")
	// ErrUnknownTemplate is returned when the requested template is not registered.
	ErrUnknownTemplate = errors.New("binding: unknown template")
)

// Registry is the part of the help registry a binding depends on.
type Registry interface {
	Lookup(key string) (string, bool)
	IsVisible() bool
	Template(name string) (string, bool)
	Subscribe(fn notify.Handler) (unsubscribe func())
}

// State is what a binding currently displays.
type State struct {
	Key   string `json:"key"`
	Text  string `json:"text"`
	Found bool   `json:"found"`
	// Visible is true only when help is globally shown and there is text.
	Visible bool `json:"visible"`
}

// Option configures a Binding.
type Option func(*Binding)

// WithTemplate selects a named template instead of the default one.
func WithTemplate(name string) Option {
	return func(b *Binding) { b.templateName = name }
}

// OnChange registers fn to run after every re-derivation triggered by a
// notification. fn runs on the publishing goroutine.
func OnChange(fn func(State)) Option {
	return func(b *Binding) { b.onChange = fn }
}

// Binding keeps the help state of one key in sync with a registry.
type Binding struct {
	reg          Registry
	templateName string
	tmpl         *template.Template
	onChange     func(State)

	mu    sync.RWMutex
	state State

	unsubscribe func()
}

// New creates a binding for key and subscribes it to reg.
func New(reg Registry, key string, opts ...Option) (*Binding, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	b := &Binding{reg: reg, state: State{Key: key}}
	for _, opt := range opts {
		opt(b)
	}

	source, ok := reg.Template(b.templateName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, b.templateName)
	}
	tmpl, err := template.New("help").Parse(source)
	if err != nil {
		return nil, fmt.Errorf("binding: parse template %q: %w", b.templateName, err)
	}
	b.tmpl = tmpl

	// Subscribe before the first read so no change between the two is lost.
	b.unsubscribe = reg.Subscribe(b.handle)
	b.refreshText()
	return b, nil
}

// Key returns the bound help key.
func (b *Binding) Key() string {
	return b.state.Key
}

// State returns the current state.
func (b *Binding) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Render executes the binding's template with its current state.
func (b *Binding) Render(w io.Writer) error {
	return b.tmpl.Execute(w, b.State())
}

// Close stops listening to the registry. It is safe to call more than once.
func (b *Binding) Close() {
	b.unsubscribe()
}

func (b *Binding) handle(n notify.Notification) {
	switch n.Event {
	case notify.ToggleVisibility:
		b.refreshVisibility()
	case notify.LocaleChanged, notify.DatabaseChanged:
		b.refreshText()
	case notify.DatabaseUpdated:
		if n.Key != b.state.Key {
			return
		}
		b.refreshText()
	default:
		return
	}
	if b.onChange != nil {
		b.onChange(b.State())
	}
}

// refreshText and refreshVisibility hold b.mu across the registry read and the
// commit, so concurrent re-derivations commit in the order they read. The
// registry never publishes while holding its own lock.
func (b *Binding) refreshText() {
	b.mu.Lock()
	defer b.mu.Unlock()

	text, found := b.reg.Lookup(b.state.Key)
	visible := b.reg.IsVisible()
	b.state.Text = text
	b.state.Found = found
	b.state.Visible = visible && text != ""
}

func (b *Binding) refreshVisibility() {
	b.mu.Lock()
	defer b.mu.Unlock()

	visible := b.reg.IsVisible()
	b.state.Visible = visible && b.state.Text != ""
}
