// Package relay exposes the help registry to socket.io clients.
//
// Every registry notification is broadcast to all connected clients under its
// event name. Clients can also ask the relay to keep a binding for a key on
// their behalf; the relay then pushes a "help" event whenever that binding's
// state changes.
package relay

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/specialistvlad/helpme/internal/binding"
	"github.com/specialistvlad/helpme/internal/ctxlog"
	"github.com/specialistvlad/helpme/internal/notify"
	"github.com/zishang520/socket.io/v2/socket"
)

// Client to server events.
const (
	EventBind   = "bind"
	EventUnbind = "unbind"
	EventLookup = "lookup"
)

// Server to client events. EventHelp carries a Reply.
const (
	EventHelp      = "help"
	EventBindError = "bind-error"
)

// Reply is the payload of EventHelp. ID echoes the "id" of the bind or lookup
// request it answers and is empty for pushes caused by registry changes.
type Reply struct {
	binding.State
	ID string `json:"id,omitempty"`
}

// BindFailure is the payload of EventBindError.
type BindFailure struct {
	ID      string `json:"id,omitempty"`
	Key     string `json:"key"`
	Message string `json:"message"`
}

// Relay bridges a registry and a socket.io server.
type Relay struct {
	reg    binding.Registry
	io     *socket.Server
	logger *slog.Logger

	unsubscribe func()

	mu      sync.Mutex
	clients map[socket.SocketId]*client
	closed  bool
}

// client holds the bindings one connection asked for, keyed by help key.
type client struct {
	sock *socket.Socket

	mu       sync.Mutex
	bindings map[string]*binding.Binding
}

// New creates a relay for reg. The logger is taken from ctx.
func New(ctx context.Context, reg binding.Registry) *Relay {
	r := &Relay{
		reg:     reg,
		io:      socket.NewServer(nil, nil),
		logger:  ctxlog.FromContext(ctx).With("component", "relay"),
		clients: make(map[socket.SocketId]*client),
	}
	r.io.On("connection", func(args ...any) {
		if len(args) == 0 {
			return
		}
		if sock, ok := args[0].(*socket.Socket); ok {
			r.connect(sock)
		}
	})
	r.unsubscribe = reg.Subscribe(r.broadcast)
	return r
}

// Handler returns the HTTP handler serving the socket.io endpoint.
func (r *Relay) Handler() http.Handler {
	return r.io.ServeHandler(nil)
}

// Clients returns the number of connected clients.
func (r *Relay) Clients() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Close stops broadcasting, releases all bindings and closes the server.
func (r *Relay) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	clients := r.clients
	r.clients = make(map[socket.SocketId]*client)
	r.mu.Unlock()

	r.unsubscribe()
	for _, c := range clients {
		c.closeAll()
	}
	r.io.Close(nil)
	r.logger.Debug("Relay closed.", "clients", len(clients))
}

func (r *Relay) broadcast(n notify.Notification) {
	payload := map[string]any{}
	if n.Key != "" {
		payload["key"] = n.Key
	}
	r.logger.Debug("Broadcasting notification.", "event", n.Event, "key", n.Key)
	r.io.Emit(string(n.Event), payload)
}

func (r *Relay) connect(sock *socket.Socket) {
	c := &client{sock: sock, bindings: make(map[string]*binding.Binding)}
	logger := r.logger.With("sid", sock.Id())

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		sock.Disconnect(true)
		return
	}
	r.clients[sock.Id()] = c
	r.mu.Unlock()
	logger.Debug("Client connected.")

	sock.On(EventBind, func(args ...any) {
		id, key, tmpl := stringArg(args, "id"), stringArg(args, "key"), stringArg(args, "template")
		if err := c.bind(r.reg, id, key, tmpl); err != nil {
			logger.Warn("Bind rejected.", "key", key, "template", tmpl, "error", err)
			sock.Emit(EventBindError, BindFailure{ID: id, Key: key, Message: err.Error()})
		}
	})

	sock.On(EventUnbind, func(args ...any) {
		c.unbind(stringArg(args, "key"))
	})

	sock.On(EventLookup, func(args ...any) {
		key := stringArg(args, "key")
		text, found := r.reg.Lookup(key)
		c.reply(stringArg(args, "id"), binding.State{
			Key:     key,
			Text:    text,
			Found:   found,
			Visible: r.reg.IsVisible() && text != "",
		})
	})

	sock.On("disconnect", func(args ...any) {
		r.mu.Lock()
		delete(r.clients, sock.Id())
		r.mu.Unlock()
		c.closeAll()
		logger.Debug("Client disconnected.", "reason", args)
	})
}

// bind replaces any existing binding for key and answers request id with the
// initial state.
func (c *client) bind(reg binding.Registry, id, key, tmpl string) error {
	b, err := binding.New(reg, key, binding.WithTemplate(tmpl), binding.OnChange(c.emit))
	if err != nil {
		return err
	}

	c.mu.Lock()
	if old, ok := c.bindings[key]; ok {
		old.Close()
	}
	c.bindings[key] = b
	c.mu.Unlock()

	c.reply(id, b.State())
	return nil
}

func (c *client) unbind(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.bindings[key]; ok {
		b.Close()
		delete(c.bindings, key)
	}
}

func (c *client) closeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, b := range c.bindings {
		b.Close()
		delete(c.bindings, key)
	}
}

func (c *client) emit(s binding.State) {
	c.reply("", s)
}

func (c *client) reply(id string, s binding.State) {
	c.sock.Emit(EventHelp, Reply{State: s, ID: id})
}

// stringArg reads a string field from the first event argument, which
// socket.io decodes as a JSON object.
func stringArg(args []any, name string) string {
	if len(args) == 0 {
		return ""
	}
	m, ok := args[0].(map[string]any)
	if !ok {
		return ""
	}
	s, _ := m[name].(string)
	return s
}
