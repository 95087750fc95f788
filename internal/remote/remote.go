// Package remote is a socket.io client for the help relay. It keeps the latest
// help state of every key it bound and counts the notifications the relay
// broadcasts.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/helpme/internal/binding"
	"github.com/specialistvlad/helpme/internal/ctxlog"
	"github.com/specialistvlad/helpme/internal/notify"
	"github.com/specialistvlad/helpme/internal/relay"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultTimeout bounds Dial and each request when the context has no deadline.
const DefaultTimeout = 10 * time.Second

// ErrClosed is returned by requests on a closed client.
var ErrClosed = errors.New("remote: client closed")

// BindError is the relay's rejection of a bind request.
type BindError struct {
	Key     string
	Message string
}

func (e *BindError) Error() string {
	return fmt.Sprintf("remote: bind %q rejected: %s", e.Key, e.Message)
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

type reply struct {
	state binding.State
	err   error
}

// waiter is an in-flight request. Lookup answers do not update the bound
// states.
type waiter struct {
	ch     chan reply
	lookup bool
}

// Client is a connected relay client.
type Client struct {
	timeout time.Duration
	logger  *slog.Logger
	io      *socket.Socket
	nextID  atomic.Uint64

	mu      sync.Mutex
	closed  bool
	states  map[string]binding.State
	waiters map[string]waiter // by request id
	counts  map[notify.Event]int
}

// Dial connects to the relay at rawURL, e.g. "http://localhost:8080". A URL
// path overrides the default "/socket.io/" endpoint.
func Dial(ctx context.Context, rawURL string, opts ...Option) (*Client, error) {
	c := newClient(ctxlog.With(ctx, "component", "remote", "url", rawURL))
	for _, opt := range opts {
		opt(c)
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)

	sockOpts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		sockOpts.SetPath(parsedURL.Path)
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, sockOpts)
	c.io = manager.Socket("/", sockOpts)

	connected := make(chan error, 1)
	signal := func(err error) {
		select {
		case connected <- err:
		default:
		}
	}
	c.io.Once(types.EventName("connect"), func(...any) {
		signal(nil)
	})
	c.io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		signal(err)
	})

	for _, ev := range notify.Events {
		c.io.On(types.EventName(ev), func(...any) {
			c.mu.Lock()
			c.counts[ev]++
			c.mu.Unlock()
		})
	}
	c.io.On(types.EventName(relay.EventHelp), c.onHelp)
	c.io.On(types.EventName(relay.EventBindError), c.onBindError)

	c.io.Connect()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	select {
	case err := <-connected:
		if err != nil {
			c.io.Disconnect()
			return nil, fmt.Errorf("failed to connect to %s: %w", rawURL, err)
		}
	case <-ctx.Done():
		c.io.Disconnect()
		return nil, fmt.Errorf("timed out while waiting for initial connection: %w", ctx.Err())
	}

	c.logger.Info("Successfully connected", "sid", c.io.Id())
	return c, nil
}

// Bind asks the relay to bind key with the named template (empty for the
// default) and returns the first state it pushes.
func (c *Client) Bind(ctx context.Context, key, template string) (binding.State, error) {
	return c.request(ctx, relay.EventBind, false, map[string]any{"key": key, "template": template})
}

// Lookup asks the relay for the current state of key without binding it.
func (c *Client) Lookup(ctx context.Context, key string) (binding.State, error) {
	return c.request(ctx, relay.EventLookup, true, map[string]any{"key": key})
}

// Unbind releases the relay's binding for key. The last state stays readable.
func (c *Client) Unbind(key string) {
	c.io.Emit(relay.EventUnbind, map[string]any{"key": key})
}

// State returns the latest help state pushed for key.
func (c *Client) State(key string) (binding.State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.states[key]
	return s, ok
}

// Notifications returns how many ev broadcasts were received.
func (c *Client) Notifications(ev notify.Event) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[ev]
}

// Close disconnects the client and fails pending requests.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	waiters := c.waiters
	c.waiters = make(map[string]waiter)
	c.mu.Unlock()

	for _, w := range waiters {
		w.ch <- reply{err: ErrClosed}
	}
	c.logger.Debug("Disconnecting socket client")
	c.io.Disconnect()
}

func newClient(ctx context.Context) *Client {
	return &Client{
		timeout: DefaultTimeout,
		logger:  ctxlog.FromContext(ctx),
		states:  make(map[string]binding.State),
		waiters: make(map[string]waiter),
		counts:  make(map[notify.Event]int),
	}
}

// addWaiter registers a request under a fresh id.
func (c *Client) addWaiter(lookup bool) (string, chan reply, error) {
	id := strconv.FormatUint(c.nextID.Add(1), 10)
	ch := make(chan reply, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", nil, ErrClosed
	}
	c.waiters[id] = waiter{ch: ch, lookup: lookup}
	return id, ch, nil
}

// takeWaiter removes and returns the waiter for id.
func (c *Client) takeWaiter(id string) (waiter, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.waiters[id]
	delete(c.waiters, id)
	return w, ok
}

func (c *Client) request(ctx context.Context, event string, lookup bool, payload map[string]any) (binding.State, error) {
	id, ch, err := c.addWaiter(lookup)
	if err != nil {
		return binding.State{}, err
	}
	payload["id"] = id

	c.logger.Debug("Emitting event", "event", event, "id", id, "key", payload["key"])
	c.io.Emit(event, payload)

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	select {
	case r := <-ch:
		return r.state, r.err
	case <-ctx.Done():
		c.takeWaiter(id)
		return binding.State{}, fmt.Errorf("timed out waiting for %q on key %v: %w", relay.EventHelp, payload["key"], ctx.Err())
	}
}

// onHelp records pushed states and answers the request the reply's id names.
// Pushes carry no id and never answer a request.
func (c *Client) onHelp(data ...any) {
	var r relay.Reply
	if err := decode(data, &r); err != nil {
		c.logger.Warn("Dropping malformed help event.", "error", err)
		return
	}

	w, answered := waiter{}, false
	if r.ID != "" {
		w, answered = c.takeWaiter(r.ID)
	}
	if !answered || !w.lookup {
		c.mu.Lock()
		c.states[r.Key] = r.State
		c.mu.Unlock()
	}
	if answered {
		w.ch <- reply{state: r.State}
	}
}

func (c *Client) onBindError(data ...any) {
	var f relay.BindFailure
	if err := decode(data, &f); err != nil {
		c.logger.Warn("Dropping malformed bind error.", "error", err)
		return
	}
	if w, ok := c.takeWaiter(f.ID); ok {
		w.ch <- reply{err: &BindError{Key: f.Key, Message: f.Message}}
	}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// decode converts the first event argument into v through JSON.
func decode(data []any, v any) error {
	if len(data) == 0 {
		return errors.New("empty event payload")
	}
	raw, err := json.Marshal(data[0])
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
