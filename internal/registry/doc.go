// Package registry provides the help registry: the in-memory help database,
// the active locale, the global visibility flag, the help templates and the
// notification channel that keeps bindings synchronized.
//
// # Lookup
//
// When a locale is active and the database holds an entry for it, Lookup reads
// only from that locale's table. It never falls back to the unlocalized entry:
// each locale is a separate namespace, and a key missing from the active
// locale is reported as absent even if it exists at the top level. Without an
// active locale, or when the locale has no entry, Lookup reads the top level.
//
// # Notifications
//
// Every mutation commits under the registry lock and then publishes exactly
// one notification after the lock is released, so subscribers can query the
// registry from inside their handlers:
//
//   - SetVisible and ToggleVisible publish notify.ToggleVisibility
//   - SetLocale publishes notify.LocaleChanged
//   - LoadDatabase publishes notify.DatabaseChanged once the merge is done
//   - AddEntry publishes notify.DatabaseUpdated carrying the key
//
// # Loading
//
// LoadDatabase always resolves its source on a separate goroutine, even when
// the value is already available, so the notification never fires on the
// caller's stack. A failed source produces a *LoadError on the returned Load
// handle; nothing is merged and nothing is published. Overlapping loads are
// applied in the order they resolve.
//
// # Lifecycle
//
//  1. **Created** by New with an initial-database provider, called exactly once
//  2. **Populated** asynchronously from that provider; Ready waits for it
//  3. **Mutated** by setters, AddEntry and further LoadDatabase calls
//  4. **Discarded** with its owner; there is nothing to close
package registry
