// Package app wires the help registry to its surroundings: the help files it
// is loaded from, the file watcher, the HTTP API and the socket.io relay. It
// is decoupled from any specific entrypoint like a CLI.
package app
