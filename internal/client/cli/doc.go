// Package cli provides the interactive SoulLink client.
//
// It wires configuration, the local SQLite record, the remote document
// store, the reply generator and the store, then runs a REPL over them.
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See NewApp, StartOnlineStatusWatcher and runREPL for details.
package cli
