// Package client connects the local store to the remote document store.
//
// # Overview
//
// The package provides:
//  1. The RemoteStore contract: one JSON document per user, merge-written
//     at top-level field granularity and observed through a snapshot
//     subscription that also reports the writer's own echo.
//  2. GRPCRemoteStore, which talks to the document server, attaches the
//     user id as metadata, re-establishes broken subscriptions on a fixed
//     interval and maps gRPC status codes to sentinel errors.
//  3. MemoryRemoteStore, an in-process implementation with the same
//     semantics, used for offline mode and tests.
//  4. Local persistence bootstrap (InitDatabase, RunMigrations): an SQLite
//     database with embedded goose migrations.
//
// # Error Handling
//
// Transport conditions are exposed as sentinel errors that callers can match
// with errors.Is: ErrUnavailable, ErrUnauthorized, ErrClosed.
package client
