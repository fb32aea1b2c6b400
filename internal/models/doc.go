// Package models defines the persisted SoulLink record: companions with
// their chat history, album and memories, the shared moments feed, the
// user profile and the tombstone list. JSON names match the record written
// by earlier clients so an exported document stays readable by them.
package models
