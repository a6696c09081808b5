// Package state persists one opaque record per Telegram user.
//
// Records are raw bytes; callers own the encoding. Stores are safe for
// concurrent use across different users. Updates for the same user are
// expected to be serialized by the caller.
package state
