// Package syncqueue provides a durable, ordered queue of user actions
// performed while the device is offline.
//
// Actions are captured immediately and replayed in insertion order once
// connectivity returns. Each action carries its own retry budget; actions
// that exhaust it move to a failed partition which can be retried on demand.
// Handlers are expected to be idempotent, since an action whose persist
// raced a crash may run more than once.
package syncqueue
