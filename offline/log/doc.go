// Package log defines the structured logging contract for lib-offline.
//
// It carries only the interface, level and field types; concrete backends
// live in sibling packages such as zap.
package log
