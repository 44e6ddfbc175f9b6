// Package zap provides the production implementation of log.Logger backed by
// go.uber.org/zap, with an atomic level for runtime verbosity changes.
package zap
