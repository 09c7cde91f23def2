// Package utils collects small cross-cutting helpers — logging glue and
// panic containment — shared by cmd/ and internal/server.
package utils

import (
	"go.uber.org/zap"
)

// LogError logs err at Error level with msg and any extra fields
// attached, so call sites read the same way throughout the repo.
func LogError(logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	allFields := append([]zap.Field{zap.Error(err)}, fields...)
	logger.Error(msg, allFields...)
}

// HandlePanic recovers a panic on the calling goroutine and logs it
// rather than letting it crash the process. Every per-connection
// goroutine defers this first, so a fault on one connection can never
// take down any other connection or the process itself.
func HandlePanic(logger *zap.Logger) {
	if r := recover(); r != nil {
		logger.Error("recovered from panic", zap.Any("panic", r))
	}
}
