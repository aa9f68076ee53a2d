// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package logger is the process-wide logging shim for hubgate.
//
// It wraps a single *slog.Logger behind package functions so deeply nested
// code can log without a logger threaded through every constructor. Output
// always goes to stderr: the stdio transport owns stdout for the MCP wire
// and must never find log lines mixed into it.
package logger

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/spf13/viper"
)

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(build(slog.LevelInfo))
}

// Initialize configures the logger from the environment: the viper `debug`
// flag lowers the level to debug, and UNSTRUCTURED_LOGS=false switches from
// text lines to JSON.
func Initialize() {
	level := slog.LevelInfo
	if viper.GetBool("debug") {
		level = slog.LevelDebug
	}
	current.Store(build(level))
}

func build(level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if structured() {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// structured reports whether JSON output was requested. Text is the
// default; an unset or malformed UNSTRUCTURED_LOGS keeps it.
func structured() bool {
	unstructured, err := strconv.ParseBool(os.Getenv("UNSTRUCTURED_LOGS"))
	if err != nil {
		return false
	}
	return !unstructured
}

// Get returns the underlying *slog.Logger for injection into structs.
func Get() *slog.Logger {
	return current.Load()
}

// Set replaces the process logger. Intended for tests capturing output.
func Set(l *slog.Logger) {
	current.Store(l)
}

// Debug logs at debug level.
func Debug(msg string) { current.Load().Debug(msg) }

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) { current.Load().Debug(fmt.Sprintf(format, args...)) }

// Debugw logs at debug level with key-value pairs.
func Debugw(msg string, keysAndValues ...any) { current.Load().Debug(msg, keysAndValues...) }

// Info logs at info level.
func Info(msg string) { current.Load().Info(msg) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) { current.Load().Info(fmt.Sprintf(format, args...)) }

// Infow logs at info level with key-value pairs.
func Infow(msg string, keysAndValues ...any) { current.Load().Info(msg, keysAndValues...) }

// Warn logs at warn level.
func Warn(msg string) { current.Load().Warn(msg) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) { current.Load().Warn(fmt.Sprintf(format, args...)) }

// Warnw logs at warn level with key-value pairs.
func Warnw(msg string, keysAndValues ...any) { current.Load().Warn(msg, keysAndValues...) }

// Error logs at error level.
func Error(msg string) { current.Load().Error(msg) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) { current.Load().Error(fmt.Sprintf(format, args...)) }

// Errorw logs at error level with key-value pairs.
func Errorw(msg string, keysAndValues ...any) { current.Load().Error(msg, keysAndValues...) }
