/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package log is a minimal leveled logger shared by all promptchain packages.
// Output goes to stderr so that command output on stdout stays machine-readable.
package log

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

type LogLevel int32

const (
	DebugLevel LogLevel = iota
	InfoLevel
	ErrorLevel
)

var logLevel atomic.Int32

func init() {
	logLevel.Store(int32(InfoLevel))
}

func SetLogLevel(l LogLevel) {
	logLevel.Store(int32(l))
}

func GetLogLevel() LogLevel {
	return LogLevel(logLevel.Load())
}

func Debug(format string, args ...any) {
	output(DebugLevel, "DEBUG", format, args...)
}

func Info(format string, args ...any) {
	output(InfoLevel, "INFO", format, args...)
}

func Error(format string, args ...any) {
	output(ErrorLevel, "ERROR", format, args...)
}

func output(l LogLevel, tag string, format string, args ...any) {
	if l < GetLogLevel() {
		return
	}
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(os.Stderr, "[%s] %s %s\n", tag, ts, fmt.Sprintf(format, args...))
}
