// Copyright (c) 2018 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ntcore

import (
	"strconv"
	"strings"
	"sync"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"
	lg "github.com/sirupsen/logrus"
)

// LogLevel is a NetworkTables log level. Higher is more severe.
type LogLevel uint

// Log levels passed to LogFunc.
const (
	LogCritical LogLevel = 50
	LogError    LogLevel = 40
	LogWarning  LogLevel = 30
	LogInfo     LogLevel = 20
	LogDebug    LogLevel = 10
)

// LogFunc receives log messages of the table.
type LogFunc func(level LogLevel, file string, line int, msg string)

// hookable is implemented by the cn-infra logrus logger.
type hookable interface {
	logging.Logger
	AddHook(hook lg.Hook)
}

// logHook forwards logrus entries to the LogFunc set by SetLogger.
type logHook struct {
	mu       sync.RWMutex
	callback LogFunc
	minLevel LogLevel
}

func (h *logHook) Levels() []lg.Level {
	return lg.AllLevels
}

func (h *logHook) Fire(entry *lg.Entry) error {
	h.mu.RLock()
	callback, minLevel := h.callback, h.minLevel
	h.mu.RUnlock()

	level := toLogLevel(entry.Level)
	if callback == nil || level < minLevel {
		return nil
	}
	file, line := location(entry.Data)
	callback(level, file, line, entry.Message)
	return nil
}

func toLogLevel(level lg.Level) LogLevel {
	switch level {
	case lg.PanicLevel, lg.FatalLevel:
		return LogCritical
	case lg.ErrorLevel:
		return LogError
	case lg.WarnLevel:
		return LogWarning
	case lg.InfoLevel:
		return LogInfo
	}
	return LogDebug
}

// location parses "loc" field added by the cn-infra logger,
// formatted either as "file(line)" or "file:line".
func location(data lg.Fields) (string, int) {
	loc, ok := data["loc"].(string)
	if !ok || loc == "" {
		return "", 0
	}
	loc = strings.TrimSuffix(loc, ")")
	i := strings.LastIndexAny(loc, "(:")
	if i < 0 {
		return loc, 0
	}
	line, err := strconv.Atoi(loc[i+1:])
	if err != nil {
		return loc, 0
	}
	return loc[:i], line
}

// SetLogger forwards log messages with level at least minLevel to callback.
// Passing nil callback stops forwarding.
func (p *Plugin) SetLogger(callback LogFunc, minLevel LogLevel) error {
	logger, ok := p.Log.(hookable)
	if !ok {
		registered, found := logging.DefaultRegistry.Lookup(p.String())
		if logger, ok = registered.(hookable); !found || !ok {
			return errors.Errorf("logger of %s does not support hooks", p.String())
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.logHook == nil {
		p.logHook = &logHook{}
		logger.AddHook(p.logHook)
	}
	p.logHook.mu.Lock()
	p.logHook.callback = callback
	p.logHook.minLevel = minLevel
	p.logHook.mu.Unlock()

	if callback != nil && minLevel <= LogDebug && logger.GetLevel() < logging.DebugLevel {
		logger.SetLevel(logging.DebugLevel)
	}
	return nil
}
