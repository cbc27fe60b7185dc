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

package netsync

import "time"

// Update rate limits.
const (
	MinUpdateRate = 10 * time.Millisecond
	MaxUpdateRate = time.Second
)

// Config holds connection manager settings.
type Config struct {
	UpdateRate     time.Duration `json:"update-rate"`
	KeepAlive      time.Duration `json:"keep-alive"`
	ConnectTimeout time.Duration `json:"connect-timeout"`
	ReconnectMin   time.Duration `json:"reconnect-min"`
	ReconnectMax   time.Duration `json:"reconnect-max"`
	WriteTimeout   time.Duration `json:"write-timeout"`
}

// DefaultConfig returns default connection manager settings.
func DefaultConfig() Config {
	return Config{
		UpdateRate:     100 * time.Millisecond,
		KeepAlive:      time.Second,
		ConnectTimeout: time.Second,
		ReconnectMin:   500 * time.Millisecond,
		ReconnectMax:   5 * time.Second,
		WriteTimeout:   5 * time.Second,
	}
}

// ClampUpdateRate limits the flush period to [MinUpdateRate, MaxUpdateRate].
func ClampUpdateRate(rate time.Duration) time.Duration {
	if rate < MinUpdateRate {
		return MinUpdateRate
	}
	if rate > MaxUpdateRate {
		return MaxUpdateRate
	}
	return rate
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.UpdateRate == 0 {
		c.UpdateRate = def.UpdateRate
	}
	c.UpdateRate = ClampUpdateRate(c.UpdateRate)
	if c.KeepAlive <= 0 {
		c.KeepAlive = def.KeepAlive
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.ReconnectMin <= 0 {
		c.ReconnectMin = def.ReconnectMin
	}
	if c.ReconnectMax < c.ReconnectMin {
		c.ReconnectMax = def.ReconnectMax
		if c.ReconnectMax < c.ReconnectMin {
			c.ReconnectMax = c.ReconnectMin
		}
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	return c
}
