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

package persist

import (
	"sync"
	"time"

	"github.com/ligato/cn-infra/logging"
)

// DefaultSaveDelay is the default debounce interval of Saver.
const DefaultSaveDelay = time.Second

// Saver writes snapshots of persistent entries in the background. Several
// triggers within the delay result in a single write.
type Saver struct {
	log      logging.Logger
	path     string
	delay    time.Duration
	snapshot func() []Pair

	trigger chan struct{}
	quit    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewSaver creates saver for the file at path and starts its goroutine.
func NewSaver(log logging.Logger, path string, delay time.Duration, snapshot func() []Pair) *Saver {
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	s := &Saver{
		log:      log,
		path:     path,
		delay:    delay,
		snapshot: snapshot,
		trigger:  make(chan struct{}, 1),
		quit:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Path returns path of the persistence file.
func (s *Saver) Path() string {
	return s.path
}

// Trigger schedules a save. Never blocks.
func (s *Saver) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Close stops the saver, a scheduled save is performed immediately.
func (s *Saver) Close() error {
	s.once.Do(func() {
		close(s.quit)
		s.wg.Wait()
	})
	return nil
}

func (s *Saver) run() {
	defer s.wg.Done()

	var timer <-chan time.Time
	for {
		select {
		case <-s.trigger:
			if timer == nil {
				timer = time.After(s.delay)
			}
		case <-timer:
			timer = nil
			s.save()
		case <-s.quit:
			pending := timer != nil
			select {
			case <-s.trigger:
				pending = true
			default:
			}
			if pending {
				s.save()
			}
			return
		}
	}
}

func (s *Saver) save() {
	pairs := s.snapshot()
	if err := SaveFile(s.path, pairs); err != nil {
		s.log.Errorf("PersistenceWriteError: %v", err)
		return
	}
	s.log.Debugf("saved %d persistent entries to %s", len(pairs), s.path)
}
