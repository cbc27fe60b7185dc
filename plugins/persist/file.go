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
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// WriteError is returned when the persistence file cannot be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("persistence write to %s failed: %v", e.Path, e.Err)
}

// Cause returns the underlying error.
func (e *WriteError) Cause() error {
	return e.Err
}

// LoadFile reads pairs from the file at path. When the file is missing but
// its backup exists, the backup is loaded instead.
func LoadFile(path string) ([]Pair, []string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		var bakErr error
		if f, bakErr = os.Open(path + ".bak"); bakErr != nil {
			return nil, nil, err
		}
	} else if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	pairs, warnings, err := Load(f)
	if f.Name() != path {
		warnings = append([]string{"restored from backup " + f.Name()}, warnings...)
	}
	return pairs, warnings, err
}

// SaveFile atomically replaces the file at path. Data are written into
// path.tmp and synced, the previous content is kept as path.bak.
func SaveFile(path string, pairs []Pair) (err error) {
	defer func() {
		if err != nil {
			reportSaveFailed()
			err = &WriteError{Path: path, Err: err}
		} else {
			reportSaved(len(pairs))
		}
	}()

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if err = Save(f, pairs); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrap(err, "writing temporary file failed")
	}
	if err = f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrap(err, "syncing temporary file failed")
	}
	if err = f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		if err = backup(path, path+".bak"); err != nil {
			os.Remove(tmp)
			return errors.Wrap(err, "creating backup failed")
		}
	}
	// path always refers to a complete file, rename replaces it atomically
	if err = os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "replacing persistence file failed")
	}
	return nil
}

// backup makes bak refer to the current content of path, leaving path
// in place. A hard link is used when possible, a copy otherwise.
func backup(path, bak string) error {
	if err := os.Remove(bak); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Link(path, bak); err == nil {
		return nil
	}
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.OpenFile(bak, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
