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
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ligato/nt-agent/plugins/ntable/api"
)

// Header is written as the first line of every persistence file.
const Header = "[NetworkTables Storage 3.0]"

// Pair is a single persisted entry.
type Pair struct {
	Name  string
	Value *api.Value
}

// Save writes pairs sorted by name in the persistence text format.
func Save(w io.Writer, pairs []Pair) error {
	sorted := append([]Pair{}, pairs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, Header); err != nil {
		return err
	}
	for _, p := range sorted {
		if p.Value == nil {
			continue
		}
		line := strconv.Quote(p.Name) + " " + p.Value.Type().String()
		if text := formatValue(p.Value); text != "" {
			line += " " + text
		}
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func formatValue(v *api.Value) string {
	switch v.Type() {
	case api.Boolean:
		return strconv.FormatBool(v.GetBoolean())
	case api.Double:
		return strconv.FormatFloat(v.GetDouble(), 'g', -1, 64)
	case api.String:
		return strconv.Quote(v.GetString())
	case api.Raw:
		return base64.StdEncoding.EncodeToString(v.GetRaw())
	case api.BooleanArray:
		var elems []string
		for _, b := range v.GetBooleanArray() {
			elems = append(elems, strconv.FormatBool(b))
		}
		return strings.Join(elems, ",")
	case api.DoubleArray:
		var elems []string
		for _, d := range v.GetDoubleArray() {
			elems = append(elems, strconv.FormatFloat(d, 'g', -1, 64))
		}
		return strings.Join(elems, ",")
	case api.StringArray:
		var elems []string
		for _, s := range v.GetStringArray() {
			elems = append(elems, strconv.Quote(s))
		}
		return strings.Join(elems, ",")
	}
	return ""
}

// Load parses persistence text format. Malformed lines are skipped and
// reported in warnings, only read failures are returned as error.
func Load(r io.Reader) (pairs []Pair, warnings []string, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16<<20)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
			if line == Header {
				continue
			}
		}
		if line == "" || line[0] == ';' || line[0] == '#' {
			continue
		}
		pair, perr := parseLine(line)
		if perr != nil {
			warnings = append(warnings, fmt.Sprintf("line %d: %v", lineNum, perr))
			continue
		}
		pairs = append(pairs, pair)
	}
	if err := scanner.Err(); err != nil {
		return pairs, warnings, errors.Wrap(err, "reading persistence data failed")
	}
	reportLoadWarnings(len(warnings))
	return pairs, warnings, nil
}

func parseLine(line string) (Pair, error) {
	if line[0] != '"' {
		return Pair{}, errors.New("expected quoted entry name")
	}
	name, rest, err := unquotePrefix(line)
	if err != nil {
		return Pair{}, errors.Wrap(err, "invalid entry name")
	}
	if name == "" {
		return Pair{}, errors.New("empty entry name")
	}
	if rest == "" || rest[0] != ' ' && rest[0] != '\t' {
		return Pair{}, errors.New("missing value type")
	}
	rest = strings.TrimLeft(rest, " \t")
	typeName := rest
	text := ""
	if i := strings.IndexAny(rest, " \t"); i >= 0 {
		typeName = rest[:i]
		text = strings.TrimSpace(rest[i:])
	}
	typ, err := api.ParseType(typeName)
	if err != nil {
		return Pair{}, err
	}
	value, err := parseValue(typ, text)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Name: name, Value: value}, nil
}

func parseValue(typ api.Type, text string) (*api.Value, error) {
	switch typ {
	case api.String:
		s, rest, err := unquotePrefix(text)
		if err != nil {
			return nil, errors.Wrap(err, "invalid string")
		}
		if strings.TrimSpace(rest) != "" {
			return nil, errors.New("unexpected data after string")
		}
		return api.StringValue(s), nil
	case api.StringArray:
		var elems []string
		for text != "" {
			s, rest, err := unquotePrefix(text)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid string at index %d", len(elems))
			}
			elems = append(elems, s)
			rest = strings.TrimSpace(rest)
			if rest == "" {
				break
			}
			if rest[0] != ',' {
				return nil, errors.Errorf("expected ',' after index %d", len(elems)-1)
			}
			text = strings.TrimSpace(rest[1:])
			if text == "" {
				return nil, errors.New("trailing ','")
			}
		}
		return api.StringArrayValue(elems), nil
	case api.Boolean, api.Double, api.Raw, api.BooleanArray, api.DoubleArray:
		if text == "" && typ&(api.Boolean|api.Double) != 0 {
			return nil, errors.Errorf("missing %v value", typ)
		}
		return api.ParseValue(typ, text)
	}
	return nil, errors.Errorf("unsupported type %v", typ)
}

// unquotePrefix unquotes the Go string literal at the beginning of s and
// returns the rest of s.
func unquotePrefix(s string) (string, string, error) {
	if s == "" || s[0] != '"' {
		return "", s, errors.New("expected '\"'")
	}
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			unquoted, err := strconv.Unquote(s[:i+1])
			if err != nil {
				return "", s, err
			}
			return unquoted, s[i+1:], nil
		}
	}
	return "", s, errors.New("unterminated string")
}
