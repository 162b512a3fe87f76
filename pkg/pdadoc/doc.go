// Package pdadoc reads and writes pushdown systems, P-automata and solver
// results as structured documents.
//
// All three formats share one document tree. JSON and YAML are parsed with
// gopkg.in/yaml.v3, which keeps mapping keys in document order; the order
// of state and label keys decides the ids they get. CBOR documents store
// every mapping as a tagged sequence of alternating keys and values so that
// the order survives the binary form too.
//
// A PDA document looks like
//
//	{"pda": {
//	  "labels": ["A", "B"],
//	  "states": {
//	    "p": {"A": {"to": "q", "push": "B", "weight": 2}},
//	    "q": {"B": [{"to": "q", "pop": ""}, {"to": "p", "swap": "A"}]}
//	  }
//	}}
//
// where "states" may also be a list, in which case states are numbered and
// "to" holds an index. The label key "*" adds a rule for every label.
//
// A P-automaton document maps each state to its outgoing edges and whether
// it accepts. Control states are keyed by their PDA name; any other key is
// an extra state. Each edge names its target and maps one or more labels to
// a weight, where null means zero and the key "ε" makes an ε-edge:
//
//	{"P-automaton": {"states": {
//	  "p": {"edges": [{"to": "s1", "A": null}], "accepting": false},
//	  "s1": {"edges": [{"to": "s1", "B": 1}], "accepting": true}
//	}}}
//
// "states" may also be a list, where the first entries are the control
// states in id order and "to" holds an index.
package pdadoc

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidDocument is returned for documents that do not describe a PDA,
// an automaton or a result.
var ErrInvalidDocument = errors.New("pdadoc: invalid document")

// Format is a document encoding.
type Format uint8

const (
	JSON Format = iota
	YAML
	CBOR
)

var formatNames = []string{"json", "yaml", "cbor"}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", f)
}

// ParseFormat parses the String form of a format. "yml" is accepted as
// well.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "yml" {
		return YAML, nil
	}
	for i, name := range formatNames {
		if s == name {
			return Format(i), nil
		}
	}
	return JSON, fmt.Errorf("unknown document format %q (want json, yaml or cbor)", s)
}

// FormatForPath guesses the format from a file extension, defaulting to
// JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	case ".cbor":
		return CBOR
	}
	return JSON
}
