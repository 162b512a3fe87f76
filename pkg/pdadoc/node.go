package pdadoc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"math"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// orderedMapTag marks a CBOR array of alternating keys and values.
const orderedMapTag = 39999

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func str(s string) *yaml.Node    { return scalar("!!str", s) }
func integer(v int64) *yaml.Node { return scalar("!!int", strconv.FormatInt(v, 10)) }
func null() *yaml.Node           { return scalar("!!null", "null") }
func boolean(b bool) *yaml.Node  { return scalar("!!bool", strconv.FormatBool(b)) }

func mapping(kv ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: kv}
}

func sequence(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
}

// tuple is a sequence written on one line.
func tuple(items ...*yaml.Node) *yaml.Node {
	n := sequence(items...)
	n.Style = yaml.FlowStyle
	return n
}

func invalid(n *yaml.Node, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if n != nil && n.Line > 0 {
		return fmt.Errorf("%w: line %d: %s", ErrInvalidDocument, n.Line, msg)
	}
	return fmt.Errorf("%w: %s", ErrInvalidDocument, msg)
}

// pairs yields the key/value pairs of a mapping.
func pairs(n *yaml.Node) iter.Seq2[*yaml.Node, *yaml.Node] {
	return func(yield func(*yaml.Node, *yaml.Node) bool) {
		for i := 0; i+1 < len(n.Content); i += 2 {
			if !yield(n.Content[i], n.Content[i+1]) {
				return
			}
		}
	}
}

// lookup returns the value of key in a mapping, or nil.
func lookup(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for k, v := range pairs(n) {
		if k.Value == key {
			return v
		}
	}
	return nil
}

func expect(n *yaml.Node, kind yaml.Kind, what string) error {
	if n == nil {
		return invalid(nil, "missing %s", what)
	}
	if n.Kind != kind {
		return invalid(n, "%s must be a %s", what, kindName(kind))
	}
	return nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "list"
	case yaml.ScalarNode:
		return "scalar"
	}
	return "node"
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func isInt(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!int"
}

func int64Of(n *yaml.Node) (int64, error) {
	if !isInt(n) {
		return 0, invalid(n, "%q is not an integer", n.Value)
	}
	v, err := strconv.ParseInt(n.Value, 0, 64)
	if err != nil {
		return 0, invalid(n, "%q: %v", n.Value, err)
	}
	return v, nil
}

func boolOf(n *yaml.Node) (bool, error) {
	if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!bool" {
		return false, invalid(n, "%q is not a boolean", n.Value)
	}
	b, err := strconv.ParseBool(n.Value)
	if err != nil {
		return false, invalid(n, "%q: %v", n.Value, err)
	}
	return b, nil
}

// readNode parses a whole document into its root node.
func readNode(r io.Reader, f Format) (*yaml.Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s document: %w", f, err)
	}
	switch f {
	case JSON, YAML:
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
			return nil, invalid(nil, "empty %s document", f)
		}
		return resolveAliases(doc.Content[0]), nil
	case CBOR:
		var v any
		if err := cbor.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		return fromCBOR(v)
	}
	return nil, fmt.Errorf("unknown document format %d", f)
}

func resolveAliases(n *yaml.Node) *yaml.Node {
	if n.Kind == yaml.AliasNode {
		return resolveAliases(n.Alias)
	}
	for i, c := range n.Content {
		n.Content[i] = resolveAliases(c)
	}
	return n
}

// writeNode writes root in the given format.
func writeNode(w io.Writer, root *yaml.Node, f Format) error {
	switch f {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(root); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case JSON:
		bw := bufio.NewWriter(w)
		if err := writeJSON(bw, root, 0); err != nil {
			return err
		}
		bw.WriteByte('\n')
		return bw.Flush()
	case CBOR:
		v, err := toCBOR(root)
		if err != nil {
			return err
		}
		data, err := cbor.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode cbor: %w", err)
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("unknown document format %d", f)
}

// writeJSON renders a node tree as indented JSON. Flow-style sequences
// stay on one line.
func writeJSON(w *bufio.Writer, n *yaml.Node, depth int) error {
	indent := func(d int) {
		w.WriteByte('\n')
		w.WriteString(strings.Repeat("  ", d))
	}
	switch n.Kind {
	case yaml.MappingNode:
		if len(n.Content) == 0 {
			w.WriteString("{}")
			return nil
		}
		w.WriteByte('{')
		first := true
		for k, v := range pairs(n) {
			if !first {
				w.WriteByte(',')
			}
			first = false
			indent(depth + 1)
			if err := writeJSONString(w, k.Value); err != nil {
				return err
			}
			w.WriteString(": ")
			if err := writeJSON(w, v, depth+1); err != nil {
				return err
			}
		}
		indent(depth)
		w.WriteByte('}')
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			w.WriteString("[]")
			return nil
		}
		flow := n.Style&yaml.FlowStyle != 0
		w.WriteByte('[')
		for i, c := range n.Content {
			if i > 0 {
				w.WriteByte(',')
				if flow {
					w.WriteByte(' ')
				}
			}
			if !flow {
				indent(depth + 1)
			}
			if err := writeJSON(w, c, depth+1); err != nil {
				return err
			}
		}
		if !flow {
			indent(depth)
		}
		w.WriteByte(']')
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!int", "!!float":
			w.WriteString(n.Value)
		case "!!bool":
			w.WriteString(strconv.FormatBool(strings.EqualFold(n.Value, "true")))
		case "!!null":
			w.WriteString("null")
		default:
			return writeJSONString(w, n.Value)
		}
	case yaml.DocumentNode:
		if len(n.Content) > 0 {
			return writeJSON(w, n.Content[0], depth)
		}
	case yaml.AliasNode:
		return writeJSON(w, n.Alias, depth)
	}
	return nil
}

func writeJSONString(w *bufio.Writer, s string) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func toCBOR(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return toCBOR(n.Content[0])
	case yaml.AliasNode:
		return toCBOR(n.Alias)
	case yaml.MappingNode, yaml.SequenceNode:
		items := make([]any, len(n.Content))
		for i, c := range n.Content {
			v, err := toCBOR(c)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		if n.Kind == yaml.MappingNode {
			return cbor.Tag{Number: orderedMapTag, Content: items}, nil
		}
		return items, nil
	}
	switch n.ShortTag() {
	case "!!int":
		v, err := int64Of(n)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "!!bool":
		return strings.EqualFold(n.Value, "true"), nil
	case "!!null":
		return nil, nil
	case "!!float":
		v, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, invalid(n, "%q: %v", n.Value, err)
		}
		return v, nil
	}
	return n.Value, nil
}

func fromCBOR(v any) (*yaml.Node, error) {
	switch v := v.(type) {
	case cbor.Tag:
		if v.Number != orderedMapTag {
			return nil, invalid(nil, "unexpected cbor tag %d", v.Number)
		}
		items, ok := v.Content.([]any)
		if !ok || len(items)%2 != 0 {
			return nil, invalid(nil, "malformed cbor mapping")
		}
		m := mapping()
		for i := 0; i < len(items); i += 2 {
			key, ok := items[i].(string)
			if !ok {
				return nil, invalid(nil, "cbor mapping key %v is not a string", items[i])
			}
			val, err := fromCBOR(items[i+1])
			if err != nil {
				return nil, err
			}
			m.Content = append(m.Content, str(key), val)
		}
		return m, nil
	case []any:
		s := sequence()
		for _, item := range v {
			c, err := fromCBOR(item)
			if err != nil {
				return nil, err
			}
			s.Content = append(s.Content, c)
		}
		return s, nil
	case string:
		return str(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, invalid(nil, "integer %d out of range", v)
		}
		return integer(int64(v)), nil
	case int64:
		return integer(v), nil
	case bool:
		return boolean(v), nil
	case nil:
		return null(), nil
	case float64:
		return scalar("!!float", strconv.FormatFloat(v, 'g', -1, 64)), nil
	}
	return nil, invalid(nil, "unsupported cbor value of type %T", v)
}
