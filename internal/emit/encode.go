package emit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/toyz/spectra/internal/errors"
	"github.com/toyz/spectra/internal/ir"
)

// Output formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats lists the supported output formats
var Formats = []string{FormatJSON, FormatYAML}

// Encode writes the document in the given format
func Encode(w io.Writer, doc *ir.Document, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		return EncodeJSON(w, doc)
	case FormatYAML, "yml":
		return EncodeYAML(w, doc)
	}
	return errors.WrapEmitError("encode", fmt.Errorf("unsupported format: %s (supported: json, yaml)", format))
}

// Render returns the encoded document
func Render(doc *ir.Document, format string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeYAML writes the document as YAML with a two-space indent
func EncodeYAML(w io.Writer, doc *ir.Document) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(Build(doc)); err != nil {
		return errors.WrapEmitError("encode YAML", err)
	}
	if err := encoder.Close(); err != nil {
		return errors.WrapEmitError("encode YAML", err)
	}
	return nil
}

// EncodeJSON writes the document as indented JSON. It walks the ordered node
// tree because encoding/json would sort map keys.
func EncodeJSON(w io.Writer, doc *ir.Document) error {
	var buf bytes.Buffer
	if err := writeJSON(&buf, Build(doc), 0); err != nil {
		return errors.WrapEmitError("encode JSON", err)
	}
	buf.WriteByte('\n')
	if _, err := w.Write(buf.Bytes()); err != nil {
		return errors.WrapEmitError("write", err)
	}
	return nil
}

func writeJSON(buf *bytes.Buffer, n *yaml.Node, depth int) error {
	switch n.Kind {
	case yaml.MappingNode:
		if len(n.Content) == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteString("{\n")
		for i := 0; i+1 < len(n.Content); i += 2 {
			indent(buf, depth+1)
			if err := writeString(buf, n.Content[i].Value); err != nil {
				return err
			}
			buf.WriteString(": ")
			if err := writeJSON(buf, n.Content[i+1], depth+1); err != nil {
				return err
			}
			if i+2 < len(n.Content) {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		indent(buf, depth)
		buf.WriteByte('}')
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteString("[\n")
		for i, item := range n.Content {
			indent(buf, depth+1)
			if err := writeJSON(buf, item, depth+1); err != nil {
				return err
			}
			if i+1 < len(n.Content) {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		indent(buf, depth)
		buf.WriteByte(']')
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!bool", "!!int", "!!float":
			buf.WriteString(n.Value)
		case "!!null":
			buf.WriteString("null")
		default:
			return writeString(buf, n.Value)
		}
	default:
		return fmt.Errorf("unexpected node kind %d", n.Kind)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	var out bytes.Buffer
	encoder := json.NewEncoder(&out)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(out.Bytes(), "\n"))
	return nil
}

func indent(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
}
