// Package xmltree converts XML documents into the same nested Record shape the
// text grammars produce, so both can be addressed by mapping paths.
//
// Conversion rules:
//
//   - The result has one key, the root element tag.
//   - Attributes become keys prefixed with "@" ("@name").
//   - Element text becomes the "__value" key when the element also has
//     attributes or children; a bare text element is replaced by its value.
//   - A child tag seen once is stored as a value, a repeated tag as []any in
//     document order.
//   - With Convert set, numeric text is turned into int, float64, []int or
//     []float64.
package xmltree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/ianaindex"

	"simulation-parsers/internal/grammar"
)

// Default keys.
const (
	AttrPrefix = "@"
	ValueKey   = "__value"
)

// ErrEmptyDocument is returned for input without a root element.
var ErrEmptyDocument = errors.New("xmltree: no root element")

// Options tunes the conversion.
type Options struct {
	Convert bool // convert numeric text and attribute values
}

// ParseFile reads and converts the file at path.
func ParseFile(path string, opts Options) (grammar.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f, opts)
}

// ParseBytes converts an in-memory document.
func ParseBytes(data []byte, opts Options) (grammar.Record, error) {
	return Parse(bytes.NewReader(data), opts)
}

type element struct {
	tag      string
	attrs    []xml.Attr
	text     strings.Builder
	order    []string
	children map[string][]any
}

func (e *element) add(tag string, v any) {
	if e.children == nil {
		e.children = map[string][]any{}
	}

	if _, seen := e.children[tag]; !seen {
		e.order = append(e.order, tag)
	}

	e.children[tag] = append(e.children[tag], v)
}

// Parse converts the XML document read from r.
func Parse(r io.Reader, opts Options) (grammar.Record, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var (
		stack []*element
		root  grammar.Record
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("xmltree: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, &element{tag: t.Name.Local, attrs: t.Attr})
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("xmltree: unexpected end element %q", t.Name.Local)
			}

			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			val := cur.value(opts)

			if len(stack) == 0 {
				root = grammar.Record{cur.tag: val}
			} else {
				stack[len(stack)-1].add(cur.tag, val)
			}
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("xmltree: unclosed element %q", stack[len(stack)-1].tag)
	}

	if root == nil {
		return nil, ErrEmptyDocument
	}

	return root, nil
}

// charsetReader decodes the non UTF-8 encodings vasprun.xml declares
// (ISO-8859-1 in practice).
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, err
	}

	if enc == nil {
		return nil, fmt.Errorf("xmltree: unsupported charset %q", label)
	}

	return enc.NewDecoder().Reader(input), nil
}

func (e *element) value(opts Options) any {
	text := strings.TrimSpace(e.text.String())

	if len(e.attrs) == 0 && len(e.order) == 0 {
		return scalar(text, opts)
	}

	rec := make(grammar.Record, len(e.attrs)+len(e.order)+1)

	for _, a := range e.attrs {
		rec[AttrPrefix+a.Name.Local] = scalar(strings.TrimSpace(a.Value), opts)
	}

	for _, tag := range e.order {
		vals := e.children[tag]
		if len(vals) == 1 {
			rec[tag] = vals[0]
		} else {
			rec[tag] = vals
		}
	}

	if text != "" {
		rec[ValueKey] = scalar(text, opts)
	}

	return rec
}

func scalar(text string, opts Options) any {
	if !opts.Convert || text == "" {
		return text
	}

	if v, ok := Numbers(text); ok {
		return v
	}

	return text
}

// Numbers converts whitespace separated numeric text. Integers are preferred;
// any non-integer token makes the whole value float. ok is false when a token
// is not a number.
func Numbers(text string) (any, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, false
	}

	ints := make([]int, len(fields))
	isInt := true

	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			isInt = false
			break
		}

		ints[i] = v
	}

	if isInt {
		if len(ints) == 1 {
			return ints[0], true
		}

		return ints, true
	}

	floats := make([]float64, len(fields))

	for i, f := range fields {
		v, err := grammar.ParseFloat(f)
		if err != nil {
			return nil, false
		}

		floats[i] = v
	}

	if len(floats) == 1 {
		return floats[0], true
	}

	return floats, true
}
