// Package parsers is the registry of supported codes. A code is selected by
// name or detected from the main file name and its first bytes.
package parsers

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"

	"simulation-parsers/internal/diagnostic"
	"simulation-parsers/internal/mapping"
	"simulation-parsers/internal/match"
	"simulation-parsers/internal/orchestrate"
	"simulation-parsers/internal/readers"
	"simulation-parsers/internal/readers/exciting"
	"simulation-parsers/internal/readers/fhiaims"
	"simulation-parsers/internal/readers/vasp"
)

// headSize is the number of leading bytes content patterns are matched
// against.
const headSize = 64 * 1024

// Parser reads one main file per Parse call.
type Parser interface {
	Parse(mainfile string) (*orchestrate.Result, error)
	RuleSet() *mapping.RuleSet
	Transforms() *mapping.TransformRegistry
}

// Code describes a supported simulation code.
type Code struct {
	Name     string
	Homepage string
	// Mainfile matches the base name of main files.
	Mainfile *regexp.Regexp
	// Contents matches the head of main files.
	Contents *regexp.Regexp
	// Rules is the embedded rule file of the reader.
	Rules func() []byte
	New   func(readers.Options) (Parser, error)
}

// ErrUnknownCode is returned by Lookup for a name that is not registered.
var ErrUnknownCode = errors.New("unknown code")

// ErrNotDetected is returned by Detect when no code matches a file.
var ErrNotDetected = errors.New("no code matches the file")

var codes = []Code{
	{
		Name:     exciting.Name,
		Homepage: "http://exciting-code.org/",
		Mainfile: regexp.MustCompile(`^.*\.OUT(\.[^/]*)?$`),
		Contents: regexp.MustCompile(`EXCITING.*started`),
		Rules:    exciting.Rules,
		New: func(o readers.Options) (Parser, error) {
			return exciting.New(o)
		},
	},
	{
		Name:     fhiaims.Name,
		Homepage: "https://fhi-aims.org/",
		Mainfile: regexp.MustCompile(`.*`),
		Contents: regexp.MustCompile(`(?s)Invoking FHI-aims.*FHI-aims version`),
		Rules:    fhiaims.Rules,
		New: func(o readers.Options) (Parser, error) {
			return fhiaims.New(o)
		},
	},
	{
		Name:     vasp.Name,
		Homepage: "https://www.vasp.at/",
		Mainfile: regexp.MustCompile(`(?i)^(vasprun.*\.xml.*|.*outcar.*)$`),
		Contents: regexp.MustCompile(`(?s)^\s*(<\?xml[^>]*\?>\s*<modeling>|vasp\.\d)`),
		Rules:    vasp.Rules,
		New: func(o readers.Options) (Parser, error) {
			return vasp.New(o)
		},
	},
}

// Codes returns the registered codes.
func Codes() []Code {
	out := make([]Code, len(codes))
	copy(out, codes)

	return out
}

// Names returns the names of the registered codes.
func Names() []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = c.Name
	}

	return out
}

// Lookup returns the code called name, ignoring case.
func Lookup(name string) (Code, error) {
	for _, c := range codes {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}

	err := fmt.Errorf("%w %q", ErrUnknownCode, name)
	if s := match.Suggest(name, Names(), 1); len(s) > 0 {
		err = fmt.Errorf("%w, did you mean %q?", err, s[0])
	}

	return Code{}, err
}

// Match reports whether the code reads a main file with base name name and
// leading content head.
func (c Code) Match(name string, head []byte) bool {
	return c.Mainfile.MatchString(name) && c.Contents.Match(head)
}

// Detect returns the first code whose patterns match the file at path.
func Detect(fs afero.Fs, path string) (Code, error) {
	f, err := fs.Open(path)
	if err != nil {
		return Code{}, err
	}
	defer f.Close()

	head := make([]byte, headSize)

	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Code{}, err
	}

	head = head[:n]
	name := filepath.Base(path)

	for _, c := range codes {
		if c.Match(name, head) {
			return c, nil
		}
	}

	return Code{}, fmt.Errorf("%s: %w", path, ErrNotDetected)
}

// Check validates a rule file against the archive schema and the transforms
// of the code.
func (c Code) Check(rules []byte) (*diagnostic.Diagnostics, error) {
	rs, err := mapping.Load(rules)
	if err != nil {
		return nil, err
	}

	p, err := c.New(readers.Options{Fs: afero.NewMemMapFs()})
	if err != nil {
		return nil, err
	}

	return mapping.Validate(rs, readers.Graph, p.Transforms()), nil
}
