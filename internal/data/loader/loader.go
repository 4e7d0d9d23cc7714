// Package loader reads settings and catalog documents into value trees.
// The surface syntax is chosen from the file extension alone.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gamecfg/internal/data/value"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// maxDepth bounds container nesting in either syntax.
const maxDepth = 512

// Extensions lists the recognised source extensions in lookup order.
var Extensions = []string{".json", ".yaml", ".yml"}

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrParse             = errors.New("parse error")
)

type FormatError struct {
	Path string
	Ext  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: unsupported extension %q (want .json, .yaml or .yml)", e.Path, e.Ext)
}

func (e *FormatError) Is(target error) bool { return target == ErrUnsupportedFormat }

// ParseError carries the underlying parser's diagnostic.
type ParseError struct {
	Path   string
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse %s: %v", e.Path, e.Format, e.Err)
}

func (e *ParseError) Unwrap() error        { return e.Err }
func (e *ParseError) Is(target error) bool { return target == ErrParse }

func FormatFor(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", &FormatError{Path: path, Ext: ext}
}

// Load reads path and parses it. Nothing is returned on failure.
func Load(path string) (value.Value, error) {
	format, err := FormatFor(path)
	if err != nil {
		return value.Value{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return value.Value{}, err
	}
	v, err := Parse(raw, format)
	if err != nil {
		return value.Value{}, &ParseError{Path: path, Format: format, Err: err}
	}
	return v, nil
}

// Parse decodes data in the given syntax. Errors are the parser's own.
func Parse(data []byte, format Format) (value.Value, error) {
	switch format {
	case FormatJSON:
		return parseJSON(data)
	case FormatYAML:
		return parseYAML(data)
	}
	return value.Value{}, fmt.Errorf("unknown format %q", format)
}

// Resolve finds the first existing file named base plus one of Extensions in
// dir. It returns the .json candidate when none exists so the caller reports
// a not-found error against a predictable path.
func Resolve(dir, base string) string {
	for _, ext := range Extensions {
		p := filepath.Join(dir, base+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(dir, base+Extensions[0])
}
