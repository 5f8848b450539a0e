// Package document reads source documents into plain text for extraction.
package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gyeh/claimforge/internal/normalize"
)

// ErrUnsupportedType is returned for files no parser handles.
var ErrUnsupportedType = errors.New("unsupported document type")

// Metadata keys set by TextParser.
const (
	MetaFileName = "file_name"
	MetaFileSize = "file_size"
	MetaModTime  = "mod_time"
)

// Document is a parsed source file. Only Text feeds the pipeline; the rest
// identifies the source in reports.
type Document struct {
	Path             string            `json:"path"`
	Text             string            `json:"text"`
	Type             string            `json:"type"`
	ExtractionMethod string            `json:"extraction_method"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	SHA256           string            `json:"sha256"`
}

// Parser turns a file into a Document.
type Parser interface {
	Parse(ctx context.Context, path string) (*Document, error)
}

var textTypes = map[string]string{
	".txt":  "text",
	".text": "text",
	".md":   "markdown",
}

// IsSupported reports whether path has an extension TextParser reads.
func IsSupported(path string) bool {
	_, ok := textTypes[strings.ToLower(filepath.Ext(path))]
	return ok
}

// TextParser reads UTF-8 text and markdown files.
type TextParser struct{}

// Parse reads path. Invalid UTF-8 sequences are replaced rather than
// rejected.
func (TextParser) Parse(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	typ, ok := textTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(path))
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat document: %w", err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}

	return &Document{
		Path:             path,
		Text:             text,
		Type:             typ,
		ExtractionMethod: "direct_read",
		SHA256:           normalize.TextHash(string(data)),
		Metadata: map[string]string{
			MetaFileName: filepath.Base(path),
			MetaFileSize: fmt.Sprintf("%d", stat.Size()),
			MetaModTime:  stat.ModTime().UTC().Format(time.RFC3339),
		},
	}, nil
}

// FromText wraps in-memory text as a Document.
func FromText(name, text string) *Document {
	return &Document{
		Path:             name,
		Text:             text,
		Type:             "text",
		ExtractionMethod: "in_memory",
		SHA256:           normalize.TextHash(text),
		Metadata:         map[string]string{MetaFileName: filepath.Base(name)},
	}
}

// Discover lists the supported files directly under dir in name order.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsSupported(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
