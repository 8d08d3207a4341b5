package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/expr"
)

// Format selects the on-disk encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func (f Format) ext() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// Store implements ports.DocumentStore with one file per document.
// Writes go to a temporary file first and are renamed into place.
type Store struct {
	dir    string
	format Format
	codec  domain.Codec
}

// Option configures the Store.
type Option func(*Store)

// WithFormat sets the file encoding (JSON by default).
func WithFormat(f Format) Option {
	return func(s *Store) {
		s.format = f
	}
}

// WithCodec sets the expression codec.
func WithCodec(c domain.Codec) Option {
	return func(s *Store) {
		s.codec = c
	}
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string, opts ...Option) (*Store, error) {
	s := &Store{dir: dir, format: FormatJSON, codec: expr.Codec{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.format != FormatJSON && s.format != FormatYAML {
		return nil, fmt.Errorf("unsupported format %q", s.format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store dir: %w", err)
	}
	return s, nil
}

func (s *Store) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid document id %q", id)
	}
	return filepath.Join(s.dir, id+s.format.ext()), nil
}

// Save writes the document atomically.
func (s *Store) Save(ctx context.Context, doc *domain.Document) error {
	path, err := s.path(doc.ID)
	if err != nil {
		return err
	}
	data, err := s.encode(doc)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-"+doc.ID+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}
	return nil
}

// Load reads a document.
func (s *Store) Load(ctx context.Context, id string) (*domain.Document, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return s.decode(data)
}

// Delete removes the document file.
func (s *Store) Delete(ctx context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// List returns the ids of the documents in the directory, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != s.format.ext() {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, s.format.ext()))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) encode(doc *domain.Document) ([]byte, error) {
	plain, err := doc.ToPlain(s.codec)
	if err != nil {
		return nil, err
	}
	if s.format == FormatYAML {
		return yaml.Marshal(plain)
	}
	return json.MarshalIndent(plain, "", "  ")
}

func (s *Store) decode(data []byte) (*domain.Document, error) {
	var plain map[string]any
	if s.format == FormatYAML {
		if err := yaml.Unmarshal(data, &plain); err != nil {
			return nil, fmt.Errorf("failed to parse document: %w", err)
		}
	} else if err := json.Unmarshal(data, &plain); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return domain.DocumentFromPlain(plain, s.codec)
}
