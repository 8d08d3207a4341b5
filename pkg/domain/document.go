package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Document is a persisted composition: a root node plus bookkeeping.
type Document struct {
	ID string

	// Root is the top of the configuration tree.
	Root ConfigNode

	// Version increases by one on every committed change.
	Version uint64

	UpdatedAt time.Time
}

// NewDocument creates a document at version zero.
func NewDocument(id string, root ConfigNode) *Document {
	return &Document{
		ID:        id,
		Root:      Normalize(root),
		UpdatedAt: time.Now().UTC(),
	}
}

// ToPlain converts the document into plain data.
func (d *Document) ToPlain(c Codec) (map[string]any, error) {
	root, err := d.Root.ToPlain(c)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", d.ID, err)
	}
	return map[string]any{
		"id":         d.ID,
		"version":    d.Version,
		"updated_at": d.UpdatedAt.Format(time.RFC3339Nano),
		"root":       root,
	}, nil
}

// DocumentFromPlain decodes a document from plain data.
func DocumentFromPlain(data map[string]any, c Codec) (*Document, error) {
	id, _ := data["id"].(string)
	doc := &Document{ID: id}

	switch v := data["version"].(type) {
	case float64:
		doc.Version = uint64(v)
	case int:
		doc.Version = uint64(v)
	case int64:
		doc.Version = uint64(v)
	case uint64:
		doc.Version = v
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("document %s: invalid version: %w", id, err)
		}
		doc.Version = uint64(n)
	}

	if ts, ok := data["updated_at"].(string); ok && ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("document %s: invalid updated_at: %w", id, err)
		}
		doc.UpdatedAt = t
	}

	root, err := FromPlain(data["root"], c)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", id, err)
	}
	doc.Root = root
	return doc, nil
}

// MarshalDocument encodes a document as JSON.
func MarshalDocument(d *Document, c Codec) ([]byte, error) {
	plain, err := d.ToPlain(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(plain)
}

// UnmarshalDocument decodes a JSON document.
func UnmarshalDocument(data []byte, c Codec) (*Document, error) {
	var plain map[string]any
	if err := json.Unmarshal(data, &plain); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return DocumentFromPlain(plain, c)
}
