// Package layoutfile reads and writes the layout file a user downloads or
// uploads: a versioned JSON envelope around the item list.
package layoutfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fieldplanner/planner/internal/planner"
)

// Version is written into every exported file.
const Version = 1

// DefaultFilename is the suggested download name.
const DefaultFilename = "field-layout.json"

// Envelope is the file format. Older files carry savedAt instead of
// exportedAt.
type Envelope struct {
	Version    int                  `json:"version"`
	ExportedAt string               `json:"exportedAt,omitempty"`
	SavedAt    string               `json:"savedAt,omitempty"`
	Items      []planner.PlacedItem `json:"items"`
}

// FormatError reports an upload that is not a layout file.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return "invalid layout file: " + e.Reason + ": " + e.Err.Error()
	}
	return "invalid layout file: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

// Export writes items wrapped in an envelope, indented two spaces.
func Export(w io.Writer, items []planner.PlacedItem, now time.Time) error {
	if items == nil {
		items = []planner.PlacedItem{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	err := enc.Encode(Envelope{
		Version:    Version,
		ExportedAt: now.UTC().Format(time.RFC3339Nano),
		Items:      items,
	})
	if err != nil {
		return fmt.Errorf("writing layout file: %w", err)
	}
	return nil
}

// Import parses a layout file and returns its items as stored. The version
// field is not checked. It fails with *FormatError when the top level is not
// an object with an items array, or when an element is not an object.
// Fields of the wrong type are dropped, not rejected.
func Import(r io.Reader) ([]planner.PlacedItem, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading layout file: %w", err)
	}
	return Decode(data)
}

// Decode is Import over bytes already read.
func Decode(data []byte) ([]planner.PlacedItem, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, &FormatError{Reason: "not a JSON object", Err: err}
	}
	if top == nil {
		return nil, &FormatError{Reason: "not a JSON object"}
	}

	raw, ok := top["items"]
	if !ok {
		return nil, &FormatError{Reason: "missing items"}
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, &FormatError{Reason: "items is not an array"}
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, &FormatError{Reason: "items is not an array", Err: err}
	}
	items := make([]planner.PlacedItem, 0, len(elems))
	for i, e := range elems {
		it, err := decodeItem(e)
		if err != nil {
			return nil, &FormatError{Reason: fmt.Sprintf("item %d", i), Err: err}
		}
		items = append(items, it)
	}
	return items, nil
}

// decodeItem keeps every field that fits its Go type and drops the rest,
// leaving them for the store's defaults.
func decodeItem(data json.RawMessage) (planner.PlacedItem, error) {
	var it planner.PlacedItem
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return it, err
	}
	for name, value := range fields {
		one, err := json.Marshal(map[string]json.RawMessage{name: value})
		if err != nil {
			continue
		}
		next := it
		if err := json.Unmarshal(one, &next); err != nil {
			continue
		}
		it = next
	}
	return it, nil
}
