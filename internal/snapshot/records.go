package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// JSON schemas for the records docchat reads back from disk.
const (
	IndexMetaSchema = `{
  "type": "object",
  "required": ["source_path"],
  "properties": {
    "source_path": {"type": "string", "minLength": 1}
  }
}`

	ConversationMetaSchema = `{
  "type": "object",
  "required": ["id", "description"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "created_at": {"type": "string"},
    "description": {"type": "string"}
  }
}`

	MemorySchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["role", "content"],
    "properties": {
      "role": {"enum": ["system", "user", "assistant"]},
      "content": {"type": "string"}
    }
  }
}`

	ManifestSchema = `{
  "type": "object",
  "additionalProperties": {"type": "string", "format": "date-time"}
}`
)

// ErrInvalidRecord is returned when a record on disk does not match its schema
var ErrInvalidRecord = errors.New("invalid record")

// WriteJSON writes v as indented JSON to path, replacing any previous content.
// The write goes through a temp file in the same directory followed by a rename.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", filepath.Base(path), err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadJSON reads path, validates it against schema (when non-empty) and
// decodes it into v.
func ReadJSON(path, schema string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	if schema != "" {
		if err := Validate(schema, data); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Validate checks a JSON document against a JSON schema
func Validate(schema string, data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(msgs, "; "))
}
