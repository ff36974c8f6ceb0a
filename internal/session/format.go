package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/starford/daybook/internal/apperr"
	"github.com/starford/daybook/internal/checksum"
	"github.com/starford/daybook/internal/models"
	"github.com/starford/daybook/internal/notes"
)

const collectionSchemaURL = "daybook://schema/collection.json"

// collectionSchema describes the plaintext file: an array of notes keyed by
// date. Unknown fields are tolerated so files written by older versions load.
const collectionSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["date"],
    "properties": {
      "user": {"type": "string"},
      "date": {"type": "string", "minLength": 1},
      "contents": {
        "type": ["array", "null"],
        "items": {
          "type": "object",
          "properties": {
            "id": {"type": "string"},
            "header": {"type": "string"},
            "content": {"type": "string"}
          }
        }
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(collectionSchema))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(collectionSchemaURL, doc); err != nil {
		return nil, err
	}
	return c.Compile(collectionSchemaURL)
})

// ParseCollection validates and decodes a plaintext file body. Content items
// without an id get a fresh one. Malformed input is reported as
// apperr.ErrLoadFormat.
func ParseCollection(data []byte) (models.Collection, error) {
	sch, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrLoadFormat, err)
	}
	if err := sch.Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrLoadFormat, err)
	}

	var c models.Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrLoadFormat, err)
	}
	if c == nil {
		c = models.Collection{}
	}
	for i := range c {
		if c[i].Owner == "" {
			c[i].Owner = models.DefaultOwner
		}
		if c[i].Items == nil {
			c[i].Items = []models.ContentItem{}
		}
		for j := range c[i].Items {
			if c[i].Items[j].ID == "" {
				c[i].Items[j].ID = notes.NewContent().ID
			}
		}
		if err := c[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: note %q: %v", apperr.ErrLoadFormat, c[i].Date, err)
		}
	}
	if err := notes.CheckUnique(c); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrLoadFormat, err)
	}
	return c, nil
}

// marshalCollection renders the plaintext file body and its fingerprint.
func marshalCollection(c models.Collection, protected bool) ([]byte, string, error) {
	if c == nil {
		c = models.Collection{}
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("marshal collection: %w", err)
	}
	return data, checksum.Keyed(data, protected), nil
}

// EncodeCollection renders c in the plaintext file format.
func EncodeCollection(c models.Collection) ([]byte, error) {
	data, _, err := marshalCollection(c, false)
	return data, err
}
