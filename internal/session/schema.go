package session

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ChamsBouzaiene/dreami/internal/memory"
)

// logSchema describes the on-disk conversation log: a non-empty array of
// entries, each carrying a known role and string content.
const logSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["role", "content"],
    "properties": {
      "role": {"type": "string", "enum": ["system", "user", "assistant"]},
      "content": {"type": "string"},
      "timestamp": {"type": ["string", "null"]}
    }
  }
}`

var compiledSchema *gojsonschema.Schema

func init() {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(logSchema))
	if err != nil {
		panic(fmt.Sprintf("session: invalid log schema: %v", err))
	}
	compiledSchema = s
}

// validateDocument checks raw JSON against the log schema. Failures wrap
// memory.ErrCorruptState.
func validateDocument(data []byte) error {
	res, err := compiledSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", memory.ErrCorruptState, err)
	}
	if res.Valid() {
		return nil
	}

	var problems []string
	for _, e := range res.Errors() {
		problems = append(problems, e.String())
	}
	return fmt.Errorf("%w: %s", memory.ErrCorruptState, strings.Join(problems, "; "))
}
