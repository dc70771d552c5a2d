package intent

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const intentSchema = `{
  "type": "object",
  "required": ["days", "themes"],
  "properties": {
    "days": {"type": "integer", "minimum": 1, "maximum": 30},
    "themes": {"type": "array", "items": {"type": "string"}},
    "accommodation_type": {"type": "string", "enum": ["any", "hotel", "homestay", "hostel", ""]},
    "start_time": {"type": "string", "pattern": "^(([01][0-9]|2[0-3]):[0-5][0-9]|24:00)?$"},
    "end_time": {"type": "string", "pattern": "^(([01][0-9]|2[0-3]):[0-5][0-9]|24:00)?$"},
    "budget_range": {
      "type": ["object", "null"],
      "properties": {
        "min": {"type": "number", "minimum": 0},
        "max": {"type": "number", "minimum": 0}
      }
    },
    "special_requirements": {"type": "string"},
    "destination": {"type": "string"},
    "location_preference": {"type": "string"}
  }
}`

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(intentSchema))
})

// validateAgainstSchema checks the raw model JSON before it is mapped to a TripIntent.
func validateAgainstSchema(raw []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile intent schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("intent validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
