package composition

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/bnema/videofactory/internal/domain"
)

//go:embed schema/plan.json
var planSchemaJSON string

var planSchema = jsonschema.MustCompileString("plan.json", planSchemaJSON)

// endSlack absorbs float error when checking items against the duration.
const endSlack = 1e-6

// Validate checks plan against the plan schema and makes sure no item runs
// past the end of the video.
func Validate(plan *domain.Plan) error {
	if plan == nil {
		return domain.Wrap(domain.ErrValidation, "plan", "plan is empty", nil)
	}
	data, err := json.Marshal(plan)
	if err != nil {
		return domain.Wrap(domain.ErrValidation, "plan", "encode", err)
	}
	return validateJSON(data, plan)
}

func validateJSON(data []byte, plan *domain.Plan) error {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return domain.Wrap(domain.ErrValidation, "plan", "decode", err)
	}
	if err := planSchema.Validate(doc); err != nil {
		return domain.Wrap(domain.ErrValidation, "plan", "schema violation", err)
	}

	tracks := map[string][]domain.TrackItem{
		"media":      plan.Tracks.Media,
		"background": plan.Tracks.Background,
		"overlays":   plan.Tracks.Overlays,
	}
	for name, items := range tracks {
		for i, item := range items {
			if item.End() > plan.Project.Duration+endSlack {
				return domain.Wrap(domain.ErrValidation, "plan",
					fmt.Sprintf("%s[%d] %s ends at %.3f past %.3f", name, i, item.Name, item.End(), plan.Project.Duration), nil)
			}
		}
	}
	return nil
}

// WriteFile stores plan as indented JSON.
func WriteFile(path string, plan *domain.Plan) error {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	return os.Rename(tmp, path)
}

// ReadFile loads and validates a plan written by WriteFile.
func ReadFile(path string) (*domain.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	var plan domain.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, domain.Wrap(domain.ErrValidation, "plan", "decode "+path, err)
	}
	if err := validateJSON(data, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}
