package mapping

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// schemaCUE is the shape contract every mapping document must satisfy.
// Definitions are closed: unknown fields anywhere in the document are
// rejected, which catches typos like "form:" before they silently produce
// an empty column.
const schemaCUE = `
#Document: {
	version: 1
	columns: [string]: #Column
}

#Column: {from: string & != ""} |
	{const: string} |
	{boolify: string & != ""} |
	{concat: [...string & != ""] & [_, ...], sep?: string} |
	{equals: {column: string & != "", value: string}} |
	{coalesce: [...string & != ""] & [_, ...]}
`

// validateSchema checks the raw YAML against the CUE schema before typed
// decoding. Returns a descriptive error naming the offending path.
func validateSchema(data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("mapping: not valid YAML: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("mapping: empty document")
	}

	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE).LookupPath(cue.ParsePath("#Document"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("mapping: internal schema error: %w", err)
	}

	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("mapping: encoding document for validation: %w", err)
	}

	unified := schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return fmt.Errorf("mapping: document does not match schema: %w", err)
	}
	return nil
}
