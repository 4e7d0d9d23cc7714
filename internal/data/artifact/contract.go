package artifact

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"gamecfg/internal/data/stamp"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBase = "https://gamecfg.local/schemas/"

var (
	schemasOnce sync.Once
	schemas     map[stamp.Kind]*jsonschema.Schema
	schemasErr  error
)

func loadSchemas() {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	files := map[stamp.Kind]string{
		stamp.KindSettings: "engine_settings.schema.json",
		stamp.KindItems:    "items.schema.json",
	}
	for _, name := range files {
		b, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			schemasErr = err
			return
		}
		if err := c.AddResource(schemaBase+name, bytes.NewReader(b)); err != nil {
			schemasErr = fmt.Errorf("schema %s: %w", name, err)
			return
		}
	}
	schemas = make(map[stamp.Kind]*jsonschema.Schema, len(files))
	for kind, name := range files {
		s, err := c.Compile(schemaBase + name)
		if err != nil {
			schemasErr = fmt.Errorf("compile %s: %w", name, err)
			return
		}
		schemas[kind] = s
	}
}

// Check validates encoded artifact bytes against the published contract for
// kind. It guards the encoder and the stamper, not author input.
func Check(kind stamp.Kind, encoded []byte) error {
	schemasOnce.Do(loadSchemas)
	if schemasErr != nil {
		return schemasErr
	}
	s, ok := schemas[kind]
	if !ok {
		return fmt.Errorf("no contract for artifact kind %q", kind)
	}
	var doc any
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return fmt.Errorf("%s artifact is not valid JSON: %w", kind, err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%s artifact violates contract: %w", kind, err)
	}
	return nil
}
