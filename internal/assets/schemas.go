package assets

import (
	"embed"
	"encoding/json"
	"io/fs"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed embedded_schemas
var schemaFS embed.FS

// SchemaInfo holds schema metadata.
type SchemaInfo struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Draft string `json:"draft"`
}

// knownSchemas maps registry names to embed paths.
var knownSchemas = map[string]string{
	"sidecar-v1.0.0": "embedded_schemas/sidecar/v1.0.0/sidecar.yaml",
}

// GetSchema returns the embedded schema bytes by embed path
// (e.g., "embedded_schemas/sidecar/v1.0.0/sidecar.yaml").
func GetSchema(relPath string) ([]byte, bool) {
	data, err := schemaFS.ReadFile(relPath)
	return data, err == nil
}

// SchemaPath returns the embed path registered for name.
func SchemaPath(name string) (string, bool) {
	p, ok := knownSchemas[name]
	return p, ok
}

// GetSchemasFS exposes the embedded schema tree rooted at embedded_schemas.
func GetSchemasFS() fs.FS {
	if sub, err := fs.Sub(schemaFS, "embedded_schemas"); err == nil {
		return sub
	}
	return schemaFS
}

// GetSchemaNames returns the available schemas, sorted by name.
func GetSchemaNames() []SchemaInfo {
	var infos []SchemaInfo
	for name, path := range knownSchemas {
		if _, ok := GetSchema(path); ok {
			infos = append(infos, SchemaInfo{Name: name, Path: path, Draft: detectDraft(path)})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// detectDraft reads the $schema key of an embedded schema.
func detectDraft(path string) string {
	data, ok := GetSchema(path)
	if !ok {
		return "Unknown"
	}
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		if err := json.Unmarshal(data, &doc); err != nil {
			return "Unknown"
		}
	}
	if m, ok := doc.(map[string]interface{}); ok {
		if v, ok := m["$schema"].(string); ok {
			if strings.Contains(v, "draft-07") {
				return "Draft-07"
			}
			if strings.Contains(v, "2020-12") {
				return "Draft-2020-12"
			}
		}
	}
	return "Unknown"
}
