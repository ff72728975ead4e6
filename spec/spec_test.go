package spec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pkordes/fleet-journal/spec"
)

func TestOpenAPI_ListsEveryRoute(t *testing.T) {
	var doc struct {
		OpenAPI string                    `yaml:"openapi"`
		Paths   map[string]map[string]any `yaml:"paths"`
	}
	require.NoError(t, yaml.Unmarshal(spec.OpenAPI, &doc))

	assert.Equal(t, "3.0.3", doc.OpenAPI)
	want := map[string][]string{
		"/healthz":                  {"get"},
		"/openapi.yaml":             {"get"},
		"/roster":                   {"get", "put"},
		"/vehicles":                 {"get"},
		"/vehicles/{id}/check-out":  {"post"},
		"/vehicles/{id}/check-in":   {"post"},
		"/journal":                  {"get"},
		"/journal/clear":            {"post"},
		"/journal/clear-checked-in": {"post"},
		"/summary":                  {"get"},
	}
	assert.Len(t, doc.Paths, len(want))
	for path, methods := range want {
		for _, m := range methods {
			assert.Contains(t, doc.Paths[path], m, "%s %s", m, path)
		}
	}
}
