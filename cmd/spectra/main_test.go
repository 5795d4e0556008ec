package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const fastAPIApp = `from fastapi import FastAPI

app = FastAPI()


@app.get("/items/{item_id}")
def read_item(item_id: int, q: str = None):
    return {"item_id": item_id}
`

const springController = `package demo;

@RestController
@RequestMapping("/api")
public class OrderController {
    @PostMapping("/orders")
    public Order create(@RequestBody Order order) {
        return order;
    }
}

@Data
class Order {
    @NotNull
    private Long id;
    private String item;
}
`

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.py"), []byte(fastAPIApp), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "OrderController.java"), []byte(springController), 0644))
	return root
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--help"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stderr.String(), "Usage: spectra")
	assert.Empty(t, stdout.String())
}

func TestRun_Arguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"unknown flag", []string{"--nope"}, 2},
		{"two roots", []string{"a", "b"}, 2},
		{"bad format", []string{"--format", "xml", t.TempDir()}, 1},
		{"bad version", []string{"--api-version", "one", t.TempDir()}, 1},
		{"missing root", []string{filepath.Join(t.TempDir(), "missing")}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tt.args, &stdout, &stderr)
			assert.Equal(t, tt.code, code, stderr.String())
			assert.Empty(t, stdout.String())
		})
	}
}

func TestRun_JSONToStdout(t *testing.T) {
	root := writeProject(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--quiet", "--title", "Demo", root}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var doc map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
	assert.Equal(t, "3.0.0", doc["openapi"])
	assert.Equal(t, "Demo", doc["info"].(map[string]any)["title"])

	paths := doc["paths"].(map[string]any)
	assert.Contains(t, paths, "/items/{item_id}")
	assert.Contains(t, paths, "/api/orders")
	assert.Contains(t, doc["components"].(map[string]any)["schemas"], "Order")
}

func TestRun_YAMLToFile(t *testing.T) {
	root := writeProject(t)
	out := filepath.Join(t.TempDir(), "docs", "openapi.yaml")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--format", "YML", "--output", out, "--validate", root}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "Extraction Complete!")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "3.0.0", doc["openapi"])
	assert.Len(t, doc["paths"], 2)
}

func TestRun_EnvOverrides(t *testing.T) {
	root := writeProject(t)
	t.Setenv("SPECTRA_FORMAT", "yaml")
	t.Setenv("SPECTRA_TITLE", "From Env")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--quiet", root}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "title: From Env")

	stdout.Reset()
	code = run(context.Background(), []string{"--quiet", "--title", "From Flag", root}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "title: From Flag")
}

func TestRun_EmptyProject(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--quiet", t.TempDir()}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var doc map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
	assert.Empty(t, doc["paths"])
}
