package spec_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"

	"github.com/stewarddb/steward/pkg/spec"
)

func TestWriteGolden(t *testing.T) {
	doc := map[string]any{
		"schema s1": map[string]any{
			"owner":       "alice",
			"description": "application schema",
			"domain d1": map[string]any{
				"type":     "integer",
				"not_null": true,
			},
			"table t1": map[string]any{
				"columns": []any{
					map[string]any{"c1": map[string]any{"type": "integer", "not_null": true}},
					map[string]any{"c2": map[string]any{"type": "text"}},
				},
			},
		},
		"language plperl": map[string]any{"trusted": true},
	}

	var buf bytes.Buffer
	require.NoError(t, spec.Write(&buf, doc))
	golden.Assert(t, buf.String(), "dump.yaml")
}

func TestWriteEmptyDoc(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, spec.Write(&buf, map[string]any{}))
	require.Equal(t, "{}\n", buf.String())
}

func TestLoadEmptyDocument(t *testing.T) {
	doc, err := spec.Load(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, doc)
}

func TestLoadDirMergesFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("10_schemas.yaml", "schema s1:\n  owner: alice\n")
	write("20_languages.yml", "language plperl:\n  trusted: true\n")
	write("notes.txt", "ignored\n")

	doc, err := spec.LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, doc, 2)
	require.Contains(t, doc, "schema s1")
	require.Contains(t, doc, "language plperl")
}

func TestLoadDirMemberSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "schema.s1")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.s1.yaml"),
		[]byte("schema s1:\n  owner: alice\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "domain.d1.yaml"),
		[]byte("domain d1:\n  type: integer\n"), 0o644))

	doc, err := spec.LoadDir(dir)
	require.NoError(t, err)

	body := doc["schema s1"].(map[string]any)
	require.Equal(t, "alice", body["owner"])
	require.Contains(t, body, "domain d1")
}

func TestWriteDirRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	doc := map[string]any{
		"schema s1":        map[string]any{"owner": "alice"},
		"language plperl":  map[string]any{"trusted": true},
		"schema reporting": map[string]any{"owner": "bob"},
	}

	require.NoError(t, spec.WriteDir(dir, doc))
	require.FileExists(t, filepath.Join(dir, "schema.s1.yaml"))
	require.FileExists(t, filepath.Join(dir, "language.plperl.yaml"))

	back, err := spec.LoadDir(dir)
	require.NoError(t, err)
	require.Equal(t, doc, back)
}

func TestLoadDirRejectsDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("schema s1: {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("schema s1: {}\n"), 0o644))

	_, err := spec.LoadDir(dir)
	require.ErrorContains(t, err, `duplicate top-level key "schema s1"`)
}

func TestLoadPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spec.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schema s1:\n  owner: alice\n"), 0o644))

	fromFile, err := spec.LoadPath(path)
	require.NoError(t, err)
	fromDir, err := spec.LoadPath(dir)
	require.NoError(t, err)
	require.Equal(t, fromFile, fromDir)
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.yaml")
	doc := map[string]any{"schema s1": map[string]any{"owner": "alice"}}

	require.NoError(t, spec.WriteFile(path, doc))
	back, err := spec.LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, doc, back)
}
