package main

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFurrowBinary(t *testing.T, dir string) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping CLI build in short mode")
	}
	bin := filepath.Join(dir, "furrow.exe")
	buildCmd := exec.Command("go", "build", "-o", bin, ".")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build furrow: %v\n%s", err, string(out))
	}
	return bin
}

func runFurrow(t *testing.T, bin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func TestCLI_SeedFS(t *testing.T) {
	tmpDir := t.TempDir()
	bin := buildFurrowBinary(t, tmpDir)
	store := filepath.Join(tmpDir, "store")
	flags := []string{"--adapter", "fs", "--uri", store}

	out, stderr, err := runFurrow(t, bin, append([]string{"seed"}, flags...)...)
	require.NoError(t, err, stderr)
	assert.Contains(t, out, "Department Table uploaded successfully. (78 records)")
	assert.Contains(t, out, "Event Table uploaded successfully. (1 records)")

	// Seeding again overwrites in place.
	_, stderr, err = runFurrow(t, bin, append([]string{"seed", "departments"}, flags...)...)
	require.NoError(t, err, stderr)

	out, stderr, err = runFurrow(t, bin, append([]string{"count", "Department Table"}, flags...)...)
	require.NoError(t, err, stderr)
	assert.Equal(t, "78", strings.TrimSpace(out))

	out, stderr, err = runFurrow(t, bin, append([]string{"get", "Department Table", "1"}, flags...)...)
	require.NoError(t, err, stderr)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "IT - Information Technology", rec["name"])
	assert.Equal(t, "2025-04-10T20:15:41Z", rec["created_at"])
}

func TestCLI_SeedFile(t *testing.T) {
	tmpDir := t.TempDir()
	bin := buildFurrowBinary(t, tmpDir)

	ds := filepath.Join(tmpDir, "venues.yaml")
	require.NoError(t, os.WriteFile(ds, []byte("collection: Venue Table\nids: field\nrecords:\n  - {id: venue001, name: Main Hall}\n"), 0644))

	out, stderr, err := runFurrow(t, bin, "seed", ds, "--adapter", "fs", "--uri", filepath.Join(tmpDir, "store"))
	require.NoError(t, err, stderr)
	assert.Contains(t, out, "Venue Table uploaded successfully.")
}

func TestCLI_Failures(t *testing.T) {
	tmpDir := t.TempDir()
	bin := buildFurrowBinary(t, tmpDir)

	t.Run("missing credentials", func(t *testing.T) {
		_, stderr, err := runFurrow(t, bin, "seed", "--credentials", filepath.Join(tmpDir, "nope.json"), "--uri", "demo")
		require.Error(t, err)
		assert.Contains(t, stderr, "credential is invalid or missing")
	})

	t.Run("unknown dataset", func(t *testing.T) {
		_, stderr, err := runFurrow(t, bin, "seed", "professors", "--adapter", "memory")
		require.Error(t, err)
		assert.Contains(t, stderr, "unknown built-in dataset")
	})

	t.Run("missing document", func(t *testing.T) {
		_, stderr, err := runFurrow(t, bin, "get", "Event Table", "nope", "--adapter", "memory")
		require.Error(t, err)
		assert.Contains(t, stderr, "not found")
	})
}

func TestCLI_Datasets(t *testing.T) {
	tmpDir := t.TempDir()
	bin := buildFurrowBinary(t, tmpDir)

	out, stderr, err := runFurrow(t, bin, "datasets")
	require.NoError(t, err, stderr)
	assert.Contains(t, out, "departments")
	assert.Contains(t, out, "sample-event")
}
