package main

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/spikeforge/internal/match"
)

// setup writes a config that keeps every store inside a temp dir and
// returns its path.
func setup(t *testing.T) (cfgPath, dir string) {
	t.Helper()
	dir = t.TempDir()
	t.Chdir(dir)
	cfgPath = filepath.Join(dir, "spikeforge.yaml")
	cfg := fmt.Sprintf(`overrides:
  dir: %s
  db: %s
  watch: false
log:
  level: disabled
`, filepath.Join(dir, "project"), filepath.Join(dir, "user.db"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath, dir
}

func run(t *testing.T, cfgPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "/does/not/matter.yaml", "version")
	require.NoError(t, err)
	assert.Equal(t, "spikeforge vdev\n", out)
}

func TestMissingConfigFile(t *testing.T) {
	_, _, err := run(t, filepath.Join(t.TempDir(), "nope.yaml"), "discover")
	assert.Error(t, err)
}

func TestQueryCommands(t *testing.T) {
	cfg, _ := setup(t)

	out, _, err := run(t, cfg, "explain", "synth-hono-route-typed-typescript")
	require.NoError(t, err)
	assert.Contains(t, out, "**Library**: hono")

	out, _, err = run(t, cfg, "discover", "-n", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "📊 Showing 1-2 of")

	out, _, err = run(t, cfg, "preview", "synth-hono-route-typed-typescript", "-p", "name=orders")
	require.NoError(t, err)
	assert.Contains(t, out, "src/orders.ts")

	out, _, err = run(t, cfg, "apply", "synth-hono-route-typed-typescript", "-s", "overwrite")
	require.NoError(t, err)
	assert.Contains(t, out, "**Strategy**: overwrite")

	out, _, err = run(t, cfg, "select", "secure", "plugin", "for", "elysia", "-f", "json")
	require.NoError(t, err)
	var sel match.Selection
	require.NoError(t, json.Unmarshal([]byte(out), &sel))
	require.NotNil(t, sel.Best)
	assert.Equal(t, "synth-elysia-plugin-secure-typescript", sel.Best.ID)
}

func TestToolErrorsGoToStderr(t *testing.T) {
	cfg, _ := setup(t)

	out, errOut, err := run(t, cfg, "preview", "ghost")
	assert.True(t, errors.Is(err, errReported))
	assert.Empty(t, out)
	assert.True(t, strings.HasPrefix(errOut, "[NotFound]"), errOut)

	_, errOut, err = run(t, cfg, "apply", "synth-hono-route-typed-typescript", "-s", "merge")
	assert.True(t, errors.Is(err, errReported))
	assert.Contains(t, errOut, "[InvalidArgument]")
}

func TestOverridesLifecycle(t *testing.T) {
	cfg, dir := setup(t)
	def := filepath.Join(dir, "team-api.yaml")
	require.NoError(t, os.WriteFile(def, []byte("name: Team API\nfiles:\n  - path: src/{{name}}.ts\n    content: x\n"), 0o644))

	out, _, err := run(t, cfg, "overrides", "put", def)
	require.NoError(t, err)
	assert.Contains(t, out, "stored team-api")

	out, _, err = run(t, cfg, "overrides", "put", "--project", def)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "project", "team-api.json"))

	out, _, err = run(t, cfg, "overrides", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "SCOPE")
	assert.Regexp(t, `team-api\s+Team API\s+1\s+project`, out)
	assert.Regexp(t, `team-api\s+Team API\s+1\s+user`, out)

	out, _, err = run(t, cfg, "explain", "team-api")
	require.NoError(t, err)
	assert.Contains(t, out, "**Source**: override")

	_, _, err = run(t, cfg, "overrides", "delete", "team-api")
	require.NoError(t, err)
	_, _, err = run(t, cfg, "overrides", "delete", "team-api")
	assert.ErrorContains(t, err, "no override named")
}

func TestOverridesPut_InvalidStoresNothing(t *testing.T) {
	cfg, dir := setup(t)
	good := filepath.Join(dir, "good.json")
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"name": "good"}`), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte(`{"files": []}`), 0o644))

	_, _, err := run(t, cfg, "overrides", "put", good, bad)
	require.Error(t, err)

	out, _, err := run(t, cfg, "overrides", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "good")
}

func TestPacksInstall(t *testing.T) {
	cfg, dir := setup(t)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	body := `{"name": "Packed worker", "tags": ["worker"]}`
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "pack/packed-worker.json", Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}))
	_, err := tw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(buf.Bytes())
	}))
	defer ts.Close()

	out, _, err := run(t, cfg, "packs", "install", ts.URL+"/pack.tar.gz")
	require.NoError(t, err)
	assert.Contains(t, out, "+ packed-worker")
	assert.Contains(t, out, "Installed 1 spikes")
	assert.FileExists(t, filepath.Join(dir, "project", "packed-worker.json"))
}
