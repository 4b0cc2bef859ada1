package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/internal/snapshot"
	"github.com/mesh-intelligence/pantry/pkg/pantry"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// env is an isolated config and data directory pair.
type env struct {
	configDir string
	dataDir   string
}

func newEnv(t *testing.T) env {
	t.Helper()
	return env{configDir: t.TempDir(), dataDir: t.TempDir()}
}

// run executes a fresh root command in-process and returns its stdout.
func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "pantry %v", args)
	return out
}

func decodeList(t *testing.T, out string) []map[string]any {
	t.Helper()
	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &items), out)
	return items
}

func decodeOne(t *testing.T, out string) map[string]any {
	t.Helper()
	var item map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &item), out)
	return item
}

func ids(items []map[string]any) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		id, _ := it["id"].(string)
		out = append(out, id)
	}
	return out
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exit *ExitError
	require.True(t, errors.As(err, &exit), "expected ExitError, got %v", err)
	return exit.Code
}

func TestVersion(t *testing.T) {
	out := newEnv(t).mustRun(t, "version")
	assert.Contains(t, out, "pantry v"+pantry.Version)
	assert.Contains(t, out, "module: github.com/mesh-intelligence/pantry")
}

func TestFirstRunWritesDefaultConfig(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "config", "--json")

	_, err := os.Stat(filepath.Join(e.configDir, "config.yaml"))
	require.NoError(t, err)

	var s map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, e.configDir, s["config_dir"])
	assert.Equal(t, "u_1", s["user"])
	driver, ok := s["driver"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, types.ProviderSQLite, driver["provider"])
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	e := newEnv(t)
	yaml := "provider: memory\nsession:\n  user: u_3\n"
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"), []byte(yaml), 0o644))

	out := e.mustRun(t, "config")
	assert.Contains(t, out, "provider:    memory")
	assert.Contains(t, out, "user:        u_3")

	out = e.mustRun(t, "--provider", "sqlite", "--user", "u_2", "config")
	assert.Contains(t, out, "provider:    sqlite")
	assert.Contains(t, out, "user:        u_2")
	assert.Contains(t, out, "database:    "+filepath.Join(e.dataDir, "pantry.db"))
}

func TestUnknownProvider(t *testing.T) {
	_, err := newEnv(t).run(t, "--provider", "carrier-pigeon", "list", "projects")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(t, err))
	assert.ErrorIs(t, err, types.ErrProviderUnknown)
}

func TestListSeededCollections(t *testing.T) {
	e := newEnv(t)

	projects := decodeList(t, e.mustRun(t, "list", "projects"))
	assert.Equal(t, []string{"prj_1"}, ids(projects))

	tasks := decodeList(t, e.mustRun(t, "list", "tasks", "projectId=prj_1"))
	assert.Equal(t, []string{"t_1", "t_2", "t_3"}, ids(tasks))

	todo := decodeList(t, e.mustRun(t, "list", "tasks", "projectId=prj_1", "status=todo"))
	assert.Equal(t, []string{"t_3"}, ids(todo))

	none := decodeList(t, e.mustRun(t, "list", "tasks", "status=blocked"))
	assert.Empty(t, none)
}

func TestListMine(t *testing.T) {
	e := newEnv(t)

	mine := decodeList(t, e.mustRun(t, "list", "user-activity", "--mine"))
	assert.Equal(t, []string{"act_1", "act_2"}, ids(mine))

	other := decodeList(t, e.mustRun(t, "--user", "u_2", "list", "user-activity", "--mine"))
	assert.Empty(t, other)
}

func TestListInvalidFilter(t *testing.T) {
	_, err := newEnv(t).run(t, "list", "tasks", "status")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(t, err))
}

func TestListJSONEnvelope(t *testing.T) {
	out := newEnv(t).mustRun(t, "--json", "list", "projects")
	var envelope struct {
		Data   []map[string]any `json:"data"`
		Status int              `json:"status"`
		Meta   struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &envelope))
	assert.Equal(t, 200, envelope.Status)
	assert.Equal(t, 1, envelope.Meta.Total)
	assert.Len(t, envelope.Data, 1)
}

func TestListMineFilteredTotal(t *testing.T) {
	out := newEnv(t).mustRun(t, "--json", "list", "user-activity", "action=DATA_FETCH", "--mine")
	var envelope struct {
		Data []map[string]any `json:"data"`
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &envelope))
	assert.Equal(t, []string{"act_2"}, ids(envelope.Data))
	assert.Equal(t, 1, envelope.Meta.Total)
}

func TestWithTotal(t *testing.T) {
	assert.Equal(t, 3, *withTotal(nil, 3).Total)

	two := 2
	orig := &types.Meta{Total: &two}
	got := withTotal(orig, 1)
	assert.Equal(t, 1, *got.Total)
	assert.Equal(t, 2, *orig.Total)
}

func TestGet(t *testing.T) {
	e := newEnv(t)

	task := decodeOne(t, e.mustRun(t, "get", "tasks", "t_2"))
	assert.Equal(t, "Implement Plugin Pods", task["title"])

	_, err := e.run(t, "get", "tasks", "t_404")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(t, err))
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestCreatePersists(t *testing.T) {
	e := newEnv(t)

	created := decodeOne(t, e.mustRun(t, "create", "tasks", `{"projectId":"prj_1","title":"Ship it","status":"todo"}`))
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	got := decodeOne(t, e.mustRun(t, "get", "tasks", id))
	assert.Equal(t, "Ship it", got["title"])

	_, err := e.run(t, "create", "tasks", `{"id":"t_1"}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConflict)

	_, err = e.run(t, "create", "tasks", `[1,2]`)
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(t, err))
}

func TestCreateMineStampsOwner(t *testing.T) {
	e := newEnv(t)

	created := decodeOne(t, e.mustRun(t, "--user", "u_2", "create", "projects", `{"name":"Docs","userId":"u_1"}`, "--mine"))
	assert.Equal(t, "u_2", created["userId"])
}

func TestUpdate(t *testing.T) {
	e := newEnv(t)

	updated := decodeOne(t, e.mustRun(t, "update", "tasks", "t_3", `{"status":"done","id":"hijack"}`))
	assert.Equal(t, "t_3", updated["id"])
	assert.Equal(t, "done", updated["status"])
	assert.NotEmpty(t, updated["updatedAt"])

	_, err := e.run(t, "update", "tasks", "t_404", `{"status":"done"}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestUpdateMineRespectsOwnership(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "--user", "u_2", "update", "projects", "prj_1", `{"progress":99}`, "--mine")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(t, err))
	assert.ErrorIs(t, err, types.ErrForbidden)

	updated := decodeOne(t, e.mustRun(t, "update", "projects", "prj_1", `{"progress":99,"userId":"u_2"}`, "--mine"))
	assert.EqualValues(t, 99, updated["progress"])
	assert.Equal(t, "u_1", updated["userId"])
}

func TestDelete(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun(t, "delete", "tasks", "t_1")
	assert.Contains(t, out, "deleted tasks/t_1")

	_, err := e.run(t, "get", "tasks", "t_1")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = e.run(t, "--user", "u_2", "delete", "projects", "prj_1", "--mine")
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestSeedReportsCollections(t *testing.T) {
	out := newEnv(t).mustRun(t, "seed")
	assert.Contains(t, out, "seeded 10 collections into sqlite")
	assert.NotContains(t, out, "pending")
}

func TestExportThenSeedFromSnapshot(t *testing.T) {
	src := newEnv(t)
	src.mustRun(t, "create", "tasks", `{"id":"t_9","projectId":"prj_1","title":"Exported"}`)

	dir := t.TempDir()
	out := src.mustRun(t, "export", "tasks", "projects", "--to", dir)
	assert.Contains(t, out, "exported 2 collections")

	docs, err := snapshot.ReadFile(filepath.Join(dir, "tasks.jsonl"))
	require.NoError(t, err)
	assert.Len(t, docs, 4)

	dst := newEnv(t)
	out = dst.mustRun(t, "seed", "--from", dir)
	assert.Contains(t, out, "seeded 2 collections")

	got := decodeOne(t, dst.mustRun(t, "get", "tasks", "t_9"))
	assert.Equal(t, "Exported", got["title"])
}

func TestExportDefaults(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "export")

	for _, name := range []string{"users", "app-routes", "user-terms"} {
		_, err := os.Stat(filepath.Join(e.dataDir, "snapshots", name+snapshot.Ext))
		assert.NoError(t, err, name)
	}
}
