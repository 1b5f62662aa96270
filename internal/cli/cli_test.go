package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/events"
	"taskboard/internal/logging"
	"taskboard/internal/models"
	"taskboard/internal/server"
	"taskboard/internal/services"
	"taskboard/internal/testutil"
)

func startServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := server.NewRouter(server.Options{
		Services: services.New(testutil.NewCollections(t), services.Options{
			Bus:    events.NewBus(),
			Logger: logging.Discard(),
		}, nil),
		Logger: logging.Discard(),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv.URL
}

func run(t *testing.T, serverURL string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--server", serverURL}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "tasks", "categories", "notes", "users", "stats"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	tasks, _, err := cmd.Find([]string{"tasks"})
	require.NoError(t, err)
	for _, name := range []string{"list", "get", "create", "update", "delete"} {
		sub, _, err := tasks.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestTasksCommands(t *testing.T) {
	url := startServer(t)

	out, err := run(t, url, "tasks", "create", "--data", `{"title":"From the CLI","priority":"high","category":"work"}`)
	require.NoError(t, err)
	var task models.Task
	require.NoError(t, json.Unmarshal([]byte(out), &task))
	assert.Equal(t, "From the CLI", task.Title)
	assert.Equal(t, models.PriorityHigh, task.Priority)

	_, err = run(t, url, "tasks", "create", "--data", `{"title":"Other"}`)
	require.NoError(t, err)

	out, err = run(t, url, "tasks", "list", "--priority", "high")
	require.NoError(t, err)
	var list []models.Task
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, task.ID, list[0].ID)

	out, err = run(t, url, "tasks", "update", task.ID.String(), "--data", `{"status":"completed"}`)
	require.NoError(t, err)
	var updated models.Task
	require.NoError(t, json.Unmarshal([]byte(out), &updated))
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.Equal(t, "work", updated.Category)

	out, err = run(t, url, "tasks", "delete", task.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "Task deleted successfully")

	_, err = run(t, url, "tasks", "get", task.ID.String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Task not found")
}

func TestNotesAndStatsCommands(t *testing.T) {
	url := startServer(t)

	_, err := run(t, url, "categories", "create", "--data", `{"name":"Home"}`)
	require.NoError(t, err)
	_, err = run(t, url, "notes", "create", "--data", `{"content":"Buy milk"}`)
	require.NoError(t, err)
	_, err = run(t, url, "notes", "create", "--data", `{"content":"Call mom"}`)
	require.NoError(t, err)

	out, err := run(t, url, "notes", "list", "--search", "MILK")
	require.NoError(t, err)
	var notes []models.Note
	require.NoError(t, json.Unmarshal([]byte(out), &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, "Buy milk", notes[0].Content)

	out, err = run(t, url, "stats")
	require.NoError(t, err)
	var stats models.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, int64(1), stats.Categories)
	assert.Equal(t, int64(2), stats.Notes)
}

func TestUsersCommands_DuplicateEmail(t *testing.T) {
	url := startServer(t)

	_, err := run(t, url, "users", "create", "--data", `{"username":"ana","email":"ana@x.io","password":"pw"}`)
	require.NoError(t, err)

	_, err = run(t, url, "users", "create", "--data", `{"username":"ana2","email":"ana@x.io","password":"pw"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email already exists")
}

func TestResourceCommands_RejectBadData(t *testing.T) {
	url := startServer(t)

	_, err := run(t, url, "tasks", "create", "--data", `{not json`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --data JSON")

	_, err = run(t, url, "categories", "update", "some-id", "--data", `[`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --data JSON")

	_, err = run(t, url, "tasks", "get")
	assert.Error(t, err)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestServeCommand_ServesUntilCancelled(t *testing.T) {
	port := freePort(t)
	cfgPath := filepath.Join(t.TempDir(), "taskboard.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
server:
  host: 127.0.0.1
database:
  driver: sqlite
  dsn: "file:cli_serve?mode=memory&cache=shared"
log:
  level: error
`), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath, "serve", "--port", fmt.Sprint(port)})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/live")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	out, err := run(t, base, "tasks", "list")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func TestServeCommand_BadConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "taskboard.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("database:\n  driver: oracle\n"), 0o600))

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath, "serve"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}
