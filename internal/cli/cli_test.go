package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/spraylog/internal/backend/mock"
	"github.com/JonMunkholm/spraylog/internal/config"
	"github.com/JonMunkholm/spraylog/internal/export"
	"github.com/JonMunkholm/spraylog/internal/record"
	"github.com/JonMunkholm/spraylog/internal/recordstore"
	"github.com/JonMunkholm/spraylog/internal/render"
	"github.com/JonMunkholm/spraylog/internal/web"
)

var fixedNow = time.Date(2024, 5, 3, 9, 30, 0, 0, time.UTC)

func clearClientEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"SPRAYLOG_BACKEND", "SPRAYLOG_API_URL", "SPRAYLOG_DATA_DIR", "SPRAYLOG_TIMEOUT", "SPRAYLOG_MAX_WAIT", "SPRAYLOG_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(&RootOptions{Now: func() time.Time { return fixedNow }})

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// runLocal executes the CLI against a local backend in dir.
func runLocal(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()
	clearClientEnv(t)
	return execute(t, stdin, append([]string{"--backend", "local", "--data-dir", dir}, args...)...)
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "spraylog", cmd.Use)

	for _, name := range []string{"list", "add", "delete", "clear", "export", "import"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, "command %s should exist", name)
		assert.Equal(t, name, sub.Name())
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "table", formatFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := runLocal(t, t.TempDir(), "", "--format", "xml", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestInvalidBackend(t *testing.T) {
	clearClientEnv(t)
	_, err := execute(t, "", "--backend", "carrier-pigeon", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SPRAYLOG_BACKEND")
}

func TestListEmpty(t *testing.T) {
	out, err := runLocal(t, t.TempDir(), "", "list")
	require.NoError(t, err)
	assert.Equal(t, render.MsgEmpty+"\n", out)
}

func TestAddAndList(t *testing.T) {
	dir := t.TempDir()

	out, err := runLocal(t, dir, "", "add", "--field", "North-3", "--product", "Glyphosate", "--dose", "2,5")
	require.NoError(t, err)
	assert.Contains(t, out, "Added record")

	_, err = runLocal(t, dir, "", "add", "--date", "2024-05-04", "--field", "South-1", "--product", "Copper", "--dose", "3", "--notes", "dry")
	require.NoError(t, err)

	out, err = runLocal(t, dir, "", "--format", "json", "list")
	require.NoError(t, err)

	var view render.View
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	require.Len(t, view.Records, 2)
	assert.Equal(t, "South-1", view.Records[0].Field)
	assert.Equal(t, "2024-05-03", view.Records[1].Date, "date defaults to today")
	assert.Equal(t, 2.5, view.Records[1].Dose)

	out, err = runLocal(t, dir, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "2.5 L/ha")
	assert.Contains(t, out, "Opmerkingen")
}

func TestAddInvalid(t *testing.T) {
	dir := t.TempDir()

	_, err := runLocal(t, dir, "", "add", "--field", "North-3", "--dose", "-1")
	var verrs record.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)

	out, err := runLocal(t, dir, "", "list")
	require.NoError(t, err)
	assert.Equal(t, render.MsgEmpty+"\n", out)
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	_, err := runLocal(t, dir, "", "add", "--field", "A", "--product", "P", "--dose", "1")
	require.NoError(t, err)

	out, err := runLocal(t, dir, "", "--format", "json", "list")
	require.NoError(t, err)
	var view render.View
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	require.Len(t, view.Records, 1)
	id := view.Records[0].ID

	_, err = runLocal(t, dir, "", "delete", id)
	require.NoError(t, err)

	_, err = runLocal(t, dir, "", "delete", id)
	var mutErr *recordstore.MutationError
	require.ErrorAs(t, err, &mutErr)
	assert.True(t, strings.HasPrefix(UserMessage(err), "Verwijderen mislukt: "))
}

func TestClear(t *testing.T) {
	dir := t.TempDir()

	// Empty list: no prompt.
	out, err := runLocal(t, dir, "", "clear")
	require.NoError(t, err)
	assert.NotContains(t, out, ClearPrompt)
	assert.Contains(t, out, render.MsgEmpty)

	_, err = runLocal(t, dir, "", "add", "--field", "A", "--product", "P", "--dose", "1")
	require.NoError(t, err)

	out, err = runLocal(t, dir, "nee\n", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, ClearPrompt)
	assert.Contains(t, out, "Cancelled")

	out, err = runLocal(t, dir, "", "list")
	require.NoError(t, err)
	assert.NotEqual(t, render.MsgEmpty+"\n", out)

	out, err = runLocal(t, dir, "j\n", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "All records deleted")

	out, err = runLocal(t, dir, "", "list")
	require.NoError(t, err)
	assert.Equal(t, render.MsgEmpty+"\n", out)
}

func TestExportAndImport(t *testing.T) {
	dir := t.TempDir()

	out, err := runLocal(t, dir, "", "export", "-o", "-")
	require.NoError(t, err)
	assert.Empty(t, out)

	empty := filepath.Join(t.TempDir(), "empty.csv")
	out, err = runLocal(t, dir, "", "export", "-o", empty)
	require.NoError(t, err)
	assert.Equal(t, render.MsgNothingToExport+"\n", out)
	assert.NoFileExists(t, empty)

	_, err = runLocal(t, dir, "", "add", "--date", "2024-05-01", "--field", "North-3", "--product", "Glyphosate", "--dose", "2.5")
	require.NoError(t, err)
	_, err = runLocal(t, dir, "", "add", "--date", "2024-05-02", "--field", "South-1", "--product", `Copper "Max"`, "--dose", "3", "--notes", "line one")
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "out.csv")
	_, err = runLocal(t, dir, "", "export", "-o", file)
	require.NoError(t, err)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `"Datum","Perceel","Middel","Dosering (L/ha)","Opmerkingen"`))

	other := t.TempDir()
	out, err = runLocal(t, other, "", "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 records")

	out, err = runLocal(t, other, "", "export", "-o", "-")
	require.NoError(t, err)
	assert.Equal(t, string(data), out)
}

func TestImportRejectsInvalidFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(file, []byte(`"Datum","Perceel","Middel","Dosering (L/ha)","Opmerkingen"`+"\n"+`"2024-05-01","A","P","0",""`), 0o644))

	dir := t.TempDir()
	_, err := runLocal(t, dir, "", "import", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")

	out, err := runLocal(t, dir, "", "list")
	require.NoError(t, err)
	assert.Equal(t, render.MsgEmpty+"\n", out)
}

func TestRemoteBackend(t *testing.T) {
	m := mock.New(record.Record{ID: "1", Date: "2024-05-01", Field: "North-3", Product: "Glyphosate", Dose: 2.5})
	cfg := &config.Config{Server: config.ServerConfig{RequestTimeout: 5 * time.Second, MaxBodySize: 1024}}
	srv := httptest.NewServer(web.NewServer(m, cfg).Router())
	t.Cleanup(srv.Close)

	clearClientEnv(t)
	out, err := execute(t, "", "--backend", "remote", "--api-url", srv.URL+"/api", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "North-3")

	_, err = execute(t, "", "--backend", "remote", "--api-url", srv.URL+"/api", "delete", "404")
	require.Error(t, err)
	assert.Equal(t, "Verwijderen mislukt: Record niet gevonden", UserMessage(err))
}

func TestRemoteBackendUnreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	clearClientEnv(t)
	t.Setenv("SPRAYLOG_TIMEOUT", "1s")
	_, err := execute(t, "", "--backend", "remote", "--api-url", url+"/api", "list")

	var loadErr *recordstore.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.True(t, strings.HasPrefix(UserMessage(err), "Kan gegevens niet laden: "))
}

func TestImportReportsPartialProgress(t *testing.T) {
	records := []record.Record{
		{Date: "2024-05-03", Field: "C", Product: "P", Dose: 3},
		{Date: "2024-05-02", Field: "B", Product: "P", Dose: 2},
		{Date: "2024-05-01", Field: "A", Product: "P", Dose: 1},
	}
	data, err := export.Encode(records)
	require.NoError(t, err)
	file := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(file, data, 0o644))

	m := mock.New()
	var creates int32
	m.Hook = func(op mock.Op) {
		if op == mock.OpCreate && atomic.AddInt32(&creates, 1) == 2 {
			m.FailWith(mock.OpCreate, errors.New("disk full"))
		}
	}
	cfg := &config.Config{Server: config.ServerConfig{RequestTimeout: 5 * time.Second, MaxBodySize: 1024}}
	srv := httptest.NewServer(web.NewServer(m, cfg).Router())
	t.Cleanup(srv.Close)

	clearClientEnv(t)
	_, err = execute(t, "", "--backend", "remote", "--api-url", srv.URL+"/api", "import", file)
	require.Error(t, err)

	var importErr *ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, 1, importErr.Imported)
	assert.Equal(t, 3, importErr.Total)
	assert.True(t, strings.HasPrefix(UserMessage(err), "imported 1 of 3 records; Opslaan mislukt: "), UserMessage(err))

	stored, err := m.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "A", stored[0].Field)
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchRecords(t *testing.T) {
	m := mock.New(record.Record{ID: "1", Date: "2024-05-01", Field: "North-3", Product: "Glyphosate", Dose: 2.5})
	store := recordstore.New(m)
	defer store.Close()
	require.NoError(t, store.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- watchRecords(ctx, &out, store, render.FormatTable, 10*time.Millisecond)
	}()

	assert.Eventually(t, func() bool { return strings.Contains(out.String(), "North-3") }, time.Second, 5*time.Millisecond)

	_, err := m.Create(context.Background(), record.Candidate{Date: "2024-05-02", Field: "South-1", Product: "Copper", Dose: 3})
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return strings.Contains(out.String(), "South-1") }, time.Second, 5*time.Millisecond)

	// Reloads that change nothing print nothing.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, strings.Count(out.String(), "North-3"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
}

func TestWatchRecordsStopsWhenStoreCloses(t *testing.T) {
	store := recordstore.New(mock.New())
	require.NoError(t, store.Load(context.Background()))

	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- watchRecords(context.Background(), &out, store, render.FormatTable, time.Hour)
	}()

	assert.Eventually(t, func() bool { return strings.Contains(out.String(), render.MsgEmpty) }, time.Second, 5*time.Millisecond)
	require.NoError(t, store.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop after Close")
	}
}

func TestListWatchRejectsBadInterval(t *testing.T) {
	_, err := runLocal(t, t.TempDir(), "", "list", "--watch", "--interval", "0s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--interval")
}
