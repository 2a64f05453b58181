package hermes

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func vidasOutput() *MergedOutput {
	m := NewMerger()
	m.Add(table([]string{RegistroColumn, "UF", "Beneficiarios"},
		[]Value{txt("368253"), txt("SP"), num(1250)},
		[]Value{txt("368253"), txt("RJ"), null},
	))
	m.Record(QueryRun{Entity: "368253", State: RunSucceeded, Rows: 2, Waited: 4 * time.Second})
	m.Record(QueryRun{Entity: "999999", State: RunFailed, Err: ErrFilterNotApplied})
	return m.Result("Beneficiarios - Vidas")
}

func TestExportCSV(t *testing.T) {
	path := t.TempDir() + "/nested/vidas.csv"
	require.NoError(t, exportCSV(path, vidasOutput().Table))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{RegistroColumn, "UF", "Beneficiarios", CuboColumn},
		{"368253", "SP", "1250", "Beneficiarios - Vidas"},
		{"368253", "RJ", "", "Beneficiarios - Vidas"},
	}, records)
}

func TestExportXLSX(t *testing.T) {
	path := t.TempDir() + "/vidas.xlsx"
	require.NoError(t, exportXLSX(path, "vidas", vidasOutput().Table))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"vidas"}, f.GetSheetList())

	value, err := f.GetCellValue("vidas", "C2")
	require.NoError(t, err)
	assert.Equal(t, "1250", value)
	value, err = f.GetCellValue("vidas", "C3")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestVidasPublication(t *testing.T) {
	app := newExtractor("hermes", testConfig(nil), &recordingLogger{}, testEngine())
	pub := app.VidasPublication(vidasOutput())

	assert.Equal(t, "vidas", pub.Job)
	assert.Equal(t, "Beneficiarios - Vidas", pub.Record.Cube)
	assert.Equal(t, 2, pub.Record.Rows)
	assert.Equal(t, []string{"368253"}, pub.Record.Entities)
	require.Len(t, pub.Record.Runs, 2)
	assert.Equal(t, EntityRun{Entity: "368253", State: "succeeded", Rows: 2, WaitedSeconds: 4}, pub.Record.Runs[0])
	assert.Equal(t, ErrFilterNotApplied.Error(), pub.Record.Runs[1].Error)
	assert.NotEmpty(t, pub.Record.ID)
}

func TestPublishToAPI(t *testing.T) {
	var got rowsPayload
	var user, pass string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rows/", r.URL.Path)
		user, pass, _ = r.BasicAuth()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	logger := &recordingLogger{}
	app := newExtractor("hermes", testConfig(map[string]interface{}{
		"EXPORT_DIR":   t.TempDir(),
		"API_ENDPOINT": server.URL + "/",
		"API_USERNAME": "user",
		"API_PASSWORD": "secret",
	}), logger, testEngine())

	pub := app.VidasPublication(vidasOutput())
	require.NoError(t, app.Publish(context.Background(), pub))

	assert.Equal(t, "user", user)
	assert.Equal(t, "secret", pass)
	assert.Equal(t, pub.Record.ID, got.RunID)
	assert.Equal(t, "vidas", got.Job)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, "SP", got.Rows[0]["UF"])
	assert.Nil(t, got.Rows[1]["Beneficiarios"])
	assert.True(t, logger.has(logger.infos, "Published vidas run"))
}

func TestPublishJoinsSinkErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	logger := &recordingLogger{}
	dir := t.TempDir()
	app := newExtractor("hermes", testConfig(map[string]interface{}{
		"EXPORT_DIR":   dir,
		"API_ENDPOINT": server.URL,
		"DB_DRIVER":    "sqlite",
	}), logger, testEngine())

	err := app.Publish(context.Background(), app.IGRPublication(vidasOutput().Table, time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api: API error for igr: status 503")
	assert.Contains(t, err.Error(), "store: unsupported DB_DRIVER: sqlite")
	assert.True(t, logger.has(logger.errors, "api sink failed"))

	// the local exports happen before any sink
	assert.FileExists(t, generateExportFileName(dir, "hermes", "igr", "csv"))
	assert.FileExists(t, generateExportFileName(dir, "hermes", "igr", "xlsx"))
}

func TestPublishFailingSinkKeepsOthers(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	logger := &recordingLogger{}
	app := newExtractor("hermes", testConfig(map[string]interface{}{
		"EXPORT_DIR":   t.TempDir(),
		"API_ENDPOINT": server.URL,
		"DB_DRIVER":    "sqlite",
	}), logger, testEngine())

	err := app.Publish(context.Background(), app.VidasPublication(vidasOutput()))
	require.Error(t, err)
	assert.Equal(t, "store: unsupported DB_DRIVER: sqlite", err.Error())
	assert.Equal(t, int32(1), hits.Load())
	assert.True(t, logger.has(logger.errors, "store sink failed"))
	assert.False(t, logger.has(logger.infos, "Published vidas run"))
}

func TestPublishWithoutTable(t *testing.T) {
	app := newExtractor("hermes", testConfig(nil), &recordingLogger{}, testEngine())
	assert.Error(t, app.Publish(context.Background(), Publication{Job: "igr"}))
}
