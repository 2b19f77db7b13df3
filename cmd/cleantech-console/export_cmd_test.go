package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cleantech-console/internal/backend/backendtest"
	"cleantech-console/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Backend.BaseURL = baseURL
	cfg.Backend.Timeout = 5 * time.Second
	cfg.Log.Level = "error"
	return cfg
}

func TestRunExport_WritesWorkbook(t *testing.T) {
	api := backendtest.New(t)
	api.SeedN("device", "room", 12)
	out := filepath.Join(t.TempDir(), "exports", "devices.xlsx")

	err := runExport(context.Background(), testConfig(api.BaseURL()), exportOptions{
		screen:   "devices",
		format:   "xlsx",
		scope:    "all",
		search:   "room 1",
		userName: "admin",
		password: "secret",
		output:   out,
	})
	require.NoError(t, err)

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	require.NoError(t, err)
	// header + room 1, 10, 11, 12
	assert.Len(t, rows, 5)

	reqs := api.Requests()
	assert.Equal(t, "Bearer "+api.Token(), reqs[len(reqs)-1].Auth)
}

func TestRunExport_Errors(t *testing.T) {
	api := backendtest.New(t)
	cfg := testConfig(api.BaseURL())

	err := runExport(context.Background(), cfg, exportOptions{screen: "devices", format: "docx", scope: "all"})
	assert.Equal(t, exitUsage, exitCode(err))

	err = runExport(context.Background(), cfg, exportOptions{screen: "devices", format: "xlsx", scope: "selection"})
	assert.Equal(t, exitUsage, exitCode(err))

	err = runExport(context.Background(), cfg, exportOptions{screen: "stock", format: "xlsx", scope: "all"})
	assert.Equal(t, exitUsage, exitCode(err))

	err = runExport(context.Background(), cfg, exportOptions{screen: "devices", format: "xlsx", scope: "all", userName: "admin", password: "bad"})
	assert.Equal(t, exitBackend, exitCode(err))
	_, statErr := os.Stat("devices.xlsx")
	assert.True(t, os.IsNotExist(statErr))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
	assert.Equal(t, exitIO, exitCode(withCode(exitIO, errors.New("disk full"))))
	assert.NoError(t, withCode(exitIO, nil))
}
