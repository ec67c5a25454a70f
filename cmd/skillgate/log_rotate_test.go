package main

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rotateNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func TestArchiveBackup(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "access.log")
	backupFile := logFile + ".backup"
	logCfg := &HttpLogConfig{FileMode: 0644}

	writeFile(t, dir, "access.log.backup", "first")
	require.NoError(t, archiveBackup(logFile, backupFile, logCfg, rotateNow, discardLog()))
	writeFile(t, dir, "access.log.backup", "second")
	require.NoError(t, archiveBackup(logFile, backupFile, logCfg, rotateNow, discardLog()))

	data, err := os.ReadFile(logFile + "-2026-03-14_1")
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
	data, err = os.ReadFile(logFile + "-2026-03-14_2")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
	assert.NoFileExists(t, backupFile)
}

func TestArchiveBackupZip(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "access.log")
	backupFile := writeFile(t, dir, "access.log.backup", "zipped")

	require.NoError(t, archiveBackup(logFile, backupFile, &HttpLogConfig{FileMode: 0644, Archive: "zip"}, rotateNow, discardLog()))
	assert.NoFileExists(t, backupFile)

	zr, err := zip.OpenReader(logFile + "-2026-03-14_1.zip")
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1)
	assert.Equal(t, "access.log", zr.File[0].Name)
	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "zipped", string(data))
}

func TestPruneBackups(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "access.log")
	for _, name := range []string{
		"access.log-2026-03-14_2",
		"access.log-2026-03-14_1",
		"access.log-2026-03-12_1",
		"access.log-2026-03-01_1",
		"access.log-notes",
	} {
		writeFile(t, dir, name, name)
	}

	pruneBackups(logFile, &HttpLogConfig{Backups: 3, BackupDays: 7}, rotateNow, discardLog())

	assert.FileExists(t, logFile+"-2026-03-14_2")
	assert.FileExists(t, logFile+"-2026-03-14_1")
	assert.FileExists(t, logFile+"-2026-03-12_1")
	assert.NoFileExists(t, logFile+"-2026-03-01_1")
	assert.FileExists(t, logFile+"-notes")

	pruneBackups(logFile, &HttpLogConfig{Backups: 1}, rotateNow, discardLog())
	assert.FileExists(t, logFile+"-2026-03-14_2")
	assert.NoFileExists(t, logFile+"-2026-03-14_1")
	assert.NoFileExists(t, logFile+"-2026-03-12_1")
}

func TestRotateBySize(t *testing.T) {
	dir := t.TempDir()
	logFile := writeFile(t, dir, "access.log", "0123456789")
	config = Config{HttpServer: HttpServerConfig{Log: &HttpLogConfig{
		Dir:          dir,
		File:         "access.log",
		FileMode:     0644,
		Backups:      2,
		MaxSizeBytes: 5,
	}}}

	done := make(chan struct{})
	r := logRotation{wait: func() { close(done) }}
	r.rotate(logFile, discardLog())

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("rotation did not finish")
	}

	assert.NoFileExists(t, logFile)
	matches, err := filepath.Glob(logFile + "-*_1")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))
}

func TestRotateDisabled(t *testing.T) {
	dir := t.TempDir()
	logFile := writeFile(t, dir, "access.log", "0123456789")
	config = Config{HttpServer: HttpServerConfig{Log: &HttpLogConfig{Dir: dir, File: "access.log", MaxSizeBytes: 5}}}

	var r logRotation
	r.rotate(logFile, discardLog())
	assert.FileExists(t, logFile)
}
