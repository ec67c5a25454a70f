package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateHttpLogConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logCfg := &HttpLogConfig{Dir: dir, MaxSize: "1m", MaxAge: "2d", Archive: "ZIP"}

	var errors []string
	validateHttpLogConfig(logCfg, collectErrors(&errors))
	require.Empty(t, errors)
	assert.DirExists(t, dir)
	assert.Equal(t, appName+".log", logCfg.File)
	assert.Equal(t, os.FileMode(0644), logCfg.FileMode)
	assert.Equal(t, int64(1<<20), logCfg.MaxSizeBytes)
	assert.Equal(t, 48*time.Hour, logCfg.MaxAgeDuration)
	assert.Equal(t, "zip", logCfg.Archive)

	validateHttpLogConfig(&HttpLogConfig{Dir: dir, MaxAge: "-1h", Backups: -1}, collectErrors(&errors))
	all := strings.Join(errors, "\n")
	assert.Contains(t, all, "httpServer.log.maxAge is not valid")
	assert.Contains(t, all, "httpServer.log.backups must not be negative.")
}

func TestValidateTLSConfig(t *testing.T) {
	dir := t.TempDir()
	cert := writeFile(t, dir, "cert.pem", "cert")

	var errors []string
	validateTLSConfig(&TLSFiles{Certificate: cert, Key: filepath.Join(dir, "absent.pem")}, &TLSAcme{HostWhitelist: []string{"a.example.com", ""}}, collectErrors(&errors))
	all := strings.Join(errors, "\n")
	assert.Contains(t, all, "httpServer.tlsFiles and httpServer.tlsAcme are mutually exclusive.")
	assert.Contains(t, all, "httpServer.tlsFiles.key is not accessible")
	assert.NotContains(t, all, "httpServer.tlsFiles.certificate")
	assert.Contains(t, all, "httpServer.tlsAcme.hostWhitelist must not contain empty item.")
	assert.Contains(t, all, "httpServer.tlsAcme.cacheDir cannot be empty.")

	errors = nil
	validateTLSConfig(&TLSFiles{Key: cert}, nil, collectErrors(&errors))
	assert.Equal(t, []string{"httpServer.tlsFiles.certificate must be specified."}, errors)

	errors = nil
	validateTLSConfig(nil, &TLSAcme{CacheDir: dir}, collectErrors(&errors))
	assert.Equal(t, []string{"httpServer.tlsAcme.hostWhitelist must not be empty."}, errors)
}

func TestAccessLogRecord(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/alexa/skill", strings.NewReader("{}"))
	w := &logResponseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	w.Write([]byte("hello"))
	start := time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local)

	record := string(accessLogRecord(req, w, start, 1500*time.Millisecond, "first\nsecond"))
	assert.True(t, strings.HasPrefix(record, "2026-03-14T09:26:53,1500,"), record)
	assert.Contains(t, record, ",POST,/alexa/skill,2,,200,5,")
	assert.Contains(t, record, "\"first\nsecond\"")
}

func TestAppendAccessLog(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "access.log")
	require.NoError(t, appendAccessLog(logFile, 0644, []byte("a\n")))
	require.NoError(t, appendAccessLog(logFile, 0644, []byte("b\n")))
	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(data))

	assert.Error(t, appendAccessLog(filepath.Join(logFile, "nested"), 0644, []byte("c")))
}
