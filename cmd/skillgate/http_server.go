package main

import (
	"context"
	"crypto/tls"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/net/netutil"
)

type httpServer struct {
	server *http.Server
	lock   sync.Mutex
}

type httpContextKey string

const (
	httpLogMessage httpContextKey = "logMessage"
	httpRequestID  httpContextKey = "requestId"
)

const requestIDHeader = "X-Request-Id"

// access log file open attempts while a rotation may hold it
const accessLogOpenAttempts = 6

func validateHttpServerConfig(cfgError configError) {
	cfg := &config.HttpServer
	if cfg.Port < 1 || cfg.Port > 65535 {
		cfgError("httpServer.port must be between 1 and 65535.")
	}
	if cfg.Log != nil {
		validateHttpLogConfig(cfg.Log, cfgError)
	}
	if cfg.Gzip != nil {
		validateGzipConfig(cfg.Gzip, cfgError)
	}
	validateTLSConfig(cfg.TLSFiles, cfg.TLSAcme, cfgError)
}

func validateHttpLogConfig(logCfg *HttpLogConfig, cfgError configError) {
	if logCfg.File == "" {
		logCfg.File = appName + ".log"
	}
	if logCfg.DirMode == 0 {
		logCfg.DirMode = 0755
	}
	if logCfg.FileMode == 0 {
		logCfg.FileMode = 0644
	}
	if logCfg.Dir == "" {
		cfgError("httpServer.log.dir is required.")
	} else if err := os.MkdirAll(logCfg.Dir, logCfg.DirMode); err != nil {
		cfgError(fmt.Sprintf("httpServer.log.dir is not valid: %v", err))
	}

	var err error
	if logCfg.MaxSizeBytes, err = parseSizeString(logCfg.MaxSize); err == nil && logCfg.MaxSizeBytes < 0 {
		err = fmt.Errorf("negative value not allowed")
	}
	if err != nil {
		cfgError(fmt.Sprintf("httpServer.log.maxSize is not valid: %v", err))
	}
	if logCfg.MaxAgeDuration, err = parseTimeDuration(logCfg.MaxAge); err == nil && logCfg.MaxAgeDuration < 0 {
		err = fmt.Errorf("negative value not allowed")
	}
	if err != nil {
		cfgError(fmt.Sprintf("httpServer.log.maxAge is not valid: %v", err))
	}

	if logCfg.Backups < 0 {
		cfgError("httpServer.log.backups must not be negative.")
	}
	if logCfg.BackupDays < 0 {
		cfgError("httpServer.log.backupDays must not be negative.")
	}
	switch logCfg.Archive = strings.ToLower(logCfg.Archive); logCfg.Archive {
	case "", "zip":
	default:
		cfgError("httpServer.log.archive could be either empty or has \"zip\" value.")
	}
}

func validateGzipConfig(gzipCfg *GzipConfig, cfgError configError) {
	if gzipCfg.Level == 0 {
		gzipCfg.Level = -1
	}
	if gzipCfg.Level < -2 || gzipCfg.Level > 9 {
		cfgError("httpServer.gzip.level must be between -2 and 9.")
	}
	for _, pattern := range append(append([]string{}, gzipCfg.Includes...), gzipCfg.Excludes...) {
		if _, err := path.Match(pattern, ""); err != nil {
			cfgError(fmt.Sprintf("httpServer.gzip pattern '%v' is not valid: %v", pattern, err))
		}
	}
}

func validateTLSConfig(files *TLSFiles, acmeCfg *TLSAcme, cfgError configError) {
	if files != nil && acmeCfg != nil {
		cfgError("httpServer.tlsFiles and httpServer.tlsAcme are mutually exclusive.")
	}
	if files != nil {
		for name, file := range map[string]string{"certificate": files.Certificate, "key": files.Key} {
			if file == "" {
				cfgError(fmt.Sprintf("httpServer.tlsFiles.%v must be specified.", name))
			} else if _, err := os.Stat(file); err != nil {
				cfgError(fmt.Sprintf("httpServer.tlsFiles.%v is not accessible: %v", name, err))
			}
		}
	}
	if acmeCfg != nil {
		switch {
		case len(acmeCfg.HostWhitelist) == 0:
			cfgError("httpServer.tlsAcme.hostWhitelist must not be empty.")
		case slices.Contains(acmeCfg.HostWhitelist, ""):
			cfgError("httpServer.tlsAcme.hostWhitelist must not contain empty item.")
		}
		if acmeCfg.CacheDir == "" {
			cfgError("httpServer.tlsAcme.cacheDir cannot be empty.")
		}
	}
}

// acmeTLSConfig obtains certificates for the whitelisted hosts on demand.
func acmeTLSConfig(acmeCfg *TLSAcme) *tls.Config {
	manager := &autocert.Manager{
		Cache:       autocert.DirCache(acmeCfg.CacheDir),
		Prompt:      autocert.AcceptTOS,
		HostPolicy:  autocert.HostWhitelist(acmeCfg.HostWhitelist...),
		RenewBefore: time.Duration(acmeCfg.RenewBefore) * 24 * time.Hour,
		Email:       acmeCfg.Email,
	}
	if acmeCfg.DirectoryURL != "" {
		manager.Client = &acme.Client{DirectoryURL: acmeCfg.DirectoryURL}
	}
	return manager.TLSConfig()
}

func millis(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func (srv *httpServer) init(errorLog *log.Logger) {
	srv.lock.Lock()
	defer srv.lock.Unlock()

	cfg := config.HttpServer
	srv.server = &http.Server{
		Handler:           newRouter(errorLog),
		ReadTimeout:       millis(cfg.ReadTimeout),
		ReadHeaderTimeout: millis(cfg.ReadHeaderTimeout),
		WriteTimeout:      millis(cfg.WriteTimeout),
		IdleTimeout:       millis(cfg.IdleTimeout),
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		ErrorLog:          errorLog,
	}
	if cfg.TLSAcme != nil {
		srv.server.TLSConfig = acmeTLSConfig(cfg.TLSAcme)
	}
}

func newRouter(errorLog *log.Logger) http.Handler {
	router := http.NewServeMux()

	addAlexaSkillRoutes(router)
	addHealthRoutes(router)
	addMetricsRoutes(router)

	var handler http.Handler = router
	if gzipCfg := config.HttpServer.Gzip; gzipCfg != nil {
		handler = gzipHandler(handler, gzipCfg.Includes, gzipCfg.Excludes, gzipCfg.Level)
	}
	if config.HttpServer.Log != nil {
		handler = logHandler(errorLog)(handler)
	}
	return requestIDHandler(handler)
}

func (srv *httpServer) start() error {
	errorLog, err := zap.NewStdLogAt(logger.Named("http"), zap.WarnLevel)
	if err != nil {
		return err
	}
	srv.init(errorLog)

	cfg := config.HttpServer
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(cfg.Port))
	if err != nil {
		return fmt.Errorf("Listen on %v port failed: %v", cfg.Port, err)
	}
	defer listener.Close()
	if cfg.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.MaxConnections)
	}

	useTLS := cfg.TLSFiles != nil || cfg.TLSAcme != nil
	logger.Info("http server started", zap.Int("port", cfg.Port), zap.Bool("tls", useTLS))

	switch {
	case cfg.TLSFiles != nil:
		err = srv.server.ServeTLS(listener, cfg.TLSFiles.Certificate, cfg.TLSFiles.Key)
	case cfg.TLSAcme != nil:
		// certificates come from TLSConfig.GetCertificate
		err = srv.server.ServeTLS(listener, "", "")
	default:
		err = srv.server.Serve(listener)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("Failed to start HTTP server: %v", err)
	}
	return nil
}

func (srv *httpServer) stop() error {
	srv.lock.Lock()
	defer srv.lock.Unlock()

	if srv.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("Error occured during HTTP server stop: %v", err)
	}
	return nil
}

func requestIDHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), httpRequestID, id)))
	})
}

func httpRequestIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(httpRequestID).(string)
	return id
}

type logResponseWriter struct {
	http.ResponseWriter
	statusCode    int
	contentLength int64
}

func (w *logResponseWriter) WriteHeader(status int) {
	w.statusCode = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *logResponseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.contentLength += int64(n)
	return n, err
}

// httpAppendToLog adds a note to the access log record of the request.
func httpAppendToLog(r *http.Request, message string) {
	notes, ok := r.Context().Value(httpLogMessage).(*strings.Builder)
	if !ok {
		return
	}
	if notes.Len() > 0 {
		notes.WriteByte('\n')
	}
	notes.WriteString(message)
}

// accessLogRecord formats one CSV line of the access log.
func accessLogRecord(r *http.Request, w *logResponseWriter, start time.Time, elapsed time.Duration, notes string) []byte {
	var b strings.Builder
	csvw := csv.NewWriter(&b)
	csvw.Write([]string{
		start.Format("2006-01-02T15:04:05.999"),
		strconv.FormatInt(elapsed.Milliseconds(), 10),
		r.RemoteAddr,
		r.Host,
		r.Proto,
		r.Method,
		r.RequestURI,
		strconv.FormatInt(r.ContentLength, 10),
		httpRequestIDFrom(r),
		strconv.Itoa(w.statusCode),
		strconv.FormatInt(w.contentLength, 10),
		notes,
	})
	csvw.Flush()
	return []byte(b.String())
}

// appendAccessLog appends data to the log file, retrying the open briefly.
func appendAccessLog(logFile string, mode os.FileMode, data []byte) error {
	var f *os.File
	var err error
	for attempt := 0; attempt < accessLogOpenAttempts; attempt++ {
		if f, err = os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, mode); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

func logHandler(errorLog *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now().Local()
			lrw := &logResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			var notes strings.Builder
			r = r.WithContext(context.WithValue(r.Context(), httpLogMessage, &notes))

			next.ServeHTTP(lrw, r)

			record := accessLogRecord(r, lrw, start, time.Since(start), notes.String())
			logCfg := config.HttpServer.Log
			logFile := filepath.Join(logCfg.Dir, logCfg.File)
			logRotate.rotate(logFile, errorLog)
			if err := appendAccessLog(logFile, logCfg.FileMode, record); err != nil {
				errorLog.Printf("Unable to log HTTP request:%v%v%vreason: %v", NewLine, string(record), NewLine, err)
			}
		})
	}
}
