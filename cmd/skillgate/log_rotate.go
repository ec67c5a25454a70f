package main

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

type logRotation struct {
	lock uint32
	wait func() // test hook, called when the background rotation is done
}

var logRotate logRotation
var logRotatePattern = regexp.MustCompile(`^-(\d{4}-\d{2}-\d{2})_(\d+)$`)

const logRotateDateLayout = "2006-01-02"

func (r *logRotation) rotate(logFile string, errorLog *log.Logger) {
	logCfg := config.HttpServer.Log

	if !((logCfg.Backups > 0 || logCfg.BackupDays > 0) && (logCfg.MaxSizeBytes > 0 || logCfg.MaxAgeDuration > 0)) {
		return // rotation is not enabled
	}

	if !atomic.CompareAndSwapUint32(&r.lock, 0, 1) {
		return // rotation in progress
	}

	rotate := false
	statusFile := logFile + ".status"

	fi, err := os.Stat(logFile)
	if err == nil {
		if logCfg.MaxAgeDuration > 0 {
			sfi, err := os.Stat(statusFile)
			if err != nil {
				if os.IsNotExist(err) {
					var f *os.File
					if f, err = os.OpenFile(statusFile, os.O_CREATE, logCfg.FileMode); err == nil {
						f.Close()
					}
				}
				if err != nil {
					errorLog.Printf("HTTP log rotation status file error: %v", err)
				}
			} else if time.Since(sfi.ModTime()) > logCfg.MaxAgeDuration {
				rotate = true
			}
		}
		if logCfg.MaxSizeBytes > 0 && fi.Size() > logCfg.MaxSizeBytes {
			rotate = true
		}
	}

	if !rotate {
		atomic.StoreUint32(&r.lock, 0)
		return
	}

	go func() {
		defer func() {
			atomic.StoreUint32(&r.lock, 0)
			if r.wait != nil {
				r.wait()
			}
		}()

		var now time.Time
		var err error

		backupFile := logFile + ".backup"
		for i := 0; i < 6; i++ {
			now = time.Now()
			err = os.Rename(logFile, backupFile)
			if err == nil || os.IsNotExist(err) {
				break
			}
			time.Sleep(50 * time.Millisecond)
		}
		if err != nil {
			if !os.IsNotExist(err) {
				errorLog.Printf("HTTP log rotation backup file error: %v", err)
			}
			return
		}

		if logCfg.MaxAgeDuration > 0 {
			defer func() {
				if err := os.Chtimes(statusFile, now, now); err != nil {
					errorLog.Printf("HTTP log rotation status file touch error: %v", err)
				}
			}()
		}

		if err := archiveBackup(logFile, backupFile, logCfg, now, errorLog); err != nil {
			errorLog.Printf("HTTP log rotation archive error: %v", err)
		}
		pruneBackups(logFile, logCfg, now, errorLog)
	}()
}

func backupExtension(logCfg *HttpLogConfig) string {
	if logCfg.Archive == "zip" {
		return ".zip"
	}
	return ""
}

// archiveBackup moves backupFile to the next free logFile-<date>_<n> name, zipped if configured.
func archiveBackup(logFile, backupFile string, logCfg *HttpLogConfig, now time.Time, errorLog *log.Logger) error {
	extension := backupExtension(logCfg)
	date := now.Format(logRotateDateLayout)

	var files backupFiles
	files.populate(logFile, extension, errorLog)
	ordinal := 1
	for _, f := range files.files {
		if f.date == date && f.ordinal >= ordinal {
			ordinal = f.ordinal + 1
		}
	}
	target := fmt.Sprintf("%v-%v_%v%v", logFile, date, ordinal, extension)

	if extension == "" {
		return os.Rename(backupFile, target)
	}
	if err := zipFile(backupFile, target, filepath.Base(logFile), logCfg.FileMode, now); err != nil {
		os.Remove(target)
		return err
	}
	return os.Remove(backupFile)
}

func zipFile(src, dst, name string, mode os.FileMode, modified time.Time) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(out)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err == nil {
		_, err = io.Copy(w, in)
	}
	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}

// pruneBackups keeps at most Backups newest files, none older than BackupDays.
func pruneBackups(logFile string, logCfg *HttpLogConfig, now time.Time, errorLog *log.Logger) {
	var files backupFiles
	files.populate(logFile, backupExtension(logCfg), errorLog)

	cutoff := ""
	if logCfg.BackupDays > 0 {
		cutoff = now.AddDate(0, 0, -logCfg.BackupDays).Format(logRotateDateLayout)
	}
	for i, f := range files.files {
		if (logCfg.Backups > 0 && i >= logCfg.Backups) || (cutoff != "" && f.date < cutoff) {
			if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
				errorLog.Printf("HTTP log rotation - delete backup file error: %v", err)
			}
		}
	}
}

type backupFileInfo struct {
	path    string
	date    string
	ordinal int
}

// Less orders newer backups first.
func (l *backupFileInfo) Less(r *backupFileInfo) bool {
	rc := strings.Compare(l.date, r.date)
	if rc > 0 {
		return true
	} else if rc == 0 {
		return l.ordinal > r.ordinal
	}
	return false
}

type backupFiles struct {
	files []backupFileInfo
}

func (f *backupFiles) Len() int {
	return len(f.files)
}

func (f *backupFiles) Swap(i, j int) {
	f.files[i], f.files[j] = f.files[j], f.files[i]
}

func (f *backupFiles) Less(i, j int) bool {
	return f.files[i].Less(&f.files[j])
}

func (f *backupFiles) populate(logFile, extension string, errorLog *log.Logger) {
	var errors strings.Builder

	f.files = nil
	logDir := filepath.Dir(logFile)
	err := filepath.Walk(logDir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			errors.WriteString(NewLine + err.Error())
			return nil
		}
		if fi.IsDir() {
			if path == logDir {
				return nil
			}
			return filepath.SkipDir
		}
		if strings.HasPrefix(path, logFile) && strings.HasSuffix(path, extension) && path != logFile {
			name := path[len(logFile) : len(path)-len(extension)]
			m := logRotatePattern.FindStringSubmatch(name)
			if m != nil {
				if ordinal, err := strconv.Atoi(m[2]); err == nil {
					f.files = append(f.files, backupFileInfo{path: path, date: m[1], ordinal: ordinal})
				}
			}
		}
		return nil
	})

	if err != nil {
		errors.WriteString(NewLine + err.Error())
	}
	if errors.Len() > 0 {
		errorLog.Printf("HTTP log rotation - get backup files error:%v", errors.String())
		f.files = nil
	}
	sort.Sort(f)
}
