package services

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"ComandaPOS/app/config"
)

// LoggerService writes daily log files and mirrors them to stdout. It replaces
// the standard logger so packages can log with bracketed level prefixes.
type LoggerService struct {
	mu         sync.Mutex
	logDir     string
	logFile    *os.File
	logger     *log.Logger
	currentDay string
	now        func() time.Time
}

// NewLoggerService creates a logger writing to <app dir>/logs
func NewLoggerService() *LoggerService {
	dir := "logs"
	if appDir, err := config.AppDir(); err == nil {
		dir = filepath.Join(appDir, "logs")
	} else {
		log.Printf("[WARNING] Could not resolve application directory: %v", err)
	}
	return NewLoggerServiceAt(dir)
}

// NewLoggerServiceAt creates a logger writing to dir
func NewLoggerServiceAt(dir string) *LoggerService {
	s := &LoggerService{logDir: dir, now: time.Now}
	s.initializeLogger()
	return s
}

func (s *LoggerService) initializeLogger() {
	if err := os.MkdirAll(s.logDir, 0755); err != nil {
		log.Printf("[WARNING] Could not create logs directory: %v", err)
	}

	s.mu.Lock()
	err := s.rotateLogFile()
	s.mu.Unlock()
	if err != nil {
		// Continue without file logging
		log.Printf("[WARNING] Could not create log file: %v. Logging to stdout only.", err)
		s.logger = log.New(os.Stdout, "", log.LstdFlags)
		return
	}

	s.LogInfo("Logger initialized", fmt.Sprintf("Log directory: %s", s.logDir))
}

// rotateLogFile switches to the file for the current day. Callers hold mu.
func (s *LoggerService) rotateLogFile() error {
	today := s.now().Format("2006-01-02")
	if s.currentDay == today && s.logFile != nil {
		return nil
	}

	file, err := os.OpenFile(filepath.Join(s.logDir, today+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if s.logFile != nil {
		s.logFile.Close()
	}
	s.logFile = file
	s.currentDay = today

	out := io.MultiWriter(os.Stdout, file)
	if s.logger == nil {
		s.logger = log.New(out, "", log.LstdFlags)
	} else {
		s.logger.SetOutput(out)
	}
	log.SetOutput(out)
	log.SetFlags(log.LstdFlags)
	return nil
}

func (s *LoggerService) write(level, message string, details []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.logFile != nil {
		s.rotateLogFile()
	}
	line := fmt.Sprintf("[%s] %s", level, message)
	if len(details) > 0 && details[0] != "" {
		line += " | " + strings.Join(details, " | ")
	}
	s.logger.Print(line)
}

// LogInfo logs an informational message
func (s *LoggerService) LogInfo(message string, details ...string) {
	s.write("INFO", message, details)
}

// LogWarning logs a warning message
func (s *LoggerService) LogWarning(message string, details ...string) {
	s.write("WARNING", message, details)
}

// LogError logs an error message
func (s *LoggerService) LogError(message string, err error, details ...string) {
	if err != nil {
		message = fmt.Sprintf("%s | Error: %v", message, err)
	}
	s.write("ERROR", message, details)
}

// LogPanic logs a panic with stack trace
func (s *LoggerService) LogPanic(recovered interface{}) {
	s.write("PANIC", fmt.Sprintf("Recovered from panic: %v", recovered), nil)
	s.write("PANIC", "Stack trace:\n"+string(debug.Stack()), nil)
}

// RecoverPanic is a helper to recover from panics in goroutines
func (s *LoggerService) RecoverPanic() {
	if r := recover(); r != nil {
		s.LogPanic(r)
	}
}

// LogFrontendError logs errors reported by the web view
func (s *LoggerService) LogFrontendError(message string, stack string) {
	s.write("FRONTEND ERROR", message, nil)
	if stack != "" {
		s.write("FRONTEND ERROR", "Stack trace:\n"+stack, nil)
	}
}

// GetLogDirectory returns the directory where logs are stored
func (s *LoggerService) GetLogDirectory() string {
	return s.logDir
}

// CleanOldLogs removes log files older than the given number of days
func (s *LoggerService) CleanOldLogs(daysToKeep int) error {
	files, err := os.ReadDir(s.logDir)
	if err != nil {
		return err
	}

	cutoff := s.now().AddDate(0, 0, -daysToKeep)
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".log" {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(s.logDir, file.Name())
			s.LogInfo("Deleting old log file", path)
			os.Remove(path)
		}
	}
	return nil
}

// Close closes the log file
func (s *LoggerService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.logFile != nil {
		log.SetOutput(os.Stdout)
		s.logger.SetOutput(os.Stdout)
		s.logFile.Close()
		s.logFile = nil
	}
}
