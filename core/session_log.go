package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ConversationMetadata is the first JSON line in each conversation log file.
type ConversationMetadata struct {
	SessionID string `json:"session_id"`
	Voice     string `json:"voice,omitempty"`
	StartedAt string `json:"started_at"`
}

// LogEntry is a single JSON log line written after the metadata line.
type LogEntry struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Message   string                 `json:"msg"`
	Attrs     map[string]interface{} `json:"attrs,omitempty"`
}

// LogWriter abstracts the destination for conversation log entries.
type LogWriter interface {
	Write(level, msg string, attrs map[string]interface{})
	Close()
}

// ConversationLogWriter writes structured log lines to a per-conversation
// .jsonl file: state transitions, frame counts, interrupts, errors.
type ConversationLogWriter struct {
	mu        sync.Mutex
	file      *os.File
	logDir    string
	sessionID string
}

// NewConversationLogWriter creates the log directory and conversation log
// file and writes the metadata first line.
func NewConversationLogWriter(logDir, sessionID, voice string) (*ConversationLogWriter, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("conversation logger: mkdir %q: %w", logDir, err)
	}

	filePath := filepath.Join(logDir, sessionID+".jsonl")
	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("conversation logger: create %q: %w", filePath, err)
	}

	meta := ConversationMetadata{
		SessionID: sessionID,
		Voice:     voice,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
	data, _ := json.Marshal(meta)
	f.Write(data)
	f.Write([]byte("\n"))

	return &ConversationLogWriter{
		file:      f,
		logDir:    logDir,
		sessionID: sessionID,
	}, nil
}

// Write appends a structured log line to the conversation file.
func (w *ConversationLogWriter) Write(level, msg string, attrs map[string]interface{}) {
	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Message:   msg,
		Attrs:     attrs,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		w.file.Write(data)
		w.file.Write([]byte("\n"))
	}
}

// Close flushes and closes the log file.
func (w *ConversationLogWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
}

// NewConversationLogger creates a Logger that tees output to both the base
// logger (console) and the provided LogWriter. Child loggers created via
// With() inherit this behaviour automatically.
func NewConversationLogger(baseLogger *Logger, writer LogWriter) *Logger {
	handler := func(level string, msg string, attrs map[string]interface{}) {
		if baseLogger.handlerFunc != nil {
			baseLogger.handlerFunc(level, msg, attrs)
		}
		writer.Write(level, msg, attrs)
	}

	return &Logger{
		handlerFunc: handler,
		attrs:       make(map[string]interface{}),
	}
}
