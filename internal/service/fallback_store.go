package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/osa911/enquiryd/internal/api/sanitization"
	"github.com/osa911/enquiryd/internal/config"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogRecord is one line of the append-only submission log
type LogRecord struct {
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"receivedAt"`
	Source     string    `json:"source,omitempty"`
	IP         string    `json:"ip,omitempty"`
	RequestID  string    `json:"requestId,omitempty"`
	Dispatched bool      `json:"dispatched"`
}

// NewLogRecord derives the persisted record from a submission
func NewLogRecord(sub Submission, dispatched bool) LogRecord {
	return LogRecord{
		Name:       sub.Name,
		Email:      sub.Email,
		Message:    sub.Message,
		ReceivedAt: sub.ReceivedAt.UTC(),
		Source:     sub.Source,
		IP:         sub.ClientIP,
		RequestID:  sub.RequestID,
		Dispatched: dispatched,
	}
}

// FallbackStore appends submission records. Records are never modified once written.
type FallbackStore interface {
	Append(ctx context.Context, record LogRecord) error
	Close() error
}

// RecordEncoder turns a record into exactly one line, newline included
type RecordEncoder func(record LogRecord) ([]byte, error)

// EncodeJSONLine writes the record as a single JSON object
func EncodeJSONLine(record LogRecord) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// EncodeTextLine writes "receivedAt | email | name | ip"
func EncodeTextLine(record LogRecord) ([]byte, error) {
	fields := []string{
		record.ReceivedAt.Format(time.RFC3339Nano),
		sanitization.SingleLine(record.Email),
		sanitization.SingleLine(record.Name),
		record.IP,
	}
	return []byte(strings.Join(fields, " | ") + "\n"), nil
}

// FileFallbackStore appends records to a local file through a size rotated writer.
// Rotated files are kept indefinitely and never compressed.
type FileFallbackStore struct {
	writer io.WriteCloser
	encode RecordEncoder
	path   string
}

// NewFileFallbackStore creates the containing directory and prepares the writer
func NewFileFallbackStore(cfg config.FallbackConfig) (*FileFallbackStore, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, fmt.Errorf("failed to create fallback log directory: %w", err)
	}

	encode := EncodeJSONLine
	if cfg.Format == config.FallbackFormatText {
		encode = EncodeTextLine
	}

	writer := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: 0,
		MaxAge:     0,
		Compress:   false,
	}

	return &FileFallbackStore{
		writer: writer,
		encode: encode,
		path:   cfg.File,
	}, nil
}

// Append writes one record with a single Write call; the writer serializes concurrent calls.
func (s *FileFallbackStore) Append(_ context.Context, record LogRecord) error {
	line, err := s.encode(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if _, err := s.writer.Write(line); err != nil {
		return fmt.Errorf("failed to append record to %s: %w", s.path, err)
	}
	return nil
}

// Close closes the underlying file
func (s *FileFallbackStore) Close() error {
	return s.writer.Close()
}

// NoopFallbackStore discards records when fallback persistence is disabled
type NoopFallbackStore struct{}

func (NoopFallbackStore) Append(context.Context, LogRecord) error { return nil }

func (NoopFallbackStore) Close() error { return nil }

// NewFallbackStore picks the store matching the configuration
func NewFallbackStore(cfg config.FallbackConfig) (FallbackStore, error) {
	if !cfg.Enabled {
		return NoopFallbackStore{}, nil
	}
	return NewFileFallbackStore(cfg)
}
