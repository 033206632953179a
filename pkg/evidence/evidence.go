// Package evidence writes per-call records of routed requests to disk.
package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zen-systems/modelmux/pkg/adapter"
	"github.com/zen-systems/modelmux/pkg/cost"
	"github.com/zen-systems/modelmux/pkg/router"
)

// CallRecord captures one logical call through a router.
type CallRecord struct {
	ID             string                    `json:"id"`
	Timestamp      time.Time                 `json:"timestamp"`
	Mode           string                    `json:"mode"`
	PromptHash     string                    `json:"prompt_hash"`
	Selection      *router.SelectionMetadata `json:"selection,omitempty"`
	FinishReason   string                    `json:"finish_reason,omitempty"`
	Usage          *adapter.Usage            `json:"usage,omitempty"`
	Cost           *cost.CallReport          `json:"cost,omitempty"`
	OutputHash     string                    `json:"output_hash,omitempty"`
	Error          string                    `json:"error,omitempty"`
	DurationMillis int64                     `json:"duration_ms"`
}

// Writer writes call records under baseDir.
type Writer struct {
	baseDir string
}

// NewWriter creates baseDir and returns a writer rooted there.
func NewWriter(baseDir string) (*Writer, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if err := os.MkdirAll(filepath.Join(baseDir, "calls"), 0700); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(baseDir, "blobs"), 0700); err != nil {
		return nil, err
	}
	return &Writer{baseDir: baseDir}, nil
}

// Dir returns the base directory.
func (w *Writer) Dir() string {
	return w.baseDir
}

// WriteCall writes record to calls/<id>.json.
func (w *Writer) WriteCall(record CallRecord) (string, error) {
	if record.ID == "" {
		return "", fmt.Errorf("call ID is required")
	}
	path := filepath.Join(w.baseDir, "calls", record.ID+".json")
	return path, writeJSON(path, record)
}

// WriteBlob stores data under its SHA-256 hash and returns the hash.
func (w *Writer) WriteBlob(data []byte) (string, error) {
	hash := Hash(data)
	path := filepath.Join(w.baseDir, "blobs", hash)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", err
	}
	return hash, nil
}

// ReadCall loads a call record by ID.
func (w *Writer) ReadCall(id string) (*CallRecord, error) {
	data, err := os.ReadFile(filepath.Join(w.baseDir, "calls", id+".json"))
	if err != nil {
		return nil, err
	}
	var record CallRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode call %s: %w", id, err)
	}
	return &record, nil
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
