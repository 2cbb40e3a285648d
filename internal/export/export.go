// Package export reads and writes the interchange file for the tab list.
// The format is the extension's own: a JSON array of {tabTitle, url, org?}
// with 4-space indentation, named again-why-salesforce.json.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lotas/setuptabs/internal/store"
	"github.com/lotas/setuptabs/internal/types"
)

const (
	// FileName is the fixed interchange file name.
	FileName = "again-why-salesforce.json"

	// BackupName is the lz4-framed variant written alongside exports.
	BackupName = "again-why-salesforce.json.lz4"
)

// WriteFile writes the tab list to dir/FileName.
func WriteFile(dir string, tabs types.TabList) (string, error) {
	data, err := json.MarshalIndent(tabs, "", "    ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// WriteBackup writes an lz4-compressed copy next to the JSON export, in the
// same framing the revision history uses.
func WriteBackup(dir string, tabs types.TabList) (string, error) {
	data, err := json.Marshal(tabs)
	if err != nil {
		return "", err
	}
	blob, err := store.CompressPayload(data)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, BackupName)
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	return path, nil
}

// ReadFile loads an interchange file's raw payload for import validation.
// lz4 backups are transparently decompressed.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import: %w", err)
	}
	if filepath.Ext(path) == ".lz4" {
		return store.DecompressPayload(data)
	}
	return data, nil
}

// DefaultPath is where the popup's import/export shortcuts look: the
// current directory's interchange file.
func DefaultPath() string {
	return FileName
}
