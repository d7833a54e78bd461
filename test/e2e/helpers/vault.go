package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// TempVault represents a temporary vault of markdown notes for testing
type TempVault struct {
	Dir string
	t   *testing.T
}

// NewTempVault creates a new empty vault with a .obsidian directory
func NewTempVault(t *testing.T) *TempVault {
	t.Helper()

	dir, err := os.MkdirTemp("", "e2e-vault-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	vault := &TempVault{
		Dir: dir,
		t:   t,
	}

	if err := os.MkdirAll(filepath.Join(dir, ".obsidian"), 0755); err != nil {
		_ = os.RemoveAll(dir) // Ignore cleanup error, already failing
		t.Fatalf("failed to create .obsidian directory: %v", err)
	}

	t.Cleanup(func() {
		vault.Cleanup()
	})

	return vault
}

// Cleanup removes the temporary directory
func (v *TempVault) Cleanup() {
	v.t.Helper()

	if err := os.RemoveAll(v.Dir); err != nil {
		v.t.Errorf("failed to cleanup temp vault: %v", err)
	}
}

// CreateNote creates a note with the given content
func (v *TempVault) CreateNote(path, content string) error {
	v.t.Helper()

	fullPath := filepath.Join(v.Dir, filepath.FromSlash(path))

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", fullPath, err)
	}

	return nil
}

// SettingsPath returns the default location of the plugin settings file
func (v *TempVault) SettingsPath() string {
	return filepath.Join(v.Dir, ".obsidian", "plugins", "selective-read-mode", "data.json")
}

// WriteSettings replaces the plugin settings file
func (v *TempVault) WriteSettings(content string) error {
	v.t.Helper()

	path := v.SettingsPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	return nil
}
