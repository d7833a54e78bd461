package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/michael-freling/selective-read-mode/internal/rules"
)

// CurrentSchemaVersion is the version written by this binary.
const CurrentSchemaVersion = 1

var (
	ErrSettingsCorrupted  = errors.New("settings file corrupted")
	ErrUnsupportedVersion = errors.New("unsupported settings schema version")
	ErrSettingsLocked     = errors.New("settings are locked by another process")
	ErrSettingsReadOnly   = errors.New("settings are read-only")
)

// Settings is the persisted root object.
type Settings struct {
	SchemaVersion int           `json:"schemaVersion"`
	Rules         rules.RuleSet `json:"rules"`
}

// LegacySettings is the pre-rule format: a flat list of exact file paths.
// It is only ever read.
type LegacySettings struct {
	ReadModeFiles []string `json:"readModeFiles"`
}

// Default returns the settings used on first run.
func Default() *Settings {
	return &Settings{
		SchemaVersion: CurrentSchemaVersion,
		Rules:         rules.RuleSet{},
	}
}

// Clone returns a deep copy of s.
func (s *Settings) Clone() *Settings {
	return &Settings{
		SchemaVersion: s.SchemaVersion,
		Rules:         s.Rules.Clone(),
	}
}

// Encode serializes settings in the current schema.
func (s *Settings) Encode() ([]byte, error) {
	out := s.Clone()
	out.SchemaVersion = CurrentSchemaVersion

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}
	return data, nil
}

// envelope records which top-level keys a stored blob carries.
type envelope struct {
	SchemaVersion *int            `json:"schemaVersion"`
	Rules         json.RawMessage `json:"rules"`
	ReadModeFiles json.RawMessage `json:"readModeFiles"`
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// detectVersion returns the schema version of a blob. Blobs written before
// schemaVersion existed are recognized by their keys. ok is false when the
// blob carries no recognizable settings at all.
func detectVersion(env envelope) (version int, ok bool) {
	switch {
	case env.SchemaVersion != nil:
		return *env.SchemaVersion, true
	case present(env.Rules):
		return 1, true
	case present(env.ReadModeFiles):
		return 0, true
	default:
		return 0, false
	}
}

// Decode parses a stored blob, upgrading older schemas to the current one.
// migrated reports whether any migration step ran. Empty or unrecognized
// blobs yield defaults. On error the returned settings are also defaults,
// so callers can always proceed.
func Decode(data []byte) (settings *Settings, migrated bool, err error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Default(), false, nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Default(), false, fmt.Errorf("%w: %v", ErrSettingsCorrupted, err)
	}

	version, ok := detectVersion(env)
	if !ok {
		return Default(), false, nil
	}
	if version > CurrentSchemaVersion || version < 0 {
		return Default(), false, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	for version < CurrentSchemaVersion {
		step, ok := migrations[version]
		if !ok {
			return Default(), false, fmt.Errorf("%w: no migration from version %d", ErrUnsupportedVersion, version)
		}

		data, err = step(data)
		if err != nil {
			return Default(), false, fmt.Errorf("failed to migrate settings from version %d: %w", version, err)
		}
		version++
		migrated = true
	}

	settings = Default()
	if err := json.Unmarshal(data, settings); err != nil {
		return Default(), false, fmt.Errorf("%w: %v", ErrSettingsCorrupted, err)
	}
	if settings.Rules == nil {
		settings.Rules = rules.RuleSet{}
	}
	settings.SchemaVersion = CurrentSchemaVersion

	return settings, migrated, nil
}
