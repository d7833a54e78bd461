package settings

import (
	"encoding/json"
	"fmt"

	"github.com/michael-freling/selective-read-mode/internal/rules"
)

// migrationStep upgrades a blob from version N to version N+1.
type migrationStep func(data []byte) ([]byte, error)

// migrations is keyed by the version a step upgrades from.
var migrations = map[int]migrationStep{
	0: migrateReadModeFiles,
}

// migrateReadModeFiles converts the legacy readModeFiles list into file rules.
func migrateReadModeFiles(data []byte) ([]byte, error) {
	var legacy LegacySettings
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSettingsCorrupted, err)
	}

	out := Settings{
		SchemaVersion: 1,
		Rules:         make(rules.RuleSet, 0, len(legacy.ReadModeFiles)),
	}
	for _, path := range legacy.ReadModeFiles {
		out.Rules = append(out.Rules, rules.Rule{
			Path: path,
			Type: rules.RuleTypeFile,
		})
	}

	return json.Marshal(out)
}
