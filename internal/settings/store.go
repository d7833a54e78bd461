package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/michael-freling/selective-read-mode/internal/rules"
)

// RuleUpdate holds the fields to change on an existing rule. Nil fields are
// left as they are.
type RuleUpdate struct {
	Path *string
	Type *rules.RuleType
}

// Store owns the ordered rule list and keeps it in sync with Storage.
// Every mutation schedules an asynchronous save of the whole Settings
// object; Flush or Close wait for those saves to land.
type Store struct {
	storage   Storage
	logger    *slog.Logger
	persister *persister

	mu       sync.RWMutex
	settings *Settings
	// readOnly is set while storage holds a schema this binary cannot
	// decode. Mutations are refused so the stored blob is never replaced.
	readOnly error
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used by the store.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a Store holding default settings. Call Load to read
// persisted settings.
func NewStore(storage Storage, opts ...StoreOption) *Store {
	s := &Store{
		storage:  storage,
		logger:   slog.Default(),
		settings: Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.persister = newPersister(storage, s.logger)
	return s
}

// Load reads persisted settings, replacing the in-memory copy. Unreadable
// contents fall back to defaults. When an older schema was found, the
// upgraded settings are saved before Load returns.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.storage.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	settings, migrated, err := Decode(data)
	var readOnly error
	switch {
	case errors.Is(err, ErrUnsupportedVersion):
		readOnly = err
		s.logger.Warn("settings were written by a newer version, using defaults without saving", slog.Any("error", err))
	case err != nil:
		s.logger.Warn("ignoring unreadable settings, using defaults", slog.Any("error", err))
	}

	s.mu.Lock()
	s.settings = settings
	s.readOnly = readOnly
	if migrated {
		s.enqueueLocked()
	}
	s.mu.Unlock()

	if !migrated {
		return nil
	}

	s.logger.Info("migrated legacy settings", slog.Int("rules", len(settings.Rules)))
	if err := s.persister.flush(ctx); err != nil {
		return fmt.Errorf("failed to save migrated settings: %w", err)
	}
	return nil
}

// Migrate upgrades legacy settings in storage. It only converts when the
// stored blob has the legacy shape, so running it again is a no-op.
func (s *Store) Migrate(ctx context.Context) (bool, error) {
	data, err := s.storage.Read(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read settings: %w", err)
	}

	settings, migrated, err := Decode(data)
	if err != nil {
		s.logger.Warn("settings unreadable, nothing to migrate", slog.Any("error", err))
		return false, nil
	}
	if !migrated {
		return false, nil
	}

	s.mu.Lock()
	s.settings = settings
	s.readOnly = nil
	s.enqueueLocked()
	s.mu.Unlock()

	if err := s.persister.flush(ctx); err != nil {
		return true, fmt.Errorf("failed to save migrated settings: %w", err)
	}
	return true, nil
}

// Reload saves pending changes and then re-reads storage, picking up edits
// made by other processes.
func (s *Store) Reload(ctx context.Context) error {
	if err := s.persister.flush(ctx); err != nil {
		s.logger.Warn("reloading settings after a failed save", slog.Any("error", err))
	}
	return s.Load(ctx)
}

// Rules returns a copy of the current rules.
func (s *Store) Rules() rules.RuleSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Rules.Clone()
}

// Settings returns a copy of the current settings.
func (s *Store) Settings() *Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Clone()
}

// Rule returns the rule at index, or ErrRuleNotFound when index is out of
// range.
func (s *Store) Rule(index int) (rules.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.settings.Rules) {
		return rules.Rule{}, fmt.Errorf("%w: index %d", rules.ErrRuleNotFound, index)
	}
	return s.settings.Rules[index], nil
}

// AddRule appends a rule and returns its index. The path is not checked
// against the vault.
func (s *Store) AddRule(path string, ruleType rules.RuleType) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkWritableLocked(); err != nil {
		return -1, err
	}

	s.settings.Rules = append(s.settings.Rules, rules.Rule{
		Path: path,
		Type: ruleType,
	})
	s.enqueueLocked()
	return len(s.settings.Rules) - 1, nil
}

// AddFile adds an exact-match rule for filePath.
func (s *Store) AddFile(filePath string) (int, error) {
	return s.AddRule(filePath, rules.RuleTypeFile)
}

// AddParentFolder adds a folder rule for the folder containing filePath.
// A file at the vault root yields the root folder rule.
func (s *Store) AddParentFolder(filePath string) (int, error) {
	return s.AddRule(rules.ParentFolder(filePath), rules.RuleTypeFolder)
}

// UpdateRule changes the rule at index in place. An out-of-range index
// leaves the rules untouched and returns ErrRuleNotFound.
func (s *Store) UpdateRule(index int, update RuleUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkWritableLocked(); err != nil {
		return err
	}

	if index < 0 || index >= len(s.settings.Rules) {
		return fmt.Errorf("%w: index %d", rules.ErrRuleNotFound, index)
	}

	rule := &s.settings.Rules[index]
	if update.Path != nil {
		rule.Path = *update.Path
	}
	if update.Type != nil {
		rule.Type = *update.Type
	}
	s.enqueueLocked()
	return nil
}

// RemoveRule deletes the rule at index, shifting later rules down. An
// out-of-range index leaves the rules untouched and returns ErrRuleNotFound.
func (s *Store) RemoveRule(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkWritableLocked(); err != nil {
		return err
	}

	if index < 0 || index >= len(s.settings.Rules) {
		return fmt.Errorf("%w: index %d", rules.ErrRuleNotFound, index)
	}

	s.settings.Rules = append(s.settings.Rules[:index], s.settings.Rules[index+1:]...)
	s.enqueueLocked()
	return nil
}

// Flush waits for scheduled saves and returns the last save error.
func (s *Store) Flush(ctx context.Context) error {
	return s.persister.flush(ctx)
}

// Close flushes scheduled saves and stops the background writer. The store
// must not be mutated afterwards.
func (s *Store) Close(ctx context.Context) error {
	return s.persister.close(ctx)
}

func (s *Store) checkWritableLocked() error {
	if s.readOnly != nil {
		return fmt.Errorf("%w: %w", ErrSettingsReadOnly, s.readOnly)
	}
	return nil
}

// enqueueLocked schedules a save of the current settings. Callers hold s.mu
// so snapshots are queued in mutation order.
func (s *Store) enqueueLocked() {
	data, err := s.settings.Encode()
	if err != nil {
		s.logger.Error("failed to encode settings", slog.Any("error", err))
		return
	}
	s.persister.enqueue(data)
}
