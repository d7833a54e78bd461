package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/michael-freling/selective-read-mode/internal/log"
	"github.com/michael-freling/selective-read-mode/internal/settings"
)

const pluginID = "selective-read-mode"

var (
	vaultDir     string
	settingsPath string
	logLevel     string
	logFormat    string
	noColor      bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "readmode",
		Short: "Open selected notes in read mode",
		Long:  `A CLI tool that manages read-mode rules for a vault and tells the host application which notes to open in read mode.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts, err := log.ParseOptions(logLevel, logFormat)
			if err != nil {
				return err
			}
			opts.Component = commandComponent(cmd)
			opts.NoColor = noColor
			slog.SetDefault(slog.New(log.NewHandler(cmd.ErrOrStderr(), opts)))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&vaultDir, "vault", ".", "vault root directory")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "settings file (default <vault>/.obsidian/plugins/"+pluginID+"/data.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", fmt.Sprintf("log level, one of: %s", log.AllLevels))
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", fmt.Sprintf("log format, one of: %s", log.AllFormats))
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored log output")

	rootCmd.AddCommand(newRulesCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newSuggestCmd())
	rootCmd.AddCommand(newWatchCmd())

	return rootCmd
}

// commandComponent names cmd without the root, e.g. "rules add".
func commandComponent(cmd *cobra.Command) string {
	if !cmd.HasParent() {
		return ""
	}
	return strings.TrimPrefix(cmd.CommandPath(), cmd.Root().Name()+" ")
}

func resolveSettingsPath() string {
	if settingsPath != "" {
		return settingsPath
	}
	return filepath.Join(vaultDir, ".obsidian", "plugins", pluginID, "data.json")
}

// openStore loads the settings store. Callers must Close it so pending
// saves reach disk.
func openStore(ctx context.Context) (*settings.Store, error) {
	storage := settings.NewFileStorage(resolveSettingsPath())
	store := settings.NewStore(storage, settings.WithLogger(slog.Default()))

	if err := store.Load(ctx); err != nil {
		store.Close(ctx)
		return nil, err
	}
	return store, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Convert legacy settings to rules",
		Long:  `Converts a legacy readModeFiles list into file rules. Running it on current settings does nothing.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// Load would migrate on its own; read storage directly instead so
			// the command can report what happened.
			store := settings.NewStore(settings.NewFileStorage(resolveSettingsPath()), settings.WithLogger(slog.Default()))
			defer store.Close(ctx)

			migrated, err := store.Migrate(ctx)
			if err != nil {
				return fmt.Errorf("failed to migrate settings: %w", err)
			}

			if !migrated {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to migrate")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d legacy file(s) to rules\n", len(store.Rules()))
			return nil
		},
	}
}
