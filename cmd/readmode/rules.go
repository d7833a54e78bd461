package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/michael-freling/selective-read-mode/internal/rules"
	"github.com/michael-freling/selective-read-mode/internal/settings"
	"github.com/michael-freling/selective-read-mode/internal/vault"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage read-mode rules",
		Long:  `List, add, update and remove the rules that decide which notes open in read mode.`,
	}

	cmd.AddCommand(newRulesListCmd())
	cmd.AddCommand(newRulesAddCmd())
	cmd.AddCommand(newRulesAddCurrentCmd())
	cmd.AddCommand(newRulesUpdateCmd())
	cmd.AddCommand(newRulesRemoveCmd())

	return cmd
}

func ruleIcon(ruleType rules.RuleType) string {
	if ruleType == rules.RuleTypeFolder {
		return "📁"
	}
	return "📄"
}

func printRule(w io.Writer, index int, rule rules.Rule) {
	fmt.Fprintf(w, "%d\t%s %s\t(%s)\n", index, ruleIcon(rule.Type), rule.DisplayPath(), rule.Type)
}

func parseIndex(s string) (int, error) {
	index, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid rule index %q: %w", s, err)
	}
	return index, nil
}

// pickEntry returns the vault entry that best matches query.
func pickEntry(query string, opts vault.SuggestOptions) (vault.Entry, error) {
	entries, err := vault.List(vaultDir)
	if err != nil {
		return vault.Entry{}, err
	}

	entry, ok := vault.Best(entries, query, opts)
	if !ok {
		return vault.Entry{}, fmt.Errorf("no note or folder matches %q", query)
	}
	return entry, nil
}

func newRulesListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules",
		Long:  `List the configured rules in order.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			ruleSet := store.Rules()
			out := cmd.OutOrStdout()

			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(ruleSet)
			}

			if len(ruleSet) == 0 {
				fmt.Fprintln(out, "No rules configured")
				return nil
			}
			for i, rule := range ruleSet {
				printRule(out, i, rule)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print rules as JSON")

	return cmd
}

func newRulesAddCmd() *cobra.Command {
	var (
		ruleType string
		pick     string
	)

	cmd := &cobra.Command{
		Use:   "add [path]",
		Short: "Add a rule",
		Long: `Add a rule for a file or folder path. With --pick, the best fuzzy match
among the vault's notes and folders is added instead and its type is inferred.
Combine --pick with --type file to pick among notes only.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rule rules.Rule

			switch {
			case pick != "" && len(args) > 0:
				return errors.New("a path and --pick cannot be used together")

			case pick != "":
				var opts vault.SuggestOptions
				if cmd.Flags().Changed("type") {
					parsed, err := rules.ParseRuleType(ruleType)
					if err != nil {
						return err
					}
					if parsed == rules.RuleTypeFolder {
						return errors.New("--pick sets the type from the picked entry; only --type file narrows it to notes")
					}
					opts.NotesOnly = true
				}
				entry, err := pickEntry(pick, opts)
				if err != nil {
					return err
				}
				rule = entry.Rule()

			case len(args) == 1:
				parsed, err := rules.ParseRuleType(ruleType)
				if err != nil {
					return err
				}
				rule = rules.Rule{Path: args[0], Type: parsed}

			default:
				return errors.New("a path or --pick is required")
			}

			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}

			index, err := store.AddRule(rule.Path, rule.Type)
			if err != nil {
				store.Close(ctx)
				return err
			}
			if err := store.Close(ctx); err != nil {
				return fmt.Errorf("failed to save settings: %w", err)
			}

			fmt.Fprint(cmd.OutOrStdout(), "Added rule ")
			printRule(cmd.OutOrStdout(), index, rule)
			return nil
		},
	}

	cmd.Flags().StringVar(&ruleType, "type", string(rules.RuleTypeFile), "rule type (file or folder)")
	cmd.Flags().StringVar(&pick, "pick", "", "fuzzy query to pick a note or folder from the vault")

	return cmd
}

func newRulesAddCurrentCmd() *cobra.Command {
	var folder bool

	cmd := &cobra.Command{
		Use:   "add-current <file>",
		Short: "Add the current file or its folder",
		Long:  `Add a rule for the given file, or with --folder for the folder that contains it.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}

			var index int
			if folder {
				index, err = store.AddParentFolder(args[0])
			} else {
				index, err = store.AddFile(args[0])
			}
			if err != nil {
				store.Close(ctx)
				return err
			}
			rule, err := store.Rule(index)
			if err != nil {
				store.Close(ctx)
				return err
			}

			if err := store.Close(ctx); err != nil {
				return fmt.Errorf("failed to save settings: %w", err)
			}

			fmt.Fprint(cmd.OutOrStdout(), "Added rule ")
			printRule(cmd.OutOrStdout(), index, rule)
			return nil
		},
	}

	cmd.Flags().BoolVar(&folder, "folder", false, "add the file's parent folder instead of the file")

	return cmd
}

func newRulesUpdateCmd() *cobra.Command {
	var (
		newPath string
		newType string
		pick    string
	)

	cmd := &cobra.Command{
		Use:   "update <index>",
		Short: "Change a rule's path or type",
		Long: `Change the path and/or type of the rule at the given index, keeping its position.
With --pick, the path is re-picked from the vault and the type follows the picked
entry. Folders are offered only when the rule is a folder rule.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}

			var update settings.RuleUpdate
			if cmd.Flags().Changed("path") {
				update.Path = &newPath
			}
			if cmd.Flags().Changed("type") {
				parsed, err := rules.ParseRuleType(newType)
				if err != nil {
					return err
				}
				update.Type = &parsed
			}

			switch {
			case pick != "" && (update.Path != nil || update.Type != nil):
				return errors.New("--pick cannot be combined with --path or --type")
			case pick == "" && update.Path == nil && update.Type == nil:
				return errors.New("nothing to update: set --path and/or --type, or --pick")
			}

			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}

			if pick != "" {
				current, err := store.Rule(index)
				if err != nil {
					store.Close(ctx)
					return err
				}

				entry, err := pickEntry(pick, vault.SuggestOptions{
					NotesOnly: current.Type == rules.RuleTypeFile,
				})
				if err != nil {
					store.Close(ctx)
					return err
				}
				update.Path = &entry.Path
				update.Type = &entry.Kind
			}

			if err := store.UpdateRule(index, update); err != nil {
				store.Close(ctx)
				return err
			}
			rule, err := store.Rule(index)
			if err != nil {
				store.Close(ctx)
				return err
			}

			if err := store.Close(ctx); err != nil {
				return fmt.Errorf("failed to save settings: %w", err)
			}

			fmt.Fprint(cmd.OutOrStdout(), "Updated rule ")
			printRule(cmd.OutOrStdout(), index, rule)
			return nil
		},
	}

	cmd.Flags().StringVar(&newPath, "path", "", "new path")
	cmd.Flags().StringVar(&newType, "type", "", "new type (file or folder)")
	cmd.Flags().StringVar(&pick, "pick", "", "fuzzy query to re-pick the path from the vault")

	return cmd
}

func newRulesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove a rule",
		Long:  `Remove the rule at the given index. Later rules move up by one.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}

			if err := store.RemoveRule(index); err != nil {
				store.Close(ctx)
				return err
			}

			if err := store.Close(ctx); err != nil {
				return fmt.Errorf("failed to save settings: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed rule %d\n", index)
			return nil
		},
	}
}
