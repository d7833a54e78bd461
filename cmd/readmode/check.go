package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/michael-freling/selective-read-mode/internal/rules"
	"github.com/michael-freling/selective-read-mode/internal/vault"
)

const (
	decisionRead    = "read"
	decisionDefault = "default"
)

func newCheckCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Report whether a note opens in read mode",
		Long:  `Prints "read" when a rule matches the path and "default" when the host's own mode applies.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			out := cmd.OutOrStdout()
			result := rules.Match(args[0], store.Rules())
			if !result.Matched {
				fmt.Fprintln(out, decisionDefault)
				return nil
			}

			fmt.Fprintln(out, decisionRead)
			if verbose {
				fmt.Fprint(out, "matched rule ")
				printRule(out, result.Index, result.Rule)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show the matching rule")

	return cmd
}

func newSuggestCmd() *cobra.Command {
	var (
		notesOnly bool
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "suggest [query]",
		Short: "Fuzzy-find notes and folders in the vault",
		Long:  `Lists the vault's notes and folders ranked against the query, best match first.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := vault.List(vaultDir)
			if err != nil {
				return err
			}

			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			found := vault.Suggest(entries, query, vault.SuggestOptions{
				NotesOnly: notesOnly,
				Limit:     limit,
			})
			for _, entry := range found {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ruleIcon(entry.Kind), entry.DisplayPath())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&notesOnly, "notes-only", false, "only suggest notes, not folders")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of suggestions (0 for all)")

	return cmd
}
