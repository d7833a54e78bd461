// Package vault lists the notes and folders of a workspace and ranks them
// for path pickers.
package vault

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/michael-freling/selective-read-mode/internal/rules"
)

const noteExtension = ".md"

// Entry is a note or folder inside the vault.
type Entry struct {
	Path string         `json:"path"`
	Kind rules.RuleType `json:"kind"`
}

// DisplayPath returns the path shown to users, with "/" for the root.
func (e Entry) DisplayPath() string {
	if e.Path == "" {
		return "/"
	}
	return e.Path
}

// IsFolder reports whether the entry is a folder.
func (e Entry) IsFolder() bool {
	return e.Kind == rules.RuleTypeFolder
}

// Rule returns a rule that targets this entry.
func (e Entry) Rule() rules.Rule {
	return rules.Rule{Path: e.Path, Type: e.Kind}
}

// List returns every folder and markdown note under root as vault-relative
// slash paths sorted by path. The root itself and hidden entries such as
// .obsidian are left out.
func List(root string) ([]Entry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: vault is not a directory", root)
	}

	return ListFS(os.DirFS(root))
}

// ListFS is List over an fs.FS rooted at the vault.
func ListFS(fsys fs.FS) ([]Entry, error) {
	var entries []Entry

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		switch {
		case d.IsDir():
			entries = append(entries, Entry{Path: p, Kind: rules.RuleTypeFolder})
		case path.Ext(p) == noteExtension:
			entries = append(entries, Entry{Path: p, Kind: rules.RuleTypeFile})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk vault: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}
