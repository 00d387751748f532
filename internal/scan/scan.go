// Package scan walks the sync root and classifies what is on disk.
// The walk mirrors the remote namespace hierarchy: a directory is
// either a working copy, empty, foreign content, or a namespace level
// to descend into.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"glmirror/internal/gitcli"
	"glmirror/internal/logging"
	"glmirror/internal/model"
)

// StateIndex resolves the recorded last-sync timestamp for a local
// path. The sqlite state store satisfies this; a nil index falls back
// to git's own FETCH_HEAD mtime only.
type StateIndex interface {
	LastSync(relPath string) (time.Time, bool)
}

// Scan walks root and returns one LocalEntry per leaf directory.
// A missing root is not an error: the scan is simply empty and every
// remote project will be planned as a clone. Unreadable directories
// are recorded as invalid-nonrepo with a diagnostic instead of
// aborting the walk. Symbolic links are never followed.
func Scan(root string, state StateIndex) ([]model.LocalEntry, error) {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat sync root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sync root %s is not a directory", root)
	}

	var entries []model.LocalEntry
	walkDir(root, "", state, &entries)
	return entries, nil
}

func walkDir(root, rel string, state StateIndex, out *[]model.LocalEntry) {
	dir := filepath.Join(root, filepath.FromSlash(rel))

	children, err := os.ReadDir(dir)
	if err != nil {
		// Unreadable directory: conservative classification, keep going.
		logging.New("scan").Warn("unreadable directory", "path", rel, "error", err)
		*out = append(*out, model.LocalEntry{
			RelPath:    rel,
			Validity:   model.InvalidNonRepo,
			Diagnostic: fmt.Sprintf("unreadable: %v", err),
		})
		return
	}

	if rel != "" && len(children) == 0 {
		*out = append(*out, model.LocalEntry{RelPath: rel, Validity: model.EmptyDir})
		return
	}

	hasGit := false
	hasFiles := false
	var subdirs []string
	for _, c := range children {
		name := c.Name()
		if rel == "" && strings.HasPrefix(name, ".") {
			// state dir and other dotfiles at the root are not namespaces
			continue
		}
		if c.Type()&os.ModeSymlink != 0 {
			// never follow links; they can escape the sync tree
			continue
		}
		switch {
		case c.IsDir() && name == ".git":
			hasGit = true
		case c.IsDir():
			subdirs = append(subdirs, name)
		default:
			hasFiles = true
		}
	}

	if rel != "" && hasGit {
		*out = append(*out, repoEntry(root, rel, state))
		return
	}
	if rel != "" && hasFiles {
		*out = append(*out, model.LocalEntry{
			RelPath:    rel,
			Validity:   model.InvalidNonRepo,
			Diagnostic: "directory holds content that is not a working copy",
		})
		return
	}

	for _, name := range subdirs {
		child := name
		if rel != "" {
			child = rel + "/" + name
		}
		walkDir(root, child, state, out)
	}
}

// repoEntry builds the LocalEntry for a working copy: upstream from
// the repo's own config, last sync from the state store, falling back
// to the FETCH_HEAD mtime git leaves behind after every fetch.
func repoEntry(root, rel string, state StateIndex) model.LocalEntry {
	repoPath := filepath.Join(root, filepath.FromSlash(rel))
	entry := model.LocalEntry{RelPath: rel, Validity: model.ValidRepo}

	switch url, err := gitcli.RemoteURL(repoPath); {
	case err != nil:
		entry.Diagnostic = fmt.Sprintf("origin unknown: %v", err)
	case url == "":
		entry.Diagnostic = "no origin remote configured"
	default:
		entry.Upstream = url
	}

	if state != nil {
		if ts, ok := state.LastSync(rel); ok {
			entry.LastSync = ts
			return entry
		}
	}
	if info, err := os.Stat(filepath.Join(repoPath, ".git", "FETCH_HEAD")); err == nil {
		entry.LastSync = info.ModTime()
	}
	return entry
}
