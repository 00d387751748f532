package scan

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"glmirror/internal/logging"
	"glmirror/internal/model"
)

func TestMain(m *testing.M) {
	logging.Discard()
	os.Exit(m.Run())
}

// mkRepo creates a minimal working copy: a .git dir with a config
// naming the origin remote.
func mkRepo(t *testing.T, root, rel, origin string) {
	t.Helper()
	gitDir := filepath.Join(root, filepath.FromSlash(rel), ".git")
	if err := os.MkdirAll(gitDir, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := "[core]\n\trepositoryformatversion = 0\n[remote \"origin\"]\n\turl = " + origin + "\n\tfetch = +refs/heads/*:refs/remotes/origin/*\n"
	if err := os.WriteFile(filepath.Join(gitDir, "config"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
}

func byPath(entries []model.LocalEntry) map[string]model.LocalEntry {
	m := make(map[string]model.LocalEntry, len(entries))
	for _, e := range entries {
		m[e.RelPath] = e
	}
	return m
}

func TestScan_MissingRoot(t *testing.T) {
	entries, err := Scan(filepath.Join(t.TempDir(), "does-not-exist"), nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if entries != nil {
		t.Errorf("missing root should scan empty, got %+v", entries)
	}
}

func TestScan_RootIsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Scan(f, nil); err == nil {
		t.Error("expected error when root is a regular file")
	}
}

func TestScan_ClassifiesTree(t *testing.T) {
	root := t.TempDir()
	mkRepo(t, root, "group/app", "https://gitlab.example.com/group/app.git")
	if err := os.MkdirAll(filepath.Join(root, "group", "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "group", "notes"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "group", "notes", "todo.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := Scan(root, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	got := byPath(entries)
	if len(got) != 3 {
		paths := make([]string, 0, len(got))
		for p := range got {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		t.Fatalf("want 3 entries, got %d: %v", len(got), paths)
	}

	repo := got["group/app"]
	if repo.Validity != model.ValidRepo {
		t.Errorf("group/app validity = %s, want valid repo", repo.Validity)
	}
	if repo.Upstream != "https://gitlab.example.com/group/app.git" {
		t.Errorf("group/app upstream = %q", repo.Upstream)
	}
	if got["group/empty"].Validity != model.EmptyDir {
		t.Errorf("group/empty validity = %s", got["group/empty"].Validity)
	}
	notes := got["group/notes"]
	if notes.Validity != model.InvalidNonRepo {
		t.Errorf("group/notes validity = %s", notes.Validity)
	}
	if notes.Diagnostic == "" {
		t.Error("non-repo entry should carry a diagnostic")
	}
}

func TestScan_SkipsDotDirsAtRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".glmirror"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".glmirror", "state.db"), []byte("db"), 0o644); err != nil {
		t.Fatal(err)
	}
	mkRepo(t, root, "g/p", "https://gitlab.example.com/g/p.git")

	entries, err := Scan(root, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(entries) != 1 || entries[0].RelPath != "g/p" {
		t.Errorf("entries = %+v, want only g/p", entries)
	}
}

func TestScan_SkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	mkRepo(t, outside, "external", "https://elsewhere.example.com/x.git")
	if err := os.MkdirAll(filepath.Join(root, "g"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(outside, "external"), filepath.Join(root, "g", "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	entries, err := Scan(root, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	for _, e := range entries {
		if e.RelPath == "g/link" {
			t.Errorf("symlinked directory was scanned: %+v", e)
		}
	}
}

type fakeIndex map[string]time.Time

func (f fakeIndex) LastSync(rel string) (time.Time, bool) {
	ts, ok := f[rel]
	return ts, ok
}

func TestScan_LastSyncFromStateIndex(t *testing.T) {
	root := t.TempDir()
	mkRepo(t, root, "g/p", "https://gitlab.example.com/g/p.git")

	want := time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC)
	entries, err := Scan(root, fakeIndex{"g/p": want})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %+v", entries)
	}
	if !entries[0].LastSync.Equal(want) {
		t.Errorf("LastSync = %v, want %v", entries[0].LastSync, want)
	}
}

func TestScan_LastSyncFromFetchHead(t *testing.T) {
	root := t.TempDir()
	mkRepo(t, root, "g/p", "https://gitlab.example.com/g/p.git")
	fh := filepath.Join(root, "g", "p", ".git", "FETCH_HEAD")
	if err := os.WriteFile(fh, []byte("ref"), 0o644); err != nil {
		t.Fatal(err)
	}
	mtime := time.Now().Add(-3 * time.Hour)
	if err := os.Chtimes(fh, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	entries, err := Scan(root, fakeIndex{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %+v", entries)
	}
	got := entries[0].LastSync
	if got.IsZero() || got.Sub(mtime).Abs() > 2*time.Second {
		t.Errorf("LastSync = %v, want ~%v", got, mtime)
	}
}

func TestScan_RepoWithoutOrigin(t *testing.T) {
	root := t.TempDir()
	gitDir := filepath.Join(root, "g", "p", ".git")
	if err := os.MkdirAll(gitDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(gitDir, "config"), []byte("[core]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := Scan(root, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %+v", entries)
	}
	e := entries[0]
	if e.Validity != model.ValidRepo {
		t.Errorf("validity = %s, want valid repo", e.Validity)
	}
	if e.Upstream != "" {
		t.Errorf("upstream = %q, want empty", e.Upstream)
	}
	if e.Diagnostic == "" {
		t.Error("missing origin should be diagnosed")
	}
}
