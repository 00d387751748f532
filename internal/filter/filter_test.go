package filter

import (
	"strings"
	"testing"
	"time"

	"glmirror/internal/model"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func proj(path string) model.RemoteProject {
	return model.RemoteProject{PathWithNamespace: path}
}

func TestDecide_NoRules(t *testing.T) {
	d := Decide(proj("group/app"), Policy{}, now)
	if d.Excluded {
		t.Errorf("empty policy excluded project: %+v", d)
	}
}

func TestDecide_ExcludePatterns(t *testing.T) {
	pol := Policy{Exclude: []string{"*/test-*", "sandbox/*"}}
	tests := []struct {
		path string
		want bool
	}{
		{"group/test-app", true},
		{"sandbox/scratch", true},
		{"group/app", false},
		{"group/sub/test-app", true}, // * crosses subgroup boundaries
		{"sandbox/nested/scratch", true},
	}
	for _, tt := range tests {
		d := Decide(proj(tt.path), pol, now)
		if d.Excluded != tt.want {
			t.Errorf("Decide(%q) excluded=%v, want %v (reason %q)", tt.path, d.Excluded, tt.want, d.Reason)
		}
	}
}

func TestDecide_IncludeGate(t *testing.T) {
	pol := Policy{Include: []string{"team-a/*"}}
	if d := Decide(proj("team-a/app"), pol, now); d.Excluded {
		t.Errorf("included project excluded: %q", d.Reason)
	}
	d := Decide(proj("team-b/app"), pol, now)
	if !d.Excluded {
		t.Error("project outside include list should be excluded")
	}
	if !strings.Contains(d.Reason, "not included") {
		t.Errorf("reason = %q, want mention of include gate", d.Reason)
	}
}

func TestDecide_ExcludeWinsOverInclude(t *testing.T) {
	pol := Policy{
		Include: []string{"team-a/*"},
		Exclude: []string{"team-a/secret"},
	}
	d := Decide(proj("team-a/secret"), pol, now)
	if !d.Excluded {
		t.Fatal("exclude must win when both pattern sets match")
	}
	if !strings.Contains(d.Reason, "excluded by pattern") {
		t.Errorf("reason = %q, want exclude pattern reason", d.Reason)
	}
}

func TestDecide_Archived(t *testing.T) {
	p := proj("group/old")
	p.Archived = true
	if d := Decide(p, Policy{}, now); !d.Excluded || d.Reason != "archived" {
		t.Errorf("archived project: %+v", d)
	}
	if d := Decide(p, Policy{IncludeArchived: true}, now); d.Excluded {
		t.Errorf("archived project with IncludeArchived: %+v", d)
	}
}

func TestDecide_AgeCutoff(t *testing.T) {
	pol := Policy{MaxAge: 30 * 24 * time.Hour}

	stale := proj("group/stale")
	stale.LastActivity = now.Add(-40 * 24 * time.Hour)
	if d := Decide(stale, pol, now); !d.Excluded {
		t.Error("project inactive beyond MaxAge should be excluded")
	}

	fresh := proj("group/fresh")
	fresh.LastActivity = now.Add(-10 * 24 * time.Hour)
	if d := Decide(fresh, pol, now); d.Excluded {
		t.Errorf("recently active project excluded: %q", d.Reason)
	}

	// Unknown activity is not penalized.
	if d := Decide(proj("group/unknown"), pol, now); d.Excluded {
		t.Errorf("project without activity timestamp excluded: %q", d.Reason)
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"group/app", "group/app", true},
		{"group/*", "group/app", true},
		{"test-*", "team/test-app", true}, // basename fallback
		{"test-*", "team/app-test", false},
		{"*-archive", "team/proj-archive", true},
		{"group/?pp", "group/app", true},
		{"group/[ab]pp", "group/app", true},
		{"group/[!ab]pp", "group/app", false},
		{"[", "group/app", false}, // unterminated class is literal
	}
	for _, tt := range tests {
		if got := Match(tt.pattern, tt.path); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}

func TestMatch_WildcardsCrossSegments(t *testing.T) {
	// Wildcards follow fnmatch: * is not stopped by /, so patterns
	// written against top-level paths keep working when the inventory
	// lists nested subgroups.
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"group/*", "group/sub/app", true},
		{"*/test-*", "team/sub/test-x", true},
		{"sandbox/*", "sandbox/a/b", true},
		{"group/*", "other/sub/app", false},
		{"*/test-*", "team/sub/prod-x", false},
	}
	for _, tt := range tests {
		if got := Match(tt.pattern, tt.path); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}
