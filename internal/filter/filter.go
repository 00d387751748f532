// Package filter decides whether a remote project participates in a
// sync run. Pure functions, no state.
package filter

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"glmirror/internal/model"
)

// Policy is the full set of inclusion rules applied to a project.
type Policy struct {
	Include         []string      // if non-empty, project must match at least one
	Exclude         []string      // always authoritative; a match excludes
	IncludeArchived bool          // archived projects pass only when true
	MaxAge          time.Duration // 0 = no age cutoff
}

// Decision is the outcome of evaluating a Policy against a project.
type Decision struct {
	Excluded bool
	Reason   string // human-readable rule that fired, empty when included
}

// Decide evaluates the policy. Precedence, in order:
// include gate (non-empty include list excludes anything that matches
// none of its patterns), exclude patterns (a match always excludes,
// even when an include pattern also matched), archived policy, age
// cutoff.
func Decide(p model.RemoteProject, pol Policy, now time.Time) Decision {
	pp := p.PathWithNamespace

	if len(pol.Include) > 0 {
		matched := false
		for _, pattern := range pol.Include {
			if Match(pattern, pp) {
				matched = true
				break
			}
		}
		if !matched {
			return Decision{
				Excluded: true,
				Reason:   fmt.Sprintf("not included (patterns: %s)", strings.Join(pol.Include, ", ")),
			}
		}
	}

	for _, pattern := range pol.Exclude {
		if Match(pattern, pp) {
			return Decision{Excluded: true, Reason: fmt.Sprintf("excluded by pattern %q", pattern)}
		}
	}

	if p.Archived && !pol.IncludeArchived {
		return Decision{Excluded: true, Reason: "archived"}
	}

	if pol.MaxAge > 0 && !p.LastActivity.IsZero() && now.Sub(p.LastActivity) > pol.MaxAge {
		return Decision{
			Excluded: true,
			Reason:   fmt.Sprintf("inactive since %s", p.LastActivity.Format("2006-01-02")),
		}
	}

	return Decision{}
}

// Match reports whether a glob pattern matches a namespaced project
// path. Wildcards use fnmatch semantics: `*` and `?` match any
// characters including `/`, so "group/*" also covers projects in
// nested subgroups like "group/sub/app". Patterns without a slash also
// match the final path segment, so "test-*" catches "team/test-app".
// A malformed pattern matches nothing.
func Match(pattern, projectPath string) bool {
	re, err := regexp.Compile(translate(pattern))
	if err != nil {
		return false
	}
	if re.MatchString(projectPath) {
		return true
	}
	return !strings.Contains(pattern, "/") && re.MatchString(path.Base(projectPath))
}

// translate converts an fnmatch pattern to an anchored regexp:
// `*` -> `.*`, `?` -> `.`, `[set]` and `[!set]` kept as character
// classes, everything else quoted. An unterminated `[` is literal.
func translate(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '[':
			j := i + 1
			if j < len(pattern) && (pattern[j] == '!' || pattern[j] == '^') {
				j++
			}
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j >= len(pattern) {
				b.WriteString(regexp.QuoteMeta(string(c)))
				continue
			}
			set := pattern[i+1 : j]
			if strings.HasPrefix(set, "!") {
				set = "^" + set[1:]
			}
			b.WriteString("[" + strings.ReplaceAll(set, `\`, `\\`) + "]")
			i = j
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return b.String()
}
