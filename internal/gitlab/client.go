// Package gitlab is a minimal GitLab REST API client covering group
// resolution and project inventory.
package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"glmirror/internal/model"
)

// Sentinel errors for callers that branch on API failure class.
var (
	ErrAuth        = errors.New("gitlab: authentication failed")
	ErrNotFound    = errors.New("gitlab: not found")
	ErrUnavailable = errors.New("gitlab: service unavailable")
)

// Config holds GitLab API connection settings.
type Config struct {
	BaseURL string // e.g. https://gitlab.example.com
	Token   string // personal or group access token
	Timeout time.Duration
}

// Client talks to the GitLab v4 REST API.
type Client struct {
	HTTPClient *http.Client
	Config     Config
}

// NewClient returns a client with the given config. HTTPClient may be
// overridden after construction, e.g. in tests.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	hc := &http.Client{}
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	}
	return &Client{Config: cfg, HTTPClient: hc}
}

// Group is the subset of group attributes the sync needs.
type Group struct {
	ID       int    `json:"id"`
	FullPath string `json:"full_path"`
	Name     string `json:"name"`
}

// ResolveGroup looks up a group by numeric ID or full path.
func (c *Client) ResolveGroup(ctx context.Context, ref string) (*Group, error) {
	ident := ref
	if _, err := strconv.Atoi(ref); err != nil {
		ident = url.PathEscape(ref)
	}
	u := fmt.Sprintf("%s/api/v4/groups/%s", c.Config.BaseURL, ident)
	var g Group
	if err := c.getJSON(ctx, u, &g); err != nil {
		return nil, fmt.Errorf("resolve group %q: %w", ref, err)
	}
	return &g, nil
}

// ListOptions narrows the project inventory server-side.
type ListOptions struct {
	IncludeArchived bool
	ActiveSince     time.Time // zero means no activity cutoff
}

// ListGroupProjects returns every project in a group and its subgroups.
func (c *Client) ListGroupProjects(ctx context.Context, groupID int, opts ListOptions) ([]model.RemoteProject, error) {
	var all []model.RemoteProject
	page := 1
	pageSize := 100
	for {
		q := url.Values{}
		q.Set("include_subgroups", "true")
		q.Set("per_page", strconv.Itoa(pageSize))
		q.Set("page", strconv.Itoa(page))
		q.Set("order_by", "path")
		q.Set("sort", "asc")
		if !opts.IncludeArchived {
			q.Set("archived", "false")
		}
		if !opts.ActiveSince.IsZero() {
			q.Set("last_activity_after", opts.ActiveSince.UTC().Format(time.RFC3339))
		}
		u := fmt.Sprintf("%s/api/v4/groups/%d/projects?%s", c.Config.BaseURL, groupID, q.Encode())

		var pageData []model.RemoteProject
		if err := c.getJSON(ctx, u, &pageData); err != nil {
			return nil, fmt.Errorf("list projects page %d: %w", page, err)
		}
		all = append(all, pageData...)
		if len(pageData) < pageSize {
			break
		}
		page++
	}
	return all, nil
}

// DiscoverProjects resolves each group reference and collects the union
// of their projects, deduplicated by project ID. A project reachable
// through two groups (shared or nested) appears once. The result is
// ordered by namespace path.
func (c *Client) DiscoverProjects(ctx context.Context, groups []string, opts ListOptions) ([]model.RemoteProject, error) {
	seen := make(map[int64]bool)
	var all []model.RemoteProject
	for _, ref := range groups {
		g, err := c.ResolveGroup(ctx, ref)
		if err != nil {
			return nil, err
		}
		projects, err := c.ListGroupProjects(ctx, g.ID, opts)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", g.FullPath, err)
		}
		for _, p := range projects {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].PathWithNamespace < all[j].PathWithNamespace })
	return all, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if c.Config.Token != "" {
		req.Header.Set("PRIVATE-TOKEN", c.Config.Token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrAuth, resp.Status)
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, resp.Status)
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: %s", ErrUnavailable, resp.Status)
		}
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
