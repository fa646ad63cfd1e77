// Package github provides a version backend reading repository tags through
// the GitHub API.
package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	gogithub "github.com/google/go-github/v60/github"

	"github.com/relwatch/relwatch/internal/core"
)

const (
	DefaultURL = "https://api.github.com"
	ecosystem  = "github"

	perPage  = 100
	maxPages = 5
)

func init() {
	core.Register(ecosystem, DefaultURL, func(baseURL string, client *core.Client) core.Backend {
		return New(baseURL, client)
	})
}

type Backend struct {
	baseURL string
	client  *core.Client
	urls    *core.BaseURLs
}

func New(baseURL string, client *core.Client) *Backend {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	b := &Backend{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
	b.urls = &core.BaseURLs{
		ProjectFn: func(name string) string {
			return fmt.Sprintf("https://github.com/%s", name)
		},
		ReleasesFn: func(name string) string {
			return fmt.Sprintf("https://github.com/%s/tags", name)
		},
		PURLFn: func(name, version string) string {
			if version != "" {
				return fmt.Sprintf("pkg:github/%s@%s", name, version)
			}
			return fmt.Sprintf("pkg:github/%s", name)
		},
	}
	return b
}

func (b *Backend) Ecosystem() string {
	return ecosystem
}

func (b *Backend) URLs() core.URLBuilder {
	return b.urls
}

// FetchVersions lists the repository's tag names, newest pages first as the
// API returns them.
func (b *Backend) FetchVersions(ctx context.Context, p *core.Project) ([]string, error) {
	owner, repo, err := splitRepo(p.Locator())
	if err != nil {
		return nil, err
	}

	gh := gogithub.NewClient(b.client.HTTPClient(core.ConfigFor(p)))
	if b.baseURL != DefaultURL {
		base, err := url.Parse(b.baseURL + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid base URL %q: %w", b.baseURL, err)
		}
		gh.BaseURL = base
	}

	var versions []string
	opts := &gogithub.ListOptions{PerPage: perPage}
	for page := 0; page < maxPages; page++ {
		tags, resp, err := gh.Repositories.ListTags(ctx, owner, repo, opts)
		if err != nil {
			return nil, err
		}
		for _, tag := range tags {
			if name := tag.GetName(); name != "" {
				versions = append(versions, name)
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return versions, nil
}

// splitRepo accepts "owner/repo" or a full github.com URL.
func splitRepo(locator string) (owner, repo string, err error) {
	s := locator
	if idx := strings.Index(s, "github.com/"); idx >= 0 {
		s = s[idx+len("github.com/"):]
	}
	s = strings.TrimSuffix(strings.Trim(s, "/"), ".git")

	parts := strings.Split(s, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("locator %q: want owner/repo", locator)
	}
	return parts[0], parts[1], nil
}
