// Package pypi provides a version backend for pypi.org.
package pypi

import (
	"context"
	"fmt"
	"strings"

	"github.com/relwatch/relwatch/internal/core"
)

const (
	DefaultURL = "https://pypi.org"
	ecosystem  = "pypi"
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
			return fmt.Sprintf("%s/project/%s/", b.baseURL, name)
		},
		ReleasesFn: func(name string) string {
			return fmt.Sprintf("%s/pypi/%s/json", b.baseURL, name)
		},
		PURLFn: func(name, version string) string {
			if version != "" {
				return fmt.Sprintf("pkg:pypi/%s@%s", normalizeName(name), version)
			}
			return fmt.Sprintf("pkg:pypi/%s", normalizeName(name))
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

type packageResponse struct {
	Releases map[string][]releaseFile `json:"releases"`
}

type releaseFile struct {
	Yanked bool `json:"yanked"`
}

// FetchVersions lists the release keys of the package's JSON document.
// Releases whose every file is yanked are skipped.
func (b *Backend) FetchVersions(ctx context.Context, p *core.Project) ([]string, error) {
	url := p.VersionURL
	if url == "" {
		url = b.urls.Releases(p.Name)
	}

	var resp packageResponse
	if err := b.client.GetJSON(ctx, url, core.ConfigFor(p), &resp); err != nil {
		return nil, err
	}

	versions := make([]string, 0, len(resp.Releases))
	for num, files := range resp.Releases {
		if yankedRelease(files) {
			continue
		}
		versions = append(versions, num)
	}
	return versions, nil
}

func yankedRelease(files []releaseFile) bool {
	if len(files) == 0 {
		return false
	}
	for _, f := range files {
		if !f.Yanked {
			return false
		}
	}
	return true
}

func normalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "-")
	name = strings.ReplaceAll(name, ".", "-")
	return name
}
