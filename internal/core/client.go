package core

import (
	"github.com/relwatch/relwatch/client"
)

// Type aliases so backend packages only import core.
type (
	Client      = client.Client
	Option      = client.Option
	URLBuilder  = client.URLBuilder
	BaseURLs    = client.BaseURLs
	FetchConfig = client.FetchConfig
	HTTPError   = client.HTTPError
)

// Function aliases.
var (
	DefaultClient  = client.DefaultClient
	NewClient      = client.NewClient
	WithTimeout    = client.WithTimeout
	WithUserAgent  = client.WithUserAgent
	WithTransport  = client.WithTransport
)

// ConfigFor derives the per-call fetch configuration from a project
// snapshot. Built on every fetch so flag toggles take effect on the next
// check without a restart.
func ConfigFor(p *Project) FetchConfig {
	return FetchConfig{
		Insecure: p.Insecure,
		Timeout:  p.FetchTimeout,
	}
}
