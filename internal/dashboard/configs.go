package dashboard

import (
	"context"
	"slices"

	"github.com/mesh-intelligence/pantry/internal/registry"
	"github.com/mesh-intelligence/pantry/internal/service"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Config flags.
const (
	ConfigIsPublic      = 1 << 0
	ConfigInMaintenance = 1 << 1
)

// Media is an image reference inside SEO metadata.
type Media struct {
	URL             string `json:"url"`
	AlternativeText string `json:"alternativeText,omitempty"`
	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`
}

// OpenGraph is the og: block of SEO metadata.
type OpenGraph struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       *Media `json:"image,omitempty"`
	Type        string `json:"type,omitempty"`
	Locale      string `json:"locale,omitempty"`
}

// TwitterCard is the twitter: block of SEO metadata.
type TwitterCard struct {
	Card    string `json:"card,omitempty"`
	Site    string `json:"site,omitempty"`
	Creator string `json:"creator,omitempty"`
}

// SEO is page metadata. Title may hold a %s placeholder for the page name.
type SEO struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Keywords     []string     `json:"keywords,omitempty"`
	CanonicalURL string       `json:"canonicalUrl,omitempty"`
	Robots       string       `json:"robots,omitempty"`
	OG           *OpenGraph   `json:"og,omitempty"`
	Twitter      *TwitterCard `json:"twitter,omitempty"`
}

// AppConfig is a keyed application configuration.
type AppConfig struct {
	ID         string  `json:"id"`
	Key        string  `json:"key"`
	BaseSEO    SEO     `json:"baseSeo"`
	Navigation []Route `json:"navigation"`
	Flags      int     `json:"flags"`
}

func (c AppConfig) RecordID() string { return c.ID }

// Configs is the app-configs service.
type Configs struct {
	*service.Service[AppConfig]
}

func newConfigs(reg *registry.Registry) (*Configs, error) {
	base, err := service.For(reg, ConfigsCollection)
	if err != nil {
		return nil, err
	}
	return &Configs{Service: base}, nil
}

// ByKey returns the first configuration with the given key.
func (c *Configs) ByKey(ctx context.Context, key string, opts ...types.Option) types.Envelope[*AppConfig] {
	return c.Find(ctx, func(cfg AppConfig) bool { return cfg.Key == key }, opts...)
}

func seedConfig() AppConfig {
	return AppConfig{
		ID:  "global_config_1",
		Key: "global",
		BaseSEO: SEO{
			Title:       "%s | OpenDND Master Template App!",
			Description: "A professional React template with modular architecture and mock APIs.",
			Robots:      "index, follow",
			OG: &OpenGraph{
				Title:       "OpenDND Framework",
				Description: "Accelerate development with Gemini AI and structured mock data.",
				Type:        "website",
				Image:       &Media{URL: "https://picsum.photos/1200/630"},
			},
			Twitter: &TwitterCard{Card: "summary_large_image", Site: "@opendnd"},
		},
		Navigation: slices.Clone(seedRoutes),
	}
}
