package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DurationOption is one rental period on offer.
type DurationOption struct {
	Key     string   `toml:"key" json:"key"`
	Label   string   `toml:"label" json:"label"`
	Aliases []string `toml:"aliases" json:"aliases,omitempty"`
	Price   string   `toml:"price" json:"price"`
	Type    string   `toml:"type" json:"type"`
	Value   int      `toml:"value" json:"value"`
	Days    int      `toml:"days" json:"days"`
	Popular bool     `toml:"popular" json:"popular"`
}

// Span is the elapsed time an approved rental stays live.
func (d DurationOption) Span() time.Duration {
	return time.Duration(d.Days) * 24 * time.Hour
}

// ContactInfo is the public contact block shown by the marketing site.
type ContactInfo struct {
	WhatsApp  string `toml:"whatsapp" json:"whatsapp"`
	Facebook  string `toml:"facebook" json:"facebook"`
	Instagram string `toml:"instagram" json:"instagram"`
	Email     string `toml:"email" json:"email"`
	Address   string `toml:"address" json:"address"`
}

// Catalog is the read-only rental offering: periods, prices, themes and contact data.
// It is loaded once at process start and never mutated afterwards.
type Catalog struct {
	Durations    []DurationOption `toml:"durations" json:"durations"`
	Themes       []string         `toml:"themes" json:"themes"`
	DefaultTheme string           `toml:"default_theme" json:"defaultTheme"`
	Contact      ContactInfo      `toml:"contact" json:"contact"`

	durationIndex map[string]DurationOption
	themeIndex    map[string]struct{}
}

// DefaultCatalog mirrors the offering published on the marketing site.
func DefaultCatalog() *Catalog {
	c := &Catalog{
		Durations: []DurationOption{
			{Key: "1 week", Label: "1 semana", Aliases: []string{"1 semana"}, Price: "$150", Type: "week", Value: 1, Days: 7},
			{Key: "1 month", Label: "1 mes", Aliases: []string{"1 mes"}, Price: "$400", Type: "month", Value: 1, Days: 30, Popular: true},
			{Key: "3 months", Label: "3 meses", Aliases: []string{"3 meses"}, Price: "$1,000", Type: "month", Value: 3, Days: 90},
		},
		Themes:       []string{"blue", "purple", "green", "red", "orange"},
		DefaultTheme: "blue",
		Contact: ContactInfo{
			WhatsApp:  "+52 55 1234 5678",
			Facebook:  "https://facebook.com/webdeveloper",
			Instagram: "https://instagram.com/webdeveloper",
			Email:     "contacto@webdeveloper.com",
			Address:   "Ciudad de México, México",
		},
	}
	if err := c.build(); err != nil {
		panic(err)
	}
	return c
}

// LoadCatalog loads the catalog from a TOML file, or returns the default one when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	catalog := &Catalog{}
	if _, err := toml.DecodeFile(path, catalog); err != nil {
		return nil, fmt.Errorf("failed to load catalog file: %w", err)
	}
	if catalog.DefaultTheme == "" && len(catalog.Themes) > 0 {
		catalog.DefaultTheme = catalog.Themes[0]
	}
	if err := catalog.build(); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}
	return catalog, nil
}

func (c *Catalog) build() error {
	if len(c.Durations) == 0 {
		return fmt.Errorf("at least one duration is required")
	}
	if len(c.Themes) == 0 {
		return fmt.Errorf("at least one theme is required")
	}

	c.durationIndex = make(map[string]DurationOption)
	for _, d := range c.Durations {
		if d.Key == "" || d.Price == "" {
			return fmt.Errorf("duration entries need a key and a price")
		}
		if d.Days <= 0 {
			return fmt.Errorf("duration %q must span at least one day", d.Key)
		}
		for _, name := range append([]string{d.Key}, d.Aliases...) {
			k := normalizeKey(name)
			if _, dup := c.durationIndex[k]; dup {
				return fmt.Errorf("duration name %q is defined twice", name)
			}
			c.durationIndex[k] = d
		}
	}

	c.themeIndex = make(map[string]struct{}, len(c.Themes))
	for _, t := range c.Themes {
		c.themeIndex[normalizeKey(t)] = struct{}{}
	}
	if _, ok := c.themeIndex[normalizeKey(c.DefaultTheme)]; !ok {
		return fmt.Errorf("default theme %q is not in the theme list", c.DefaultTheme)
	}
	return nil
}

// LookupDuration finds a duration by its key or one of its aliases, ignoring case.
func (c *Catalog) LookupDuration(name string) (DurationOption, bool) {
	d, ok := c.durationIndex[normalizeKey(name)]
	return d, ok
}

// ResolveTheme returns the canonical theme, substituting the default for an empty value.
func (c *Catalog) ResolveTheme(theme string) (string, bool) {
	theme = normalizeKey(theme)
	if theme == "" {
		return c.DefaultTheme, true
	}
	_, ok := c.themeIndex[theme]
	return theme, ok
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
