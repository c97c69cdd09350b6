// Package i18n serves the localized display strings of the system
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// BaseLocale is used when nothing better matches
const BaseLocale = "en-US"

//go:embed locales/*.yaml
var embeddedLocales embed.FS

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Catalog holds the messages of every locale. It is read-only after loading.
type Catalog struct {
	locales  map[string]map[string]string
	tags     []language.Tag
	matcher  language.Matcher
	fallback string
}

// LoadEmbedded loads the catalogs shipped with the binary
func LoadEmbedded() (*Catalog, error) {
	return LoadFromFS(embeddedLocales)
}

// LoadFromFS loads every locales/*.yaml file of fsys
func LoadFromFS(fsys fs.FS) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	c := &Catalog{locales: map[string]map[string]string{}, fallback: BaseLocale}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}

		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := c.add(p, file); err != nil {
			return nil, err
		}
	}

	if _, ok := c.locales[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}

	// the matcher falls back to its first tag
	sort.SliceStable(c.tags, func(i, j int) bool {
		return c.tags[i].String() == BaseLocale && c.tags[j].String() != BaseLocale
	})
	c.matcher = language.NewMatcher(c.tags)

	return c, nil
}

func (c *Catalog) add(p string, file catalogFile) error {
	locale := strings.TrimSpace(file.Locale)
	if locale != strings.TrimSuffix(path.Base(p), path.Ext(p)) {
		return fmt.Errorf("catalog %s: locale %q must match file name", p, locale)
	}
	if len(file.Messages) == 0 {
		return fmt.Errorf("catalog %s: messages are required", p)
	}

	tag, err := language.Parse(locale)
	if err != nil {
		return fmt.Errorf("catalog %s: parse locale %q: %w", p, locale, err)
	}

	messages := make(map[string]string, len(file.Messages))
	for key, value := range file.Messages {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", p)
		}
		messages[trimmed] = value
	}

	c.locales[tag.String()] = messages
	c.tags = append(c.tags, tag)
	return nil
}

// Locales returns the loaded locale identifiers
func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.locales))
	for locale := range c.locales {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Match returns the best loaded locale for an Accept-Language style preference
func (c *Catalog) Match(preferred string) string {
	wanted, _, err := language.ParseAcceptLanguage(preferred)
	if err != nil || len(wanted) == 0 {
		return c.fallback
	}
	_, index, confidence := c.matcher.Match(wanted...)
	if confidence == language.No {
		return c.fallback
	}
	return c.tags[index].String()
}

// Localize resolves key for the locale, falling back to the base locale and
// finally to the key itself.
func (c *Catalog) Localize(locale, key string) string {
	if value, ok := c.locales[c.Match(locale)][key]; ok {
		return value
	}
	if value, ok := c.locales[c.fallback][key]; ok {
		return value
	}
	return key
}
