package artifacts

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Locator points at a directory of compiled contract artifacts.
type Locator struct {
	URL *url.URL
}

func NewFileLocator(path string) (*Locator, error) {
	u, err := url.Parse("file://" + path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	return &Locator{URL: u}, nil
}

func MustNewFileLocator(path string) *Locator {
	loc, err := NewFileLocator(path)
	if err != nil {
		panic(err)
	}
	return loc
}

func (a *Locator) UnmarshalText(text []byte) error {
	str := strings.TrimSpace(string(text))
	if str == "" {
		return errors.New("empty artifacts locator")
	}
	if !strings.Contains(str, "://") {
		// Bare paths are accepted as a shorthand for file:// locators.
		loc, err := NewFileLocator(str)
		if err != nil {
			return err
		}
		*a = *loc
		return nil
	}
	u, err := url.Parse(str)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Scheme != "file" {
		return fmt.Errorf("unsupported scheme %s", u.Scheme)
	}
	*a = Locator{URL: u}
	return nil
}

func (a *Locator) MarshalText() ([]byte, error) {
	if a.URL == nil {
		return nil, errors.New("empty artifacts locator")
	}
	return []byte(a.URL.String()), nil
}

func (a *Locator) MarshalTOML() ([]byte, error) {
	text, err := a.MarshalText()
	if err != nil {
		return nil, err
	}
	return []byte(`"` + string(text) + `"`), nil
}

func (a *Locator) UnmarshalTOML(i interface{}) error {
	switch v := i.(type) {
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	default:
		return fmt.Errorf("unsupported type for TOML unmarshaling: %T", i)
	}
}

// Dir is the filesystem directory the locator points at.
func (a *Locator) Dir() string {
	if a.URL.Host != "" {
		// file://relative/dir parses "relative" as the host.
		return a.URL.Host + a.URL.Path
	}
	return a.URL.Path
}

func (a *Locator) Equal(b *Locator) bool {
	aStr, _ := a.MarshalText()
	bStr, _ := b.MarshalText()
	return string(aStr) == string(bStr)
}
