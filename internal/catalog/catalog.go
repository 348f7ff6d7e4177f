// Package catalog builds the reward table that maps QR payloads to credits.
package catalog

import (
	"fmt"
	"log"
	"os"

	"github.com/azizikri/qr-credits/internal/domain"
	"gopkg.in/yaml.v3"
)

// defaultCodes is the production reward table. The second key carries a
// trailing space and only matches a payload with the same byte.
var defaultCodes = map[string]int{
	"8c95def646b6127282ed50454b73240300dccabc":  10,
	"ae338e4e0cbb4e4bcffaf9ce5b409feb8edd5172 ": 50,
	"2786f4877b9091dcad7f35751bfcf5d5ea712b2f":  100,
}

type File struct {
	Codes []Entry `yaml:"codes"`
}

type Entry struct {
	Code    string `yaml:"code"`
	Credits int    `yaml:"credits"`
}

func Default() domain.Catalog {
	c, err := domain.NewCatalog(defaultCodes)
	if err != nil {
		panic(err)
	}
	return c
}

// Load returns the catalog in path, or the default table when path is empty.
func Load(path string) (domain.Catalog, error) {
	if path == "" {
		c := Default()
		warnPadded(c)
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	warnPadded(c)
	return c, nil
}

func Parse(data []byte) (domain.Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return domain.Catalog{}, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
	}
	if len(f.Codes) == 0 {
		return domain.Catalog{}, fmt.Errorf("%w: no codes", domain.ErrInvalidCatalog)
	}

	values := make(map[string]int, len(f.Codes))
	for _, e := range f.Codes {
		if _, dup := values[e.Code]; dup {
			return domain.Catalog{}, fmt.Errorf("%w: duplicate code %q", domain.ErrInvalidCatalog, e.Code)
		}
		values[e.Code] = e.Credits
	}
	return domain.NewCatalog(values)
}

func warnPadded(c domain.Catalog) {
	for _, code := range c.PaddedCodes() {
		log.Printf("Warning: catalog code %q has surrounding whitespace and only matches scans carrying it", code)
	}
}
