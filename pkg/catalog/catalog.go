// Package catalog loads and holds the ordered, immutable list of products
// the exchange trades. Product identity is name-based and case-sensitive.
package catalog

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Catalog is an ordered, immutable product list. The order is the order of
// the product file and fixes iteration order everywhere (book scans,
// position listings, depth logging).
type Catalog struct {
	names []string
	index map[string]struct{}
}

// New builds a catalog directly from names, mainly for tests.
func New(names ...string) *Catalog {
	c := &Catalog{
		names: append([]string(nil), names...),
		index: make(map[string]struct{}, len(names)),
	}
	for _, n := range names {
		c.index[n] = struct{}{}
	}
	return c
}

// Load reads a product file: first line is the product count, followed by
// one product name per line.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open product file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return nil, fmt.Errorf("product file %s: missing count line", path)
	}
	count, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil || count < 0 {
		return nil, fmt.Errorf("product file %s: bad count %q", path, sc.Text())
	}

	names := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("product file %s: expected %d products, got %d", path, count, i)
		}
		name := strings.TrimRight(sc.Text(), "\r\n")
		if name == "" {
			return nil, fmt.Errorf("product file %s: empty product name at line %d", path, i+2)
		}
		names = append(names, name)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read product file: %w", err)
	}
	return New(names...), nil
}

// Has reports whether name is a traded product.
func (c *Catalog) Has(name string) bool {
	_, ok := c.index[name]
	return ok
}

// Products returns the product names in catalog order.
func (c *Catalog) Products() []string {
	return append([]string(nil), c.names...)
}

func (c *Catalog) Len() int {
	return len(c.names)
}

func (c *Catalog) String() string {
	return strings.Join(c.names, " ")
}
