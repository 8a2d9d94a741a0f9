package core

import (
	"path"
	"strings"

	"github.com/pkg/errors"
)

// Wildcard matches every path that has no literal entry.
const Wildcard = "*"

var (
	ErrInvalidRoutePath  = errors.New("invalid route path")
	ErrDuplicateRoute    = errors.New("duplicate route path")
	ErrMissingWildcard   = errors.New("route table has no wildcard entry")
	ErrDuplicateWildcard = errors.New("route table has more than one wildcard entry")
)

// PageID 页面标识，路由本身不解析其内容
type PageID string

func (p PageID) String() string {
	return string(p)
}

type RouteEntry struct {
	Path string `yaml:"path" json:"path"`
	Page PageID `yaml:"page" json:"page"`
}

func (r RouteEntry) IsWildcard() bool {
	return r.Path == Wildcard
}

// RouteTable is immutable once built; accessors hand out copies.
type RouteTable struct {
	entries  []RouteEntry
	literals map[string]PageID
	wildcard RouteEntry
}

func NewRouteTable(entries ...RouteEntry) (*RouteTable, error) {
	table := &RouteTable{
		entries:  make([]RouteEntry, 0, len(entries)),
		literals: make(map[string]PageID, len(entries)),
	}
	hasWildcard := false
	for _, entry := range entries {
		if entry.Page == "" {
			return nil, errors.Wrapf(ErrInvalidRoutePath, "route %q has no page", entry.Path)
		}
		if entry.IsWildcard() {
			if hasWildcard {
				return nil, ErrDuplicateWildcard
			}
			hasWildcard = true
			table.wildcard = entry
			table.entries = append(table.entries, entry)
			continue
		}
		if NormalizePath(entry.Path) != entry.Path {
			return nil, errors.Wrapf(ErrInvalidRoutePath, "%q is not a normalized absolute path", entry.Path)
		}
		if _, ok := table.literals[entry.Path]; ok {
			return nil, errors.Wrap(ErrDuplicateRoute, entry.Path)
		}
		table.literals[entry.Path] = entry.Page
		table.entries = append(table.entries, entry)
	}
	if !hasWildcard {
		return nil, ErrMissingWildcard
	}
	return table, nil
}

func MustRouteTable(entries ...RouteEntry) *RouteTable {
	table, err := NewRouteTable(entries...)
	if err != nil {
		panic(err)
	}
	return table
}

// Resolve never fails: unknown paths fall back to the wildcard page.
func (t *RouteTable) Resolve(path string) PageID {
	page, _ := t.Lookup(path)
	return page
}

// Lookup reports whether path hit a literal entry.
func (t *RouteTable) Lookup(path string) (PageID, bool) {
	if page, ok := t.literals[path]; ok {
		return page, true
	}
	return t.wildcard.Page, false
}

func (t *RouteTable) Has(path string) bool {
	_, ok := t.literals[path]
	return ok
}

func (t *RouteTable) Entries() []RouteEntry {
	result := make([]RouteEntry, len(t.entries))
	copy(result, t.entries)
	return result
}

func (t *RouteTable) Literals() []RouteEntry {
	result := make([]RouteEntry, 0, len(t.literals))
	for _, entry := range t.entries {
		if !entry.IsWildcard() {
			result = append(result, entry)
		}
	}
	return result
}

func (t *RouteTable) Wildcard() RouteEntry {
	return t.wildcard
}

// NormalizePath returns a cleaned absolute path without a trailing slash ("/" for root).
func NormalizePath(raw string) string {
	if raw == "" {
		return "/"
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return path.Clean(raw)
}
