package domain

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

var ErrUnknownScope = errors.New("domain: unknown scope")

// Scope names used by the currency exchange resources.
const (
	ScopeAll = "all"

	ScopeCurrencyCreate  = "currency:create"
	ScopeCurrencyDelete  = "currency:delete"
	ScopeCurrencyUpdate  = "currency:update"
	ScopeCurrencyRequest = "currency:request"

	ScopeExchRateCreate  = "exch_rate:create"
	ScopeExchRateDelete  = "exch_rate:delete"
	ScopeExchRateUpdate  = "exch_rate:update"
	ScopeExchRateRequest = "exch_rate:request"
)

// ScopeRegistry maps scope names to descriptions and user categories to
// the scope their tokens carry by default. It is built once at startup and
// only read afterwards.
type ScopeRegistry struct {
	descriptions map[string]string
	defaults     map[Category][]string
}

// NewScopeRegistry validates that every category default names a
// registered scope.
func NewScopeRegistry(descriptions map[string]string, defaults map[Category][]string) (*ScopeRegistry, error) {
	r := &ScopeRegistry{
		descriptions: make(map[string]string, len(descriptions)),
		defaults:     make(map[Category][]string, len(defaults)),
	}
	for name, desc := range descriptions {
		r.descriptions[name] = desc
	}
	for cat, scopes := range defaults {
		for _, s := range scopes {
			if _, ok := r.descriptions[s]; !ok {
				return nil, fmt.Errorf("%w: %q in defaults of %s", ErrUnknownScope, s, cat)
			}
		}
		r.defaults[cat] = slices.Clone(scopes)
	}
	return r, nil
}

// DefaultScopeRegistry returns the scopes of the currency exchange API.
func DefaultScopeRegistry() *ScopeRegistry {
	client := []string{
		ScopeCurrencyCreate, ScopeCurrencyUpdate, ScopeCurrencyRequest,
		ScopeExchRateCreate, ScopeExchRateUpdate, ScopeExchRateRequest,
	}
	r, err := NewScopeRegistry(
		map[string]string{
			ScopeAll:             "Full access to every resource.",
			ScopeCurrencyCreate:  "Create currencies.",
			ScopeCurrencyDelete:  "Delete currencies.",
			ScopeCurrencyUpdate:  "Update currencies.",
			ScopeCurrencyRequest: "Read currencies.",
			ScopeExchRateCreate:  "Create exchange rates.",
			ScopeExchRateDelete:  "Delete exchange rates.",
			ScopeExchRateUpdate:  "Update exchange rates.",
			ScopeExchRateRequest: "Read exchange rates and convert amounts.",
		},
		map[Category][]string{
			CategoryAPIClient: client,
			CategoryManager:   client,
			CategoryAdmin:     {ScopeAll},
		},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Describe returns the description of a registered scope.
func (r *ScopeRegistry) Describe(name string) (string, bool) {
	d, ok := r.descriptions[name]
	return d, ok
}

// Names returns every registered scope name, sorted.
func (r *ScopeRegistry) Names() []string {
	names := make([]string, 0, len(r.descriptions))
	for n := range r.descriptions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Defaults returns the default scope of a category and whether the
// category has one registered.
func (r *ScopeRegistry) Defaults(c Category) ([]string, bool) {
	s, ok := r.defaults[c]
	return slices.Clone(s), ok
}

// Allowed reports whether a user of category c may request scope. A
// category holding "all" may request any registered scope.
func (r *ScopeRegistry) Allowed(c Category, scope string) bool {
	if _, ok := r.descriptions[scope]; !ok {
		return false
	}
	defaults := r.defaults[c]
	return slices.Contains(defaults, ScopeAll) || slices.Contains(defaults, scope)
}
