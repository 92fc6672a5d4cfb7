package core

// categories is the fixed display order. The last entry is the bulk-import
// fallback.
var categories = [...]string{
	"Necessary Travel",
	"Friends Travel",
	"Other Travel",
	"Basic Food",
	"Zomato Food",
	"Hotel Food",
	"Dessert",
	"Rent",
	"House",
	"TFG",
	"Invest",
	"Savings",
	"Other",
}

// Registry is the immutable set of valid expense categories.
type Registry struct {
	names [len(categories)]string
	index map[string]int
}

var defaultRegistry = newRegistry()

func newRegistry() Registry {
	r := Registry{names: categories, index: make(map[string]int, len(categories))}
	for i, name := range r.names {
		r.index[name] = i
	}
	return r
}

// DefaultRegistry returns the shared category registry.
func DefaultRegistry() Registry {
	return defaultRegistry
}

// Contains reports whether name exactly matches a registered category.
func (r Registry) Contains(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Default returns the fallback category used by bulk import.
func (r Registry) Default() string {
	return r.names[len(r.names)-1]
}

// All returns the categories in display order. The slice is a copy.
func (r Registry) All() []string {
	out := make([]string, len(r.names))
	copy(out, r.names[:])
	return out
}

// Index returns the display position of name, or -1.
func (r Registry) Index(name string) int {
	if i, ok := r.index[name]; ok {
		return i
	}
	return -1
}

func (r Registry) Len() int {
	return len(r.names)
}
