package checkpoint

import "clipharvest/pkg/logger"

// List is an insertion-ordered string set backed by a JSON array file.
// Every mutation is persisted before the call returns.
type List struct {
	path   string
	keyFn  func(string) string
	items  []string
	index  map[string]struct{}
	logger logger.Logger
}

// ListOption configures a List.
type ListOption func(*List)

// WithKey makes membership compare fn(item) instead of the item itself.
// The first spelling seen is kept.
func WithKey(fn func(string) string) ListOption {
	return func(l *List) { l.keyFn = fn }
}

// WithLogger sets the logger used for save notices.
func WithLogger(log logger.Logger) ListOption {
	return func(l *List) { l.logger = log }
}

// OpenList reads path into a List. A missing file yields an empty list;
// found reports whether the file existed.
func OpenList(path string, opts ...ListOption) (list *List, found bool, err error) {
	list = &List{
		path:   path,
		index:  make(map[string]struct{}),
		logger: logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(list)
	}

	var raw []string
	found, err = LoadJSON(path, &raw)
	if err != nil {
		return nil, found, err
	}
	for _, item := range raw {
		list.insert(item)
	}
	return list, found, nil
}

func (l *List) key(item string) string {
	if l.keyFn != nil {
		return l.keyFn(item)
	}
	return item
}

func (l *List) insert(item string) bool {
	k := l.key(item)
	if _, ok := l.index[k]; ok {
		return false
	}
	l.index[k] = struct{}{}
	l.items = append(l.items, item)
	return true
}

// Path returns the backing file.
func (l *List) Path() string {
	return l.path
}

// Contains reports membership.
func (l *List) Contains(item string) bool {
	_, ok := l.index[l.key(item)]
	return ok
}

// Len returns the number of items.
func (l *List) Len() int {
	return len(l.items)
}

// Items returns a copy of the items in insertion order.
func (l *List) Items() []string {
	out := make([]string, len(l.items))
	copy(out, l.items)
	return out
}

// Add inserts item if absent and persists the list when it changed.
func (l *List) Add(item string) (added bool, err error) {
	if !l.insert(item) {
		return false, nil
	}
	if err := l.Persist(); err != nil {
		// keep memory consistent with disk
		delete(l.index, l.key(item))
		l.items = l.items[:len(l.items)-1]
		return false, err
	}
	return true, nil
}

// Persist rewrites the backing file with the current items.
func (l *List) Persist() error {
	items := l.items
	if items == nil {
		items = []string{}
	}
	if err := SaveJSON(l.path, items); err != nil {
		return err
	}
	l.logger.DebugWithFields("List saved", map[string]interface{}{
		"path":  l.path,
		"items": len(items),
	})
	return nil
}
