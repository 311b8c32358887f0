package manifest

// ordered is a map that remembers insertion order.
type ordered[T any] struct {
	keys  []string
	items map[string]T
}

func newOrdered[T any]() ordered[T] {
	return ordered[T]{items: make(map[string]T)}
}

// add stores v under key. It returns false if key is already present.
func (o *ordered[T]) add(key string, v T) bool {
	if _, ok := o.items[key]; ok {
		return false
	}
	o.keys = append(o.keys, key)
	o.items[key] = v
	return true
}

func (o *ordered[T]) get(key string) (T, bool) {
	v, ok := o.items[key]
	return v, ok
}

func (o *ordered[T]) values() []T {
	out := make([]T, 0, len(o.keys))
	for _, k := range o.keys {
		out = append(out, o.items[k])
	}
	return out
}

