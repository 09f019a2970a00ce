package bundle

// Ordered is a string-keyed map that remembers the position each key was
// first inserted at. Overwriting a key keeps its position.
type Ordered[V any] struct {
	keys   []string
	values map[string]V
}

// NewOrdered creates an empty Ordered map.
func NewOrdered[V any]() *Ordered[V] {
	return &Ordered[V]{values: make(map[string]V)}
}

// Set stores v under key.
func (o *Ordered[V]) Set(key string, v V) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Get returns the value stored under key.
func (o *Ordered[V]) Get(key string) (V, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Keys returns the keys in first-insertion order.
func (o *Ordered[V]) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of keys.
func (o *Ordered[V]) Len() int {
	return len(o.keys)
}

// Assign copies every entry of src into o, in src order. Later writes win;
// keys already present keep their position.
func (o *Ordered[V]) Assign(src *Ordered[V]) {
	if src == nil {
		return
	}
	for _, k := range src.keys {
		o.Set(k, src.values[k])
	}
}

// Clone returns an independent copy.
func (o *Ordered[V]) Clone() *Ordered[V] {
	c := NewOrdered[V]()
	c.Assign(o)
	return c
}

// Map returns a plain map copy of the entries.
func (o *Ordered[V]) Map() map[string]V {
	out := make(map[string]V, len(o.values))
	for k, v := range o.values {
		out[k] = v
	}
	return out
}
