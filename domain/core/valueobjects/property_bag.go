package valueobjects

import (
	"encoding/json"
	"reflect"
	"sort"
)

// PropertyBag is an immutable collection of property values keyed by
// property name. It carries whatever the schema permits; checking values
// against property definitions is the validators' job. Mutating operations
// return a new bag.
type PropertyBag struct {
	values map[string]interface{}
}

// NewPropertyBag creates a bag from a map, copying it
func NewPropertyBag(values map[string]interface{}) PropertyBag {
	copied := make(map[string]interface{}, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return PropertyBag{values: copied}
}

// EmptyPropertyBag creates a bag with no properties
func EmptyPropertyBag() PropertyBag {
	return PropertyBag{values: map[string]interface{}{}}
}

// Get returns the value for a property name
func (b PropertyBag) Get(name string) (interface{}, bool) {
	v, ok := b.values[name]
	return v, ok
}

// Has reports whether the property is present
func (b PropertyBag) Has(name string) bool {
	_, ok := b.values[name]
	return ok
}

// Len returns the number of properties
func (b PropertyBag) Len() int {
	return len(b.values)
}

// Names returns the property names in sorted order
func (b PropertyBag) Names() []string {
	names := make([]string, 0, len(b.values))
	for name := range b.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToMap returns a copy of the underlying map
func (b PropertyBag) ToMap() map[string]interface{} {
	copied := make(map[string]interface{}, len(b.values))
	for k, v := range b.values {
		copied[k] = v
	}
	return copied
}

// With returns a new bag with the property set
func (b PropertyBag) With(name string, value interface{}) PropertyBag {
	next := b.ToMap()
	next[name] = value
	return PropertyBag{values: next}
}

// Without returns a new bag with the property removed
func (b PropertyBag) Without(name string) PropertyBag {
	next := b.ToMap()
	delete(next, name)
	return PropertyBag{values: next}
}

// Merge returns a new bag where other's properties override b's
func (b PropertyBag) Merge(other PropertyBag) PropertyBag {
	next := b.ToMap()
	for k, v := range other.values {
		next[k] = v
	}
	return PropertyBag{values: next}
}

// Equals checks if two bags hold the same properties and values
func (b PropertyBag) Equals(other PropertyBag) bool {
	if len(b.values) != len(other.values) {
		return false
	}
	for k, v := range b.values {
		ov, ok := other.values[k]
		if !ok || !reflect.DeepEqual(v, ov) {
			return false
		}
	}
	return true
}

// MarshalJSON implements json.Marshaler
func (b PropertyBag) MarshalJSON() ([]byte, error) {
	if b.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(b.values)
}

// UnmarshalJSON implements json.Unmarshaler
func (b *PropertyBag) UnmarshalJSON(data []byte) error {
	var values map[string]interface{}
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	if values == nil {
		values = map[string]interface{}{}
	}
	b.values = values
	return nil
}
