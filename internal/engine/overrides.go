package engine

import "sort"

// Overrides is the set of field labels the user edited directly in the current
// (property, scenario) session. A field in the set is never rewritten by
// Recompute.
type Overrides struct {
	fields map[string]struct{}
}

// NewOverrides returns an empty override set.
func NewOverrides() *Overrides {
	return &Overrides{fields: make(map[string]struct{})}
}

// Mark records field as manually overridden.
func (o *Overrides) Mark(field string) {
	o.fields[field] = struct{}{}
}

// Clear lets field re-enter automatic mode.
func (o *Overrides) Clear(field string) {
	delete(o.fields, field)
}

// IsOverridden is the gate consulted before any automatic write.
func (o *Overrides) IsOverridden(field string) bool {
	_, ok := o.fields[field]
	return ok
}

// Reset drops every override.
func (o *Overrides) Reset() {
	o.fields = make(map[string]struct{})
}

// Fields returns the overridden labels in sorted order.
func (o *Overrides) Fields() []string {
	out := make([]string, 0, len(o.fields))
	for f := range o.fields {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
