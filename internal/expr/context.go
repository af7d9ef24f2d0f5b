package expr

// Context holds the named field groups an expression evaluates against.
// It is built fresh for each evaluation cycle and is read-only during use.
type Context struct {
	groups map[string]map[string]Value
}

// NewContext creates an empty evaluation context
func NewContext() *Context {
	return &Context{groups: make(map[string]map[string]Value)}
}

// SetGroup installs a field group, replacing any existing group of the same
// name. The map is stored as-is; callers must not mutate it afterwards.
func (c *Context) SetGroup(name string, fields map[string]Value) {
	c.groups[name] = fields
}

// SetField sets a single field, creating the group if needed
func (c *Context) SetField(group, field string, value Value) {
	g, ok := c.groups[group]
	if !ok {
		g = make(map[string]Value)
		c.groups[group] = g
	}
	g[field] = value
}

// HasGroup reports whether the named group is present
func (c *Context) HasGroup(name string) bool {
	_, ok := c.groups[name]
	return ok
}

// Lookup resolves a group.field reference. The second result is false when
// the group or field is absent — absence is distinct from a null value.
func (c *Context) Lookup(group, field string) (Value, bool) {
	g, ok := c.groups[group]
	if !ok {
		return Null(), false
	}
	v, ok := g[field]
	if !ok {
		return Null(), false
	}
	return v, true
}

// Groups returns the group names present in the context
func (c *Context) Groups() []string {
	names := make([]string, 0, len(c.groups))
	for name := range c.groups {
		names = append(names, name)
	}
	return names
}
