package scene

import "fmt"

// Entry is a collection member together with its visibility flag.
type Entry struct {
	Object  Object
	Visible bool
}

// Collection is an ordered, named group of scene objects. The zero value is
// an empty, unnamed collection ready for use.
type Collection struct {
	Name    string
	entries []Entry
}

// NewCollection returns an empty collection with the given name.
func NewCollection(name string) *Collection {
	return &Collection{Name: name}
}

func (c *Collection) Kind() ObjectKind   { return KindCollection }
func (c *Collection) ObjectName() string { return c.Name }

// Add appends obj. Invisible objects remain members but are skipped by Plain.
func (c *Collection) Add(obj Object, visible bool) {
	c.entries = append(c.entries, Entry{Object: obj, Visible: visible})
}

// AddCollection creates, appends and returns a named sub-collection.
func (c *Collection) AddCollection(name string, visible bool) *Collection {
	sub := NewCollection(name)
	c.Add(sub, visible)
	return sub
}

// Clear removes every member.
func (c *Collection) Clear() {
	c.entries = nil
}

// Entries returns the members in insertion order.
func (c *Collection) Entries() []Entry {
	return c.entries
}

// Len returns the number of direct members.
func (c *Collection) Len() int {
	return len(c.entries)
}

// Lookup returns the first direct member with the given name, or nil.
func (c *Collection) Lookup(name string) Object {
	for _, e := range c.entries {
		if e.Object.ObjectName() == name {
			return e.Object
		}
	}
	return nil
}

// Sub returns the direct sub-collection with the given name, or nil.
func (c *Collection) Sub(name string) *Collection {
	for _, e := range c.entries {
		if sub, ok := e.Object.(*Collection); ok && sub.Name == name {
			return sub
		}
	}
	return nil
}

// MustSub returns the named sub-collection, or panics.
func (c *Collection) MustSub(name string) *Collection {
	sub := c.Sub(name)
	if sub == nil {
		panic(fmt.Sprintf("scene: collection %q has no sub-collection %q", c.Name, name))
	}
	return sub
}

// SetVisible changes the visibility flag of the named direct member and
// reports whether it was found.
func (c *Collection) SetVisible(name string, visible bool) bool {
	for i := range c.entries {
		if c.entries[i].Object.ObjectName() == name {
			c.entries[i].Visible = visible
			return true
		}
	}
	return false
}

// WalkFunc is called for every member reached by Walk. path holds the names
// of the enclosing collections, outermost first. visible is true only if the
// object and all enclosing collections are visible.
type WalkFunc func(path []string, obj Object, visible bool) error

// Walk visits every member depth first in insertion order. Collections are
// visited before their members. Walk stops at the first error.
func (c *Collection) Walk(fn WalkFunc) error {
	return c.walk([]string{c.Name}, true, fn)
}

func (c *Collection) walk(path []string, visible bool, fn WalkFunc) error {
	for _, e := range c.entries {
		v := visible && e.Visible
		if err := fn(path, e.Object, v); err != nil {
			return err
		}
		if sub, ok := e.Object.(*Collection); ok {
			subPath := append(append([]string(nil), path...), sub.Name)
			if err := sub.walk(subPath, v, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Plain returns the visible primitives of the tree, flattened in walk order.
func (c *Collection) Plain() []Object {
	var out []Object
	_ = c.Walk(func(_ []string, obj Object, visible bool) error {
		if visible && obj.Kind() != KindCollection {
			out = append(out, obj)
		}
		return nil
	})
	return out
}

// Count returns the number of primitives in the tree, visible or not.
func (c *Collection) Count() int {
	n := 0
	_ = c.Walk(func(_ []string, obj Object, _ bool) error {
		if obj.Kind() != KindCollection {
			n++
		}
		return nil
	})
	return n
}

// Polygons returns every polygon in the tree, visible or not.
func (c *Collection) Polygons() []*Polygon {
	var out []*Polygon
	_ = c.Walk(func(_ []string, obj Object, _ bool) error {
		if p, ok := obj.(*Polygon); ok {
			out = append(out, p)
		}
		return nil
	})
	return out
}
