// Package namelist reads and writes Fortran namelist documents as consumed
// by the optimizer and the polar worker:
//
//	&group
//	  key = value
//	  key(1) = value   ! comment
//	/
//
// Values are kept as raw literals so that a template round-trips unchanged.
package namelist

import (
	"sort"

	"strakmachine/strakerr"
)

// Entry is one key = value line. An entry without Key is a comment line.
type Entry struct {
	Key     string
	Index   int // 0 for scalars, 1-based for array elements
	Value   string
	Comment string
}

type Group struct {
	Name string
	// comment lines in front of &Name
	Comments []string
	Entries  []*Entry
}

type Document struct {
	Groups []*Group
}

func New() *Document {
	return &Document{}
}

// Group returns the group with the given name or nil.
func (d *Document) Group(name string) *Group {
	for _, g := range d.Groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// Ensure returns the named group, appending an empty one if necessary.
func (d *Document) Ensure(name string) *Group {
	if g := d.Group(name); g != nil {
		return g
	}
	g := &Group{Name: name}
	d.Groups = append(d.Groups, g)
	return g
}

// MustGroup is Group but reports a MissingKey error for absent groups.
func (d *Document) MustGroup(name string) (*Group, error) {
	if g := d.Group(name); g != nil {
		return g, nil
	}
	return nil, strakerr.New(strakerr.MissingKey, name, "namelist group &%s not found", name)
}

func (d *Document) Clone() *Document {
	c := &Document{Groups: make([]*Group, len(d.Groups))}
	for i, g := range d.Groups {
		ng := &Group{Name: g.Name, Comments: append([]string(nil), g.Comments...), Entries: make([]*Entry, len(g.Entries))}
		for j, e := range g.Entries {
			ce := *e
			ng.Entries[j] = &ce
		}
		c.Groups[i] = ng
	}
	return c
}

func (g *Group) find(key string, index int) *Entry {
	for _, e := range g.Entries {
		if e.Key == key && e.Index == index {
			return e
		}
	}
	return nil
}

func (g *Group) Get(key string) (string, bool) {
	if e := g.find(key, 0); e != nil {
		return e.Value, true
	}
	return "", false
}

// Set replaces the scalar value of key, appending it when absent.
func (g *Group) Set(key, value string) *Entry {
	return g.SetIndexed(key, 0, value)
}

func (g *Group) SetIndexed(key string, index int, value string) *Entry {
	if e := g.find(key, index); e != nil {
		e.Value = value
		return e
	}
	e := &Entry{Key: key, Index: index, Value: value}
	g.Entries = append(g.Entries, e)
	return e
}

// Delete removes the scalar and every array element of key.
func (g *Group) Delete(key string) {
	kept := g.Entries[:0]
	for _, e := range g.Entries {
		if e.Key != key {
			kept = append(kept, e)
		}
	}
	g.Entries = kept
}

// Array returns the array elements of key ordered by index.
func (g *Group) Array(key string) []*Entry {
	var out []*Entry
	for _, e := range g.Entries {
		if e.Key == key && e.Index > 0 {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func (g *Group) lookup(key string) (string, error) {
	v, ok := g.Get(key)
	if !ok {
		return "", strakerr.New(strakerr.MissingKey, key, "key %s missing in &%s", key, g.Name)
	}
	return v, nil
}

func (g *Group) Float(key string) (float64, error) {
	v, err := g.lookup(key)
	if err != nil {
		return 0, err
	}
	return ParseFloat(v)
}

func (g *Group) Int(key string) (int, error) {
	v, err := g.lookup(key)
	if err != nil {
		return 0, err
	}
	return ParseInt(v)
}

func (g *Group) String(key string) (string, error) {
	v, err := g.lookup(key)
	if err != nil {
		return "", err
	}
	return Unquote(v), nil
}

func (g *Group) Bool(key string) (bool, error) {
	v, err := g.lookup(key)
	if err != nil {
		return false, err
	}
	return ParseBool(v)
}
