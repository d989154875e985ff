// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package memschema is a small in-memory implementation of schema.Schema,
// enough to resolve names, walk inheritance and run the compiler's
// end-to-end scenarios without a real schema store. It plays the role the
// teacher's memory package and test/test_catalog.go play for the engine:
// a reference/test catalog, not a production store.
package memschema

import (
	"fmt"

	"github.com/pathql/pathql/schema"
)

// Concept is a concrete, mutable schema.Concept used for test and example
// schemas. Bases/Atoms/Links are populated directly by callers.
type Concept struct {
	NameStr      string
	ModuleStr    string
	AtomDefs     []schema.AtomDef
	LinkProtos   []*Link
	BaseConcepts []*Concept
}

func NewConcept(module, name string) *Concept {
	return &Concept{NameStr: name, ModuleStr: module}
}

func (c *Concept) Name() string     { return c.NameStr }
func (c *Concept) Module() string   { return c.ModuleStr }
func (c *Concept) QualName() string { return c.ModuleStr + "::" + c.NameStr }

func (c *Concept) Atoms() []schema.AtomDef { return c.AtomDefs }

func (c *Concept) Links() []schema.LinkProto {
	out := make([]schema.LinkProto, len(c.LinkProtos))
	for i, l := range c.LinkProtos {
		out[i] = l
	}
	return out
}

func (c *Concept) Bases() []schema.Concept {
	out := make([]schema.Concept, len(c.BaseConcepts))
	for i, b := range c.BaseConcepts {
		out[i] = b
	}
	return out
}

// AddAtom registers a scalar attribute on c.
func (c *Concept) AddAtom(name, typ string) *Concept {
	c.AtomDefs = append(c.AtomDefs, schema.AtomDef{AtomName: name, Type: typ})
	return c
}

// AddBase records that c inherits from base.
func (c *Concept) AddBase(base *Concept) *Concept {
	c.BaseConcepts = append(c.BaseConcepts, base)
	return c
}

// Link is a concrete, mutable schema.LinkProto.
type Link struct {
	NameStr   string
	ModuleStr string
	SourceC   *Concept
	TargetC   *Concept
	PropDefs  []schema.AtomDef
	IsSearch  bool
}

func NewLink(module, name string, source, target *Concept) *Link {
	l := &Link{NameStr: name, ModuleStr: module, SourceC: source, TargetC: target}
	source.LinkProtos = append(source.LinkProtos, l)
	return l
}

func (l *Link) Name() string            { return l.NameStr }
func (l *Link) Module() string          { return l.ModuleStr }
func (l *Link) QualName() string        { return l.ModuleStr + "::" + l.NameStr }
func (l *Link) Source() schema.Concept  { return l.SourceC }
func (l *Link) Target() schema.Concept  { return l.TargetC }
func (l *Link) Props() []schema.AtomDef { return l.PropDefs }
func (l *Link) Searchable() bool        { return l.IsSearch }

func (l *Link) AddProp(name, typ string) *Link {
	l.PropDefs = append(l.PropDefs, schema.AtomDef{AtomName: name, Type: typ})
	return l
}

func (l *Link) MarkSearchable() *Link {
	l.IsSearch = true
	return l
}

// Store is the in-memory registry of concepts and links, keyed by
// qualified name. It implements schema.Schema.
type Store struct {
	concepts map[string]*Concept
	links    map[string]*Link
	rules    schema.TypeRules
}

// New returns an empty Store using the default arithmetic/boolean type
// rules (see rules.go).
func New() *Store {
	return &Store{
		concepts: map[string]*Concept{},
		links:    map[string]*Link{},
		rules:    DefaultTypeRules{},
	}
}

// Add registers a concept under its qualified name.
func (s *Store) Add(c *Concept) *Store {
	s.concepts[c.QualName()] = c
	for _, l := range c.LinkProtos {
		s.links[l.QualName()] = l
	}
	return s
}

func (s *Store) Get(name string, kind schema.Kind, moduleAliases map[string]string) (schema.Named, error) {
	qual := resolveAlias(name, moduleAliases)
	if kind == schema.AnyKind || kind == schema.ConceptKind {
		if c, ok := s.concepts[qual]; ok {
			return c, nil
		}
	}
	if kind == schema.AnyKind || kind == schema.LinkKind {
		if l, ok := s.links[qual]; ok {
			return l, nil
		}
	}
	return nil, schema.ErrNotFound.New(name)
}

func resolveAlias(name string, moduleAliases map[string]string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == ':' && i+1 < len(name) && name[i+1] == ':' {
			prefix := name[:i]
			if full, ok := moduleAliases[prefix]; ok {
				return full + name[i:]
			}
			return name
		}
	}
	if full, ok := moduleAliases[""]; ok {
		return full + "::" + name
	}
	return name
}

func (s *Store) IsSubclass(a, b schema.Concept) bool {
	if a == nil || b == nil {
		return false
	}
	if a.QualName() == b.QualName() {
		return true
	}
	for _, base := range a.Bases() {
		if s.IsSubclass(base, b) {
			return true
		}
	}
	return false
}

// AllConcrete returns every concept registered in the store (used by
// FilterChildren; this reference store has no abstract/concrete
// distinction, so "children" means "all registered subclasses").
func (s *Store) AllConcrete() []*Concept {
	out := make([]*Concept, 0, len(s.concepts))
	for _, c := range s.concepts {
		out = append(out, c)
	}
	return out
}

func (s *Store) FilterChildren(concept schema.Concept, predicate func(schema.Concept) bool) []schema.Concept {
	var out []schema.Concept
	for _, c := range s.AllConcrete() {
		if !s.IsSubclass(c, concept) {
			continue
		}
		if predicate(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Store) GetSearchableLinks(concept schema.Concept) []schema.LinkProto {
	var out []schema.LinkProto
	c, ok := concept.(*Concept)
	if !ok {
		return nil
	}
	for _, l := range c.LinkProtos {
		if l.IsSearch {
			out = append(out, l)
		}
	}
	return out
}

func (s *Store) GetAttr(concept schema.Concept, name string) (schema.AtomDef, schema.LinkProto, error) {
	c, ok := concept.(*Concept)
	if !ok {
		return schema.AtomDef{}, nil, schema.ErrNotFound.New(name)
	}
	for _, a := range c.AtomDefs {
		if a.AtomName == name {
			return a, nil, nil
		}
	}
	for _, l := range c.LinkProtos {
		if l.NameStr == name {
			return schema.AtomDef{}, l, nil
		}
	}
	for _, base := range c.BaseConcepts {
		if a, l, err := s.GetAttr(base, name); err == nil {
			return a, l, nil
		}
	}
	return schema.AtomDef{}, nil, schema.ErrNotFound.New(fmt.Sprintf("%s.%s", concept.Name(), name))
}

func (s *Store) GetPointerOrigin(concept schema.Concept, name string, farthest bool) (schema.Concept, error) {
	c, ok := concept.(*Concept)
	if !ok {
		return nil, schema.ErrNotFound.New(name)
	}
	declares := false
	for _, a := range c.AtomDefs {
		if a.AtomName == name {
			declares = true
		}
	}
	for _, l := range c.LinkProtos {
		if l.NameStr == name {
			declares = true
		}
	}
	var best schema.Concept
	if declares {
		best = c
	}
	for _, base := range c.BaseConcepts {
		if origin, err := s.GetPointerOrigin(base, name, farthest); err == nil {
			if farthest || best == nil {
				best = origin
			}
		}
	}
	if best == nil {
		return nil, schema.ErrNotFound.New(fmt.Sprintf("%s.%s", concept.Name(), name))
	}
	return best, nil
}

func (s *Store) TypeRules() schema.TypeRules { return s.rules }

var _ schema.Schema = (*Store)(nil)
