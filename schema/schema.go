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

// Package schema declares the schema collaborator interface the compiler
// resolves names, inheritance and searchability against. It is an external
// collaborator (§6 of the spec): the store itself, its persistence and its
// DDL are out of scope, only the read-only query surface the core needs.
package schema

import "gopkg.in/src-d/go-errors.v1"

// Kind distinguishes what a Get lookup is allowed to resolve to.
type Kind int

const (
	// AnyKind resolves to whichever of Concept/Link/Atom matches the name.
	AnyKind Kind = iota
	ConceptKind
	LinkKind
	AtomKind
)

// Op is a binary or unary operator name as understood by TypeRules.
type Op string

const (
	OpEq     Op = "="
	OpNeq    Op = "!="
	OpGt     Op = ">"
	OpGte    Op = ">="
	OpLt     Op = "<"
	OpLte    Op = "<="
	OpAnd    Op = "AND"
	OpOr     Op = "OR"
	OpNot    Op = "NOT"
	OpIn     Op = "IN"
	OpNotIn  Op = "NOT IN"
	OpPlus   Op = "+"
	OpMinus  Op = "-"
	OpMul    Op = "*"
	OpDiv    Op = "/"
	OpIs     Op = "IS"
	OpIsNot  Op = "IS NOT"
	OpSearch Op = "SEARCH"
)

// Weak reports whether op is one of the spec's always-weak operators
// (§4.6): OR, IN, NOT IN never require intersection of operand paths.
func (o Op) Weak() bool {
	return o == OpOr || o == OpIn || o == OpNotIn
}

// Named is anything the schema can hand back with a qualified name.
type Named interface {
	Name() string
	Module() string
	QualName() string
}

// Concept is an entity type: a node in the concept/inheritance lattice.
type Concept interface {
	Named
	// Atoms lists the scalar-valued leaf attributes declared directly on
	// this concept (not inherited).
	Atoms() []AtomDef
	// Links lists the outbound link prototypes declared directly on this
	// concept (not inherited).
	Links() []LinkProto
	// Bases lists the concepts this concept directly inherits from.
	Bases() []Concept
}

// LinkProto is a typed directed relation between concepts, with its own
// properties (analogous to an edge type in the schema).
type LinkProto interface {
	Named
	Source() Concept
	Target() Concept
	// Props are scalar-valued properties carried by the link itself
	// (link properties, as opposed to atoms of the target concept).
	Props() []AtomDef
	// Searchable reports whether this link participates in full-text
	// search (consulted by process_binop's SEARCH handling, §4.7.5).
	Searchable() bool
}

// AtomDef is a scalar-valued leaf attribute declaration.
type AtomDef struct {
	AtomName string
	Type     string
}

// TypeRules computes the result type of an operator application, and
// folds constant/constant binops (§4.7.9).
type TypeRules interface {
	// GetResult returns the schema type name resulting from applying op
	// to operands of the given argument type names.
	GetResult(op Op, argTypes []string) (string, error)
	// FoldConst evaluates op over two constant Go values of the given
	// declared types, returning the folded constant value.
	FoldConst(op Op, left, right interface{}, leftType, rightType string) (interface{}, error)
}

// Schema is the read-only collaborator the compiler resolves names,
// subtype relations and searchability against (§6). It is the only
// interface this module depends on to look something up in the store;
// a concrete implementation (e.g. schema/memschema) owns the actual
// concept/link/atom catalog.
type Schema interface {
	// Get resolves name (optionally module-qualified) to a schema entity,
	// applying moduleAliases first. kind narrows which namespace to
	// search; AnyKind searches all three.
	Get(name string, kind Kind, moduleAliases map[string]string) (Named, error)
	// IsSubclass reports whether a is a subclass of (or equal to) b.
	IsSubclass(a, b Concept) bool
	// FilterChildren returns the set of concrete subconcepts of concept
	// for which predicate holds, used to build a concept filter for
	// `IS NOT` (§4.7.3).
	FilterChildren(concept Concept, predicate func(Concept) bool) []Concept
	// GetSearchableLinks returns the outbound links of concept that
	// participate in full-text search.
	GetSearchableLinks(concept Concept) []LinkProto
	// GetAttr resolves a bare attribute name against concept, returning
	// either an AtomDef or a LinkProto, whichever the concept declares.
	GetAttr(concept Concept, name string) (AtomDef, LinkProto, error)
	// GetPointerOrigin walks the inheritance lattice to find the base
	// concept that first declared a pointer (atom or link) named name.
	// If farthest is true, returns the topmost base that still declares
	// it; otherwise the nearest ancestor.
	GetPointerOrigin(concept Concept, name string, farthest bool) (Concept, error)
	// TypeRules exposes the operator result-type/fold table.
	TypeRules() TypeRules
}

// Error kinds surfaced by schema implementations. The compiler treats
// these as passing through unchanged per spec.md §7.
var (
	ErrNotFound        = errors.NewKind("reference %q could not be resolved in the schema")
	ErrAmbiguousModule = errors.NewKind("reference %q is ambiguous across modules %v")
	ErrWrongKind       = errors.NewKind("reference %q resolved to %s, expected %s")
)
