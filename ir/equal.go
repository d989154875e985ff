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

package ir

import (
	"reflect"

	"github.com/pathql/pathql/schema"
)

// Equal reports whether two GIR expressions are structurally equal:
// same shape, same path identities, same filters, regardless of which
// concrete nodes happen to be the surviving canonical ones (two
// independently-unified trees over the same input paths are Equal even
// though no node pointer is shared between them). This is what the
// property tests of §8 (order-independence of UnifyPaths, idempotence)
// compare with, since GIR nodes carry back-edges (rlink <-> source/
// target) that a naive deep-equal (e.g. reflect.DeepEqual or an
// unconfigured go-cmp.Equal) would recurse into forever.
func Equal(a, b Node) bool {
	return equalSeen(a, b, map[[2]uintptr]bool{})
}

func equalSeen(a, b Node, seen map[[2]uintptr]bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	pa, pb := nodePtr(a), nodePtr(b)
	if pa != 0 && pb != 0 {
		key := [2]uintptr{pa, pb}
		if seen[key] {
			return true // already comparing this pair higher up: assume equal, breaks cycles
		}
		seen[key] = true
	}
	switch ta := a.(type) {
	case *EntitySet:
		tb, ok := b.(*EntitySet)
		if !ok {
			return false
		}
		return ta.ID.Equal(tb.ID) && ta.Anchor == tb.Anchor &&
			equalSeen(ta.Filter, tb.Filter, seen) &&
			equalConceptSlice(ta.ConceptFilter, tb.ConceptFilter) &&
			equalCombination(ta.Conjunction, tb.Conjunction, seen) &&
			equalCombination(ta.Disjunction, tb.Disjunction, seen)
	case *EntityLink:
		tb, ok := b.(*EntityLink)
		if !ok {
			return false
		}
		return ta.Filter.Equal(tb.Filter) &&
			equalSeen(ta.SourceSet, tb.SourceSet, seen) &&
			equalSeen(ta.PropFilter, tb.PropFilter, seen)
	case *Conjunction:
		tb, ok := b.(*Conjunction)
		if !ok {
			return false
		}
		return equalNodeSet(ta.Children(), tb.Children(), seen)
	case *Disjunction:
		tb, ok := b.(*Disjunction)
		if !ok {
			return false
		}
		return equalNodeSet(ta.Children(), tb.Children(), seen)
	case *AtomicRefSimple:
		tb, ok := b.(*AtomicRefSimple)
		if !ok {
			return false
		}
		return ta.Name == tb.Name && equalSeen(ta.Ref, tb.Ref, seen)
	case *AtomicRefExpr:
		tb, ok := b.(*AtomicRefExpr)
		if !ok {
			return false
		}
		return equalSeen(ta.Expr, tb.Expr, seen) && equalSeen(ta.Ref, tb.Ref, seen)
	case *MetaRef:
		tb, ok := b.(*MetaRef)
		if !ok {
			return false
		}
		return ta.Name == tb.Name && equalSeen(ta.Ref, tb.Ref, seen)
	case *LinkPropRefSimple:
		tb, ok := b.(*LinkPropRefSimple)
		return ok && ta.Name == tb.Name
	case *LinkPropRefExpr:
		tb, ok := b.(*LinkPropRefExpr)
		if !ok {
			return false
		}
		return equalSeen(ta.Expr, tb.Expr, seen)
	case *InlineFilter:
		tb, ok := b.(*InlineFilter)
		if !ok {
			return false
		}
		return equalSeen(ta.Owner, tb.Owner, seen)
	case *InlinePropFilter:
		tb, ok := b.(*InlinePropFilter)
		if !ok {
			return false
		}
		return equalSeen(ta.Owner, tb.Owner, seen)
	case *BinOp:
		tb, ok := b.(*BinOp)
		if !ok {
			return false
		}
		return ta.Op == tb.Op && ta.Aggregates == tb.Aggregates &&
			equalSeen(ta.Left, tb.Left, seen) && equalSeen(ta.Right, tb.Right, seen)
	case *UnaryOp:
		tb, ok := b.(*UnaryOp)
		if !ok {
			return false
		}
		return ta.Op == tb.Op && equalSeen(ta.Operand, tb.Operand, seen)
	case *NoneTest:
		tb, ok := b.(*NoneTest)
		if !ok {
			return false
		}
		return ta.Negated == tb.Negated && equalSeen(ta.Operand, tb.Operand, seen)
	case *TypeCast:
		tb, ok := b.(*TypeCast)
		if !ok {
			return false
		}
		return ta.Type == tb.Type && equalSeen(ta.Operand, tb.Operand, seen)
	case *Constant:
		tb, ok := b.(*Constant)
		return ok && ta.Type == tb.Type && ta.Value == tb.Value
	case *Sequence:
		tb, ok := b.(*Sequence)
		if !ok || len(ta.Elements) != len(tb.Elements) {
			return false
		}
		for i := range ta.Elements {
			if !equalSeen(ta.Elements[i], tb.Elements[i], seen) {
				return false
			}
		}
		return true
	case *Record:
		tb, ok := b.(*Record)
		if !ok || len(ta.Fields) != len(tb.Fields) {
			return false
		}
		for i := range ta.Fields {
			if ta.Fields[i].Name != tb.Fields[i].Name || !equalSeen(ta.Fields[i].Value, tb.Fields[i].Value, seen) {
				return false
			}
		}
		return true
	case *FunctionCall:
		tb, ok := b.(*FunctionCall)
		if !ok || ta.Name != tb.Name || len(ta.Args) != len(tb.Args) {
			return false
		}
		for i := range ta.Args {
			if !equalSeen(ta.Args[i], tb.Args[i], seen) {
				return false
			}
		}
		return true
	case *GraphExpr:
		tb, ok := b.(*GraphExpr)
		if !ok {
			return false
		}
		return equalSeen(ta.Generator, tb.Generator, seen) && equalNodeSlice(ta.Selector, tb.Selector, seen)
	}
	return false
}

func equalCombination(a, b PathCombination, seen map[[2]uintptr]bool) bool {
	aEmpty := a == nil || len(a.Children()) == 0
	bEmpty := b == nil || len(b.Children()) == 0
	if aEmpty || bEmpty {
		return aEmpty == bEmpty
	}
	return equalNodeSet(a.Children(), b.Children(), seen)
}

// equalNodeSet compares two node slices as sets (PathCombination
// children are unordered, invariant 3.3).
func equalNodeSet(a, b []Node, seen map[[2]uintptr]bool) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, x := range a {
		found := false
		for i, y := range b {
			if used[i] {
				continue
			}
			if equalSeen(x, y, seen) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func equalNodeSlice(a, b []Node, seen map[[2]uintptr]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equalSeen(a[i], b[i], seen) {
			return false
		}
	}
	return true
}

func equalConceptSlice(a, b []schema.Concept) bool {
	if len(a) != len(b) {
		return false
	}
	names := map[string]bool{}
	for _, c := range a {
		names[c.QualName()] = true
	}
	for _, c := range b {
		if !names[c.QualName()] {
			return false
		}
	}
	return true
}

// nodePtr returns the underlying pointer value of n as a uintptr, or 0
// if n does not wrap a pointer (e.g. a nil interface never reaches
// here; callers guard that separately).
func nodePtr(n Node) uintptr {
	v := reflect.ValueOf(n)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return 0
	}
	return v.Pointer()
}
