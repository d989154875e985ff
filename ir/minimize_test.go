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
	"testing"

	"github.com/pathql/pathql/schema/memschema"
)

func threeLinks() (*EntityLink, *EntityLink, *EntityLink) {
	user := memschema.NewConcept("test", "User")
	a := memschema.NewLink("test", "a", user, user)
	b := memschema.NewLink("test", "b", user, user)
	c := memschema.NewLink("test", "c", user, user)
	mk := func(l *memschema.Link) *EntityLink {
		return &EntityLink{LinkProto: l, Filter: LinkFilter{Labels: []string{l.QualName()}, Direction: Outbound}}
	}
	return mk(a), mk(b), mk(c)
}

// (a AND b) OR (a) collapses to just a, since a alone already covers every
// minterm (a AND b) covers.
func TestMinimizeLinkDisjunctionAbsorption(t *testing.T) {
	la, lb, _ := threeLinks()
	d := NewDisjunction(NewConjunction(la, lb), NewConjunction(la))

	minimized := MinimizeLinkDisjunction(d)
	if len(minimized.Children()) != 1 {
		t.Fatalf("expected absorption down to a single term, got %d: %#v", len(minimized.Children()), minimized.Children())
	}
	if minimized.Children()[0] != Node(la) {
		t.Fatalf("expected the surviving term to be the bare link, got %#v", minimized.Children()[0])
	}
}

func TestMinimizeLinkDisjunctionPassesThroughBareTerms(t *testing.T) {
	la, lb, _ := threeLinks()
	d := NewDisjunction(la, lb)

	minimized := MinimizeLinkDisjunction(d)
	if len(minimized.Children()) != 2 {
		t.Fatalf("a disjunction with no Conjunction members should be returned unchanged, got %d children", len(minimized.Children()))
	}
}

func TestIntersectDisjunctionsUnrollsCartesianProduct(t *testing.T) {
	la, lb, lc := threeLinks()
	left := NewDisjunction(la, lb)
	right := NewDisjunction(lc)

	result := IntersectDisjunctions(left, right, false)
	if len(result.Children()) != 2 {
		t.Fatalf("expected 2 unrolled conjunction terms (a AND c, b AND c), got %d", len(result.Children()))
	}
	for _, child := range result.Children() {
		conj, ok := child.(*Conjunction)
		if !ok {
			t.Fatalf("expected each term to be a Conjunction, got %T", child)
		}
		if len(conj.Children()) != 2 {
			t.Fatalf("expected each conjunction to carry both operands, got %d", len(conj.Children()))
		}
	}
}
