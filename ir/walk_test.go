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

func friendGraph() (*EntitySet, *EntitySet) {
	user := memschema.NewConcept("test", "User")
	friends := memschema.NewLink("test", "friends", user, user)
	_ = friends

	root := &EntitySet{Concept: user, ID: NewLinearPath(user.QualName())}
	target := &EntitySet{Concept: user, ID: root.ID.Add(Outbound, user.QualName(), "test::friends")}
	link := &EntityLink{
		SourceSet: root,
		TargetSet: target,
		LinkProto: friends,
		Filter:    LinkFilter{Labels: []string{"test::friends"}, Direction: Outbound},
	}
	target.RLink = link
	root.Disjunction = NewDisjunction(link)
	return root, target
}

func TestWalkVisitsEveryNode(t *testing.T) {
	root, target := friendGraph()
	var seen []Node
	Inspect(root, func(n Node) bool {
		seen = append(seen, n)
		return true
	})
	foundTarget := false
	for _, n := range seen {
		if n == Node(target) {
			foundTarget = true
		}
	}
	if !foundTarget {
		t.Fatalf("expected Walk to reach the link's target set")
	}
}

func TestInspectStopsDescending(t *testing.T) {
	root, _ := friendGraph()
	visits := 0
	Inspect(root, func(n Node) bool {
		visits++
		_, isLink := n.(*EntityLink)
		return !isLink
	})
	// root, disjunction, link: descending into the link's target should
	// be suppressed once Inspect returns false for the link itself.
	if visits != 3 {
		t.Fatalf("expected exactly 3 visited nodes when stopping at the link, got %d", visits)
	}
}

func TestExtractPrefixesIndexesEntitySets(t *testing.T) {
	root, target := friendGraph()
	idx := NewPathIndex()
	ExtractPrefixes(root, idx)

	rootKey := KeyFor(root.ID, root.Anchor)
	targetKey := KeyFor(target.ID, target.Anchor)

	if len(idx.Get(rootKey)) != 1 {
		t.Fatalf("expected root indexed under its own key")
	}
	if len(idx.Get(targetKey)) != 1 {
		t.Fatalf("expected target indexed under its own key")
	}
}

func TestExtractPrefixesStopsAtSubqueryBoundary(t *testing.T) {
	root, _ := friendGraph()
	inner := &GraphExpr{Generator: root}
	outer := &GraphExpr{Generator: inner}

	idx := NewPathIndex()
	ExtractPrefixes(outer, idx)
	if idx.Len() != 0 {
		t.Fatalf("a nested GraphExpr should be opaque to prefix extraction, got %d keys", idx.Len())
	}
}
