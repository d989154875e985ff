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

// PathIndex is a multimap from path identifier (or anchor string) to the
// set of GIR nodes representing it (C3). Keys may be either a
// LinearPath.Key() or a bare anchor string, per §4.2: "anchor or id".
//
// Set and Update have deliberately different semantics (§9 open
// question, preserved rather than unified): Set replaces whatever set
// was stored under key, Update unions the given nodes into it. Both are
// used by the source this spec distills from, so both are kept public.
type PathIndex struct {
	byKey map[string][]Node
	// order preserves first-insertion order of keys, so iteration (e.g.
	// for deterministic diagnostics) doesn't depend on Go map order.
	order []string
}

// NewPathIndex returns an empty index.
func NewPathIndex() *PathIndex {
	return &PathIndex{byKey: map[string][]Node{}}
}

func (idx *PathIndex) touch(key string) {
	if _, ok := idx.byKey[key]; !ok {
		idx.order = append(idx.order, key)
	}
}

// Set replaces the node set stored under key (no union with any
// existing entry).
func (idx *PathIndex) Set(key string, nodes []Node) {
	idx.touch(key)
	cp := make([]Node, len(nodes))
	copy(cp, nodes)
	idx.byKey[key] = cp
}

// Update unions nodes into whatever is already stored under key.
func (idx *PathIndex) Update(key string, nodes ...Node) {
	idx.touch(key)
	existing := idx.byKey[key]
	for _, n := range nodes {
		if !containsNode(existing, n) {
			existing = append(existing, n)
		}
	}
	idx.byKey[key] = existing
}

func containsNode(set []Node, n Node) bool {
	for _, x := range set {
		if x == n {
			return true
		}
	}
	return false
}

// Get returns the node set stored under key, or nil if absent.
func (idx *PathIndex) Get(key string) []Node {
	return idx.byKey[key]
}

// Keys returns the index's keys in first-insertion order.
func (idx *PathIndex) Keys() []string {
	out := make([]string, len(idx.order))
	copy(out, idx.order)
	return out
}

// Len reports the number of distinct keys in the index.
func (idx *PathIndex) Len() int { return len(idx.byKey) }

// KeyFor returns the index key for a path-bearing node: its anchor if
// set, else its LinearPath's Key().
func KeyFor(id LinearPath, anchor string) string {
	if anchor != "" {
		return "anchor:" + anchor
	}
	return "path:" + id.Key()
}
