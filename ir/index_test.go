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

import "testing"

func TestPathIndexSetReplaces(t *testing.T) {
	idx := NewPathIndex()
	a, b, c := &Constant{}, &Constant{}, &Constant{}
	idx.Update("k", a, b)
	idx.Set("k", []Node{c})
	got := idx.Get("k")
	if len(got) != 1 || got[0] != c {
		t.Fatalf("Set must replace, got %v", got)
	}
}

func TestPathIndexUpdateUnions(t *testing.T) {
	idx := NewPathIndex()
	a, b := &Constant{}, &Constant{}
	idx.Update("k", a)
	idx.Update("k", a, b)
	got := idx.Get("k")
	if len(got) != 2 {
		t.Fatalf("Update must union without duplicating, got %d entries", len(got))
	}
}

func TestPathIndexKeysPreserveInsertionOrder(t *testing.T) {
	idx := NewPathIndex()
	idx.Update("second", &Constant{})
	idx.Update("first", &Constant{})
	idx.Update("second", &Constant{})
	keys := idx.Keys()
	if len(keys) != 2 || keys[0] != "second" || keys[1] != "first" {
		t.Fatalf("expected first-insertion order, got %v", keys)
	}
}

func TestKeyForAnchorTakesPrecedence(t *testing.T) {
	p := NewLinearPath("User")
	if got := KeyFor(p, "u"); got != "anchor:u" {
		t.Fatalf("expected anchor-based key, got %q", got)
	}
	if got := KeyFor(p, ""); got != "path:"+p.Key() {
		t.Fatalf("expected path-based key, got %q", got)
	}
}
