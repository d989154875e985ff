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

package memschema

import (
	"testing"

	"github.com/pathql/pathql/schema"
)

func buildStore() (*Store, *Concept, *Concept) {
	store := New()
	person := NewConcept("test", "Person").AddAtom("name", "string")
	admin := NewConcept("test", "Admin").AddBase(person)
	NewLink("test", "friends", person, person)
	store.Add(person).Add(admin)
	return store, person, admin
}

func TestStoreGetResolvesByQualifiedName(t *testing.T) {
	store, person, _ := buildStore()
	got, err := store.Get("test::Person", schema.ConceptKind, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.QualName() != person.QualName() {
		t.Fatalf("expected to resolve Person, got %v", got)
	}
}

func TestStoreGetAppliesModuleAlias(t *testing.T) {
	store, person, _ := buildStore()
	aliases := map[string]string{"p": "test"}
	got, err := store.Get("p::Person", schema.ConceptKind, aliases)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.QualName() != person.QualName() {
		t.Fatalf("expected alias resolution to find Person, got %v", got)
	}
}

func TestStoreGetNotFound(t *testing.T) {
	store, _, _ := buildStore()
	if _, err := store.Get("test::Nonexistent", schema.ConceptKind, nil); err == nil {
		t.Fatalf("expected an error for an unregistered name")
	}
}

func TestIsSubclassWalksInheritance(t *testing.T) {
	store, person, admin := buildStore()
	if !store.IsSubclass(admin, person) {
		t.Fatalf("expected Admin to be a subclass of Person")
	}
	if store.IsSubclass(person, admin) {
		t.Fatalf("Person must not be considered a subclass of Admin")
	}
	if !store.IsSubclass(person, person) {
		t.Fatalf("a concept must be considered a subclass of itself")
	}
}

func TestGetAttrInheritsFromBase(t *testing.T) {
	store, _, admin := buildStore()
	atom, link, err := store.GetAttr(admin, "name")
	if err != nil {
		t.Fatalf("unexpected error resolving inherited atom: %v", err)
	}
	if link != nil {
		t.Fatalf("expected an atom, not a link")
	}
	if atom.AtomName != "name" {
		t.Fatalf("expected to resolve the inherited 'name' atom, got %+v", atom)
	}
}

func TestGetAttrResolvesLink(t *testing.T) {
	store, person, _ := buildStore()
	_, link, err := store.GetAttr(person, "friends")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link == nil {
		t.Fatalf("expected 'friends' to resolve to a link")
	}
}

func TestFilterChildrenExcludesByPredicate(t *testing.T) {
	store, person, admin := buildStore()
	concrete := store.FilterChildren(person, func(c schema.Concept) bool {
		return c.QualName() != admin.QualName()
	})
	for _, c := range concrete {
		if c.QualName() == admin.QualName() {
			t.Fatalf("predicate should have excluded Admin")
		}
	}
}

func TestDefaultTypeRulesFoldConstArithmetic(t *testing.T) {
	rules := DefaultTypeRules{}
	result, err := rules.FoldConst(schema.OpPlus, int64(2), int64(3), "int", "int")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != int64(5) {
		t.Fatalf("expected 2+3=5, got %v", result)
	}
}

func TestDefaultTypeRulesGetResultPromotesFloat(t *testing.T) {
	rules := DefaultTypeRules{}
	typ, err := rules.GetResult(schema.OpPlus, []string{"int", "float"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typ != "float" {
		t.Fatalf("expected arithmetic mixing int and float to promote to float, got %q", typ)
	}
}

func TestDefaultTypeRulesFoldConstDivisionByZero(t *testing.T) {
	rules := DefaultTypeRules{}
	if _, err := rules.FoldConst(schema.OpDiv, int64(1), int64(0), "int", "int"); err == nil {
		t.Fatalf("expected division by zero to error")
	}
}
