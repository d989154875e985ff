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
	"fmt"

	"github.com/pathql/pathql/schema"
)

// DefaultTypeRules is a minimal arithmetic/boolean/comparison type-rule
// table, enough to exercise process_binop's constant-folding branch
// (§4.7.9) and GetResult typing for selector projections.
type DefaultTypeRules struct{}

func (DefaultTypeRules) GetResult(op schema.Op, argTypes []string) (string, error) {
	switch op {
	case schema.OpAnd, schema.OpOr, schema.OpNot,
		schema.OpEq, schema.OpNeq, schema.OpGt, schema.OpGte, schema.OpLt, schema.OpLte,
		schema.OpIn, schema.OpNotIn, schema.OpIs, schema.OpIsNot, schema.OpSearch:
		return "bool", nil
	case schema.OpPlus, schema.OpMinus, schema.OpMul, schema.OpDiv:
		if len(argTypes) > 0 && argTypes[0] == "float" {
			return "float", nil
		}
		for _, t := range argTypes {
			if t == "float" {
				return "float", nil
			}
		}
		return "int", nil
	}
	return "", fmt.Errorf("no type rule for operator %q", op)
}

func (DefaultTypeRules) FoldConst(op schema.Op, left, right interface{}, leftType, rightType string) (interface{}, error) {
	switch op {
	case schema.OpAnd:
		lb, lok := left.(bool)
		rb, rok := right.(bool)
		if lok && rok {
			return lb && rb, nil
		}
	case schema.OpOr:
		lb, lok := left.(bool)
		rb, rok := right.(bool)
		if lok && rok {
			return lb || rb, nil
		}
	case schema.OpPlus, schema.OpMinus, schema.OpMul, schema.OpDiv:
		lf, lok := toFloat(left)
		rf, rok := toFloat(right)
		if lok && rok {
			switch op {
			case schema.OpPlus:
				return foldNumeric(lf+rf, leftType, rightType), nil
			case schema.OpMinus:
				return foldNumeric(lf-rf, leftType, rightType), nil
			case schema.OpMul:
				return foldNumeric(lf*rf, leftType, rightType), nil
			case schema.OpDiv:
				if rf == 0 {
					return nil, fmt.Errorf("division by zero")
				}
				return foldNumeric(lf/rf, leftType, rightType), nil
			}
		}
	case schema.OpEq:
		return left == right, nil
	case schema.OpNeq:
		return left != right, nil
	}
	return nil, fmt.Errorf("cannot fold constant operator %q over %T, %T", op, left, right)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func foldNumeric(f float64, leftType, rightType string) interface{} {
	if leftType == "float" || rightType == "float" {
		return f
	}
	return int64(f)
}

var _ schema.TypeRules = DefaultTypeRules{}
