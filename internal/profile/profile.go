// Package profile loads product profile documents and resolves products in them.
//
// A profile declares the products that can be built for a board together with
// the global catalog of firmware elements:
//
//	prod:
//	  cid: 0x02E5
//	  products:
//	    - name: light
//	      pid: 1
//	      elements:
//	        - name: light_ctl
//	          value: 2
//	elements:
//	  - name: light_ctl
//	    path: components/light_ctl
//	    macro:
//	      def: CONFIG_LIGHT_CTL_COUNT
//	      value: 0
//	    deps: [onoff_srv]
//
// Both YAML and JSON documents are accepted.
package profile

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Profile is the top-level product profile document.
type Profile struct {
	Prod     Prod         `yaml:"prod" json:"prod"`
	Elements []ElementDef `yaml:"elements" json:"elements"`
}

// Prod holds the vendor id and the buildable products.
type Prod struct {
	CID      int       `yaml:"cid" json:"cid"`
	Products []Product `yaml:"products" json:"products"`
}

// Product is a named firmware build target.
type Product struct {
	Name     string       `yaml:"name" json:"name"`
	PID      int          `yaml:"pid" json:"pid"`
	Elements []ElementRef `yaml:"elements" json:"elements"`
}

// ElementRef selects a catalog element for a product with a per-product value.
type ElementRef struct {
	Name  string `yaml:"name" json:"name"`
	Value int    `yaml:"value" json:"value"`
}

// ElementDef is an entry of the global element catalog.
type ElementDef struct {
	Name  string   `yaml:"name" json:"name"`
	Path  string   `yaml:"path" json:"path"`
	Macro Macro    `yaml:"macro" json:"macro"`
	Deps  []string `yaml:"deps" json:"deps"`
}

// Macro is the preprocessor definition an element controls.
type Macro struct {
	Def   string     `yaml:"def" json:"def"`
	Value MacroValue `yaml:"value" json:"value"`
}

// MacroValue is either a boolean flag or an integer count.
// The zero value is the integer 0.
type MacroValue struct {
	isBool bool
	b      bool
	n      int
}

// Bool returns a boolean macro value.
func Bool(b bool) MacroValue {
	return MacroValue{isBool: true, b: b}
}

// Int returns an integer macro value.
func Int(n int) MacroValue {
	return MacroValue{n: n}
}

// IsBool reports whether the value is boolean-typed.
func (v MacroValue) IsBool() bool {
	return v.isBool
}

// Int returns the value as emitted in C: booleans become 1 or 0.
func (v MacroValue) Int() int {
	if v.isBool {
		if v.b {
			return 1
		}
		return 0
	}
	return v.n
}

func (v MacroValue) String() string {
	if v.isBool {
		return strconv.FormatBool(v.b)
	}
	return strconv.Itoa(v.n)
}

// UnmarshalYAML decodes a YAML/JSON boolean or integer.
func (v *MacroValue) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	decoded, err := macroValueOf(raw)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// MarshalYAML encodes the value as a plain scalar.
func (v MacroValue) MarshalYAML() (interface{}, error) {
	if v.isBool {
		return v.b, nil
	}
	return v.n, nil
}

// MarshalJSON encodes the value as a JSON boolean or number.
func (v MacroValue) MarshalJSON() ([]byte, error) {
	if v.isBool {
		return json.Marshal(v.b)
	}
	return json.Marshal(v.n)
}

// UnmarshalJSON decodes a JSON boolean or number.
func (v *MacroValue) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := macroValueOf(raw)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func macroValueOf(raw interface{}) (MacroValue, error) {
	switch x := raw.(type) {
	case bool:
		return Bool(x), nil
	case int:
		return Int(x), nil
	case int64:
		return Int(int(x)), nil
	case uint64:
		if x > math.MaxInt {
			return MacroValue{}, fmt.Errorf("macro value %d overflows int", x)
		}
		return Int(int(x)), nil
	case float64:
		if x != math.Trunc(x) {
			return MacroValue{}, fmt.Errorf("macro value %v is not an integer", x)
		}
		return Int(int(x)), nil
	default:
		return MacroValue{}, fmt.Errorf("macro value must be a boolean or an integer, got %T", raw)
	}
}
