// Package navdata decodes the JavaScript data files a Doxygen HTML build ships
// (navtreedata.js, navtreeindexN.js, lazily loaded tree branches and
// search/*.js shards) into Go values.
//
// The files are `var NAME = <literal>;` declarations. Each script is run in a
// fresh goja runtime and its globals are serialised with JSON.stringify, so
// single-quoted strings, trailing commas and comments need no special casing.
package navdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
)

// ErrVarNotFound is returned when a script does not declare the requested variable.
var ErrVarNotFound = errors.New("variable not declared")

// evalTimeout bounds a single script run. Data scripts finish in microseconds.
var evalTimeout = 5 * time.Second

// Vars runs src and returns every global it declares as JSON, in declaration
// order. Functions and globals left undefined are skipped.
func Vars(src []byte) (map[string]json.RawMessage, []string, error) {
	vm := goja.New()
	timer := time.AfterFunc(evalTimeout, func() {
		vm.Interrupt(fmt.Sprintf("script ran longer than %s", evalTimeout))
	})
	defer timer.Stop()

	if _, err := vm.RunString(string(src)); err != nil {
		return nil, nil, fmt.Errorf("evaluating script: %w", err)
	}
	stringify, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("stringify"))
	if !ok {
		return nil, nil, errors.New("JSON.stringify unavailable")
	}

	global := vm.GlobalObject()
	vars := make(map[string]json.RawMessage)
	var order []string
	for _, name := range global.Keys() {
		v := global.Get(name)
		if v == nil || goja.IsUndefined(v) {
			continue
		}
		if _, fn := goja.AssertFunction(v); fn {
			continue
		}
		out, err := stringify(goja.Undefined(), v)
		if err != nil {
			return nil, nil, fmt.Errorf("var %s: %w", name, err)
		}
		if goja.IsUndefined(out) {
			continue
		}
		vars[name] = json.RawMessage(out.String())
		order = append(order, name)
	}
	return vars, order, nil
}

// ExtractVar returns the JSON form of the value assigned to name.
func ExtractVar(src []byte, name string) (json.RawMessage, error) {
	vars, _, err := Vars(src)
	if err != nil {
		return nil, err
	}
	lit, ok := vars[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrVarNotFound)
	}
	return lit, nil
}

// FirstVar returns the first declared variable. Branch and index page scripts
// name their variable after the file, so callers that only know the file use this.
func FirstVar(src []byte) (string, json.RawMessage, error) {
	vars, order, err := Vars(src)
	if err != nil {
		return "", nil, err
	}
	if len(order) == 0 {
		return "", nil, ErrVarNotFound
	}
	return order[0], vars[order[0]], nil
}
