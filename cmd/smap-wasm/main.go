//go:build js && wasm

// Command smap-wasm is the WebAssembly build of the source map decoder.
// It exposes decoding and lookups to JavaScript via syscall/js.
package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/HugoDaniel/smap/pkg/api"
)

var version = "0.1.0"

// jsOptions mirrors the JavaScript options object.
type jsOptions struct {
	BaseURL              string `json:"baseURL"`
	KeepFileScheme       bool   `json:"keepFileScheme"`
	ResolveAgainstMapURL bool   `json:"resolveAgainstMapURL"`
	CaseSensitivePaths   *bool  `json:"caseSensitivePaths"`
}

func main() {
	// Export functions to JavaScript
	js.Global().Set("__smap", js.ValueOf(map[string]interface{}{
		"parse":   js.FuncOf(parseJS),
		"version": version,
	}))

	// Keep the Go runtime alive
	select {}
}

// parseJS is the JavaScript-callable parse function.
// Signature: __smap.parse(text: string, options?: object) => object
//
// The result either has an "error" field or holds the query functions of
// the decoded map. free() releases them.
func parseJS(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("parse requires at least 1 argument (text)")
	}

	opts := api.Options{}
	if len(args) > 1 && !args[1].IsUndefined() && !args[1].IsNull() {
		jsOpts := parseOptions(args[1])
		opts.BaseURL = jsOpts.BaseURL
		opts.KeepFileScheme = jsOpts.KeepFileScheme
		opts.ResolveAgainstMapURL = jsOpts.ResolveAgainstMapURL
		if jsOpts.CaseSensitivePaths != nil {
			opts.PathCase = api.PathCaseInsensitive
			if *jsOpts.CaseSensitivePaths {
				opts.PathCase = api.PathCaseSensitive
			}
		}
	}

	m, err := api.Parse([]byte(args[0].String()), opts)
	if err != nil {
		return makeError(err.Error())
	}
	return exportMap(m)
}

func exportMap(m *api.Map) map[string]interface{} {
	var funcs []js.Func
	export := func(fn func(args []js.Value) interface{}) js.Func {
		f := js.FuncOf(func(_ js.Value, args []js.Value) interface{} { return fn(args) })
		funcs = append(funcs, f)
		return f
	}

	obj := map[string]interface{}{
		"file": m.File(),
		"sources": export(func([]js.Value) interface{} {
			sources := m.Sources()
			out := make([]interface{}, len(sources))
			for i, s := range sources {
				out[i] = map[string]interface{}{
					"url":        s.URL,
					"raw":        s.Raw,
					"ignored":    s.Ignored,
					"hasContent": s.HasContent,
				}
			}
			return out
		}),
		"originalPositionFor": export(func(args []js.Value) interface{} {
			if len(args) < 2 {
				return nil
			}
			pos, ok := m.OriginalPositionFor(args[0].Int(), args[1].Int())
			if !ok {
				return nil
			}
			return map[string]interface{}{
				"source":    pos.Source,
				"rawSource": pos.RawSource,
				"line":      pos.Line,
				"column":    pos.Column,
				"name":      pos.Name,
				"ignored":   pos.Ignored,
			}
		}),
		"generatedPositionFor": export(func(args []js.Value) interface{} {
			if len(args) < 3 {
				return nil
			}
			pos, ok := m.GeneratedPositionFor(args[0].String(), args[1].Int(), args[2].Int())
			if !ok {
				return nil
			}
			return map[string]interface{}{"line": pos.Line, "column": pos.Column}
		}),
		"mappingsInLine": export(func(args []js.Value) interface{} {
			if len(args) < 1 {
				return []interface{}{}
			}
			mappings := m.MappingsInLine(args[0].Int())
			out := make([]interface{}, len(mappings))
			for i, mapping := range mappings {
				out[i] = map[string]interface{}{
					"generatedLine":   mapping.GeneratedLine,
					"generatedColumn": mapping.GeneratedColumn,
					"source":          mapping.Source,
					"sourceLine":      mapping.SourceLine,
					"sourceColumn":    mapping.SourceColumn,
					"name":            mapping.Name,
				}
			}
			return out
		}),
	}
	obj["free"] = js.FuncOf(func(js.Value, []js.Value) interface{} {
		for _, f := range funcs {
			f.Release()
		}
		return nil
	})
	return obj
}

// parseOptions extracts options from a JS object.
func parseOptions(jsVal js.Value) jsOptions {
	var opts jsOptions

	jsonStr := js.Global().Get("JSON").Call("stringify", jsVal).String()
	if err := json.Unmarshal([]byte(jsonStr), &opts); err == nil {
		return opts
	}

	// Fallback to direct property access
	if v := jsVal.Get("baseURL"); v.Type() == js.TypeString {
		opts.BaseURL = v.String()
	}
	if v := jsVal.Get("keepFileScheme"); !v.IsUndefined() {
		opts.KeepFileScheme = v.Bool()
	}
	if v := jsVal.Get("resolveAgainstMapURL"); !v.IsUndefined() {
		opts.ResolveAgainstMapURL = v.Bool()
	}
	if v := jsVal.Get("caseSensitivePaths"); !v.IsUndefined() {
		b := v.Bool()
		opts.CaseSensitivePaths = &b
	}
	return opts
}

// makeError creates a result object with an error.
func makeError(msg string) interface{} {
	return map[string]interface{}{"error": msg}
}
