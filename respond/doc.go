// Package respond formats HTTP handler return values as JSON, as
// newline-delimited JSON (ndjson, also called json-l), or as a JSONP-style
// callback invocation.
//
// A Formatter is built once from a Config and is safe for concurrent use. Its
// decorators adapt a View into an http.Handler:
//
//	f, _ := respond.New(respond.DefaultConfig(), logger)
//	mux.Handle("/records", f.AsJSONL(listRecords))
//
// With AsJSONL a request carrying ?callback=foo (or any configured name, e.g.
// ?jsonl=foo) receives foo(...); every other request receives either a single
// JSON document for mapping payloads or one JSON document per line for
// sequence payloads.
package respond
