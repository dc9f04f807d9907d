package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"

	"github.com/raysh454/respond/respond"
)

func setupHttpServer(f *respond.Formatter) *httptest.Server {
	mux := http.NewServeMux()

	// Records render as ndjson, or as foo(...); with ?callback=foo or ?jsonl=foo
	mux.Handle("/records", f.AsJSONL(func(r *http.Request) (any, error) {
		return []map[string]any{
			{"val": 1, "name": "Sam"},
			{"val": 2, "name": "Ann"},
		}, nil
	}))

	// A single object renders as JSON with a status field
	mux.Handle("/record", f.AsJSONP(func(r *http.Request) (any, error) {
		return map[string]any{"val": 1, "name": "Sam"}, nil
	}))

	return httptest.NewServer(mux)
}

func main() {
	f, err := respond.New(respond.DefaultConfig(), nil)
	if err != nil {
		log.Fatalf("formatter: %v", err)
	}

	server := setupHttpServer(f)
	defer server.Close()

	for _, path := range []string{"/records", "/records?jsonl=foo", "/record", "/record?callback=cb"} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		fmt.Printf("GET %s -> %d %s\n%s\n\n", path, resp.StatusCode, resp.Header.Get("Content-Type"), body)
	}
}
