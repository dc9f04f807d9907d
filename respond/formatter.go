package respond

import (
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/raysh454/respond/logging"
)

// Formatter renders view return values. It holds only immutable
// configuration and is safe for concurrent use.
type Formatter struct {
	cfg    Config
	logger logging.Logger
}

// New validates cfg and returns a Formatter. A nil logger discards output.
func New(cfg Config, logger logging.Logger) (*Formatter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid formatter config: %w", err)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Formatter{cfg: cfg.clone(), logger: logger}, nil
}

// Config returns a copy of the formatter configuration.
func (f *Formatter) Config() Config {
	return f.cfg.clone()
}

// derive returns a Formatter with opts applied to a copy of the config. pick
// selects the callback section the options target.
func (f *Formatter) derive(pick func(*Config) *CallbackConfig, opts []Option) (*Formatter, error) {
	if len(opts) == 0 {
		return f, nil
	}
	cfg := f.cfg.clone()
	for _, opt := range opts {
		opt(&cfg, pick(&cfg))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid formatter options: %w", err)
	}
	return &Formatter{cfg: cfg, logger: f.logger}, nil
}

// CallbackName returns the value of the first parameter in names that is
// present in the query string with a non-empty value.
func CallbackName(r *http.Request, names []string) string {
	q := r.URL.Query()
	for _, n := range names {
		if v := q.Get(n); v != "" {
			return v
		}
	}
	return ""
}

// callback resolves the callback name for r. An empty name with a nil error
// means the callback is optional and absent.
func (f *Formatter) callback(r *http.Request, cb CallbackConfig) (string, error) {
	name := CallbackName(r, cb.QueryCallbacks)
	if name == "" {
		if cb.Optional {
			return "", nil
		}
		return "", ErrCallbackRequired
	}
	if !callbackPattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCallback, name)
	}
	return name, nil
}

// JSONResponse renders data as a JSON document. Mapping payloads get the
// status field when AddStatus is set. A nil data renders as an empty object.
func (f *Formatter) JSONResponse(status int, data any) (*Response, error) {
	var (
		body []byte
		err  error
	)
	if data == nil {
		body = []byte("{}")
	} else if body, err = Marshal(data); err != nil {
		return nil, err
	}
	return f.jsonBody(status, body)
}

func (f *Formatter) jsonBody(status int, body []byte) (*Response, error) {
	var err error
	if f.cfg.AddStatus && kindOf(body) == kindMapping {
		if body, err = injectStatus(body, f.cfg.StatusField, status); err != nil {
			return nil, err
		}
	}
	if f.cfg.PrettyPrint {
		body = pretty.PrettyOptions(body, prettyOptions)
	}
	return newResponse(status, f.cfg.JSONContentType, body), nil
}

// NDJSON renders each element of the sequence items as one JSON line.
func (f *Formatter) NDJSON(status int, items any) (*Response, error) {
	body, err := Marshal(items)
	if err != nil {
		return nil, err
	}
	if kindOf(body) != kindSequence {
		return nil, fmt.Errorf("%w: ndjson needs a sequence, got %T", ErrUnsupportedPayload, items)
	}
	return f.ndjsonBody(status, body)
}

func (f *Formatter) ndjsonBody(status int, body []byte) (*Response, error) {
	field := ""
	if f.cfg.AddRecordStatus {
		field = f.cfg.StatusField
	}
	lines, err := ndjsonLines(gjson.ParseBytes(body), field, status)
	if err != nil {
		return nil, err
	}
	return newResponse(status, f.cfg.NDJSONContentType, lines), nil
}

// HandleJSON renders rv as plain JSON. Pre-built responses pass through.
func (f *Formatter) HandleJSON(_ *http.Request, rv any) (*Response, error) {
	u := unwrap(rv)
	if u.prebuilt != nil {
		return u.prebuilt.withHeader(u.header), nil
	}
	resp, err := f.JSONResponse(u.status, u.value)
	if err != nil {
		return nil, err
	}
	return resp.withHeader(u.header), nil
}

// HandleJSONP wraps rv in the callback named by the request. Without a
// callback it behaves like HandleJSON when the callback is optional.
func (f *Formatter) HandleJSONP(r *http.Request, rv any) (*Response, error) {
	name, err := f.callback(r, f.cfg.JSONP)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return f.HandleJSON(r, rv)
	}

	u := unwrap(rv)
	var arg []byte
	switch v := u.value.(type) {
	case string:
		if f.cfg.StringQuotes {
			if arg, err = Marshal(v); err != nil {
				return nil, err
			}
		} else {
			// Unescaped; only safe for trusted view output.
			arg = []byte(v)
		}
	default:
		if u.prebuilt != nil {
			arg = compactBody(u.prebuilt.Body)
		} else if arg, err = Marshal(v); err != nil {
			return nil, err
		}
	}
	return f.callbackResponse(u, name, f.cfg.JSONP.ContentType, arg), nil
}

// HandleJSONL renders rv for json-l consumers. Scalars are rejected. With a
// callback the payload is wrapped as name(...); without one mappings render
// as JSON and sequences as ndjson.
func (f *Formatter) HandleJSONL(r *http.Request, rv any) (*Response, error) {
	u := unwrap(rv)

	var (
		body []byte
		kind payloadKind
		err  error
	)
	if u.prebuilt == nil {
		if body, err = Marshal(u.value); err != nil {
			return nil, err
		}
		if kind = kindOf(body); kind == kindScalar {
			return nil, fmt.Errorf("%w: %T is not a mapping or a sequence", ErrUnsupportedPayload, u.value)
		}
	}

	name, err := f.callback(r, f.cfg.JSONL)
	if err != nil {
		return nil, err
	}

	if name == "" {
		var resp *Response
		switch {
		case u.prebuilt != nil:
			resp = u.prebuilt
		case kind == kindMapping:
			resp, err = f.jsonBody(u.status, body)
		default:
			resp, err = f.ndjsonBody(u.status, body)
		}
		if err != nil {
			return nil, err
		}
		return resp.withHeader(u.header), nil
	}

	var arg []byte
	switch {
	case u.prebuilt != nil:
		arg = compactBody(u.prebuilt.Body)
	case kind == kindMapping:
		arg = body
	default:
		if arg, err = callbackArgs(body); err != nil {
			return nil, err
		}
	}
	return f.callbackResponse(u, name, f.cfg.JSONL.ContentType, arg), nil
}

func (f *Formatter) callbackResponse(u unwrapped, name, contentType string, arg []byte) *Response {
	resp := newResponse(u.status, contentType, wrapCallback(name, arg))
	if u.prebuilt != nil {
		for k, vs := range u.prebuilt.Header {
			if http.CanonicalHeaderKey(k) == "Content-Type" {
				continue
			}
			resp.Header[k] = append([]string(nil), vs...)
		}
	}
	return resp.withHeader(u.header)
}
