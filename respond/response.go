package respond

import (
	"net/http"
)

// Response is a fully rendered HTTP response. Views may return one directly
// to bypass rendering.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Result lets a View pick the status code and extra headers for its value.
type Result struct {
	Value  any
	Status int
	Header http.Header
}

// View is a request handler whose return value is rendered by a Formatter.
type View func(r *http.Request) (any, error)

func newResponse(status int, contentType string, body []byte) *Response {
	h := make(http.Header)
	h.Set("Content-Type", contentType)
	return &Response{Status: status, Header: h, Body: body}
}

// ContentType returns the Content-Type header.
func (r *Response) ContentType() string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get("Content-Type")
}

// Write copies the response onto w.
func (r *Response) Write(w http.ResponseWriter) error {
	h := w.Header()
	for k, vs := range r.Header {
		h[k] = append([]string(nil), vs...)
	}
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}

func (r *Response) clone() *Response {
	cp := *r
	cp.Header = r.Header.Clone()
	return &cp
}

func (r *Response) withHeader(extra http.Header) *Response {
	if len(extra) == 0 {
		return r
	}
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	for k, vs := range extra {
		r.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	return r
}

// unwrapped is a view return value split into its parts.
type unwrapped struct {
	value    any
	status   int
	header   http.Header
	prebuilt *Response
}

func unwrap(rv any) unwrapped {
	out := unwrapped{value: rv, status: http.StatusOK}
	switch v := rv.(type) {
	case *Response:
		if v != nil {
			out.prebuilt = v.clone()
		}
	case Response:
		out.prebuilt = v.clone()
	case *Result:
		if v == nil {
			out.value = nil
			return out
		}
		return unwrapResult(*v)
	case Result:
		return unwrapResult(v)
	}
	if out.prebuilt != nil && out.prebuilt.Status != 0 {
		out.status = out.prebuilt.Status
	}
	return out
}

func unwrapResult(res Result) unwrapped {
	out := unwrap(res.Value)
	if res.Status != 0 {
		out.status = res.Status
		if out.prebuilt != nil {
			out.prebuilt.Status = res.Status
		}
	}
	out.header = res.Header
	return out
}
