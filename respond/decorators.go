package respond

import (
	"net/http"

	"github.com/raysh454/respond/logging"
)

type handleFunc func(r *http.Request, rv any) (*Response, error)

func pickJSONP(c *Config) *CallbackConfig { return &c.JSONP }
func pickJSONL(c *Config) *CallbackConfig { return &c.JSONL }

// AsJSON adapts view into a handler rendering plain JSON.
func (f *Formatter) AsJSON(view View, opts ...Option) http.Handler {
	return f.decorate(view, pickJSONP, opts, func(ff *Formatter) handleFunc { return ff.HandleJSON })
}

// AsJSONP adapts view into a handler that honours a JSONP callback.
func (f *Formatter) AsJSONP(view View, opts ...Option) http.Handler {
	return f.decorate(view, pickJSONP, opts, func(ff *Formatter) handleFunc { return ff.HandleJSONP })
}

// AsJSONL adapts view into a handler rendering JSON, ndjson or a callback
// invocation.
func (f *Formatter) AsJSONL(view View, opts ...Option) http.Handler {
	return f.decorate(view, pickJSONL, opts, func(ff *Formatter) handleFunc { return ff.HandleJSONL })
}

func (f *Formatter) decorate(view View, pick func(*Config) *CallbackConfig, opts []Option, handler func(*Formatter) handleFunc) http.Handler {
	ff, err := f.derive(pick, opts)
	if err != nil {
		// Misconfigured routes answer every request with a 500.
		f.logger.Error("invalid decorator options", logging.Err(err))
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = f.ErrorResponse(r, err).Write(w)
		})
	}
	handle := handler(ff)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rv, err := view(r)
		var resp *Response
		if err == nil {
			resp, err = handle(r, rv)
		}
		if err != nil {
			resp = ff.ErrorResponse(r, err)
		}
		if err := resp.Write(w); err != nil {
			ff.logger.Warn("writing response", logging.F("path", r.URL.Path), logging.Err(err))
		}
	})
}

// ErrorResponse renders err as a JSON error body. *Error values keep their
// status and data; callback errors become 400; everything else is logged
// and answered with a generic 500.
func (f *Formatter) ErrorResponse(r *http.Request, err error) *Response {
	status := StatusCode(err)

	var data map[string]any
	if jerr, ok := asError(err); ok {
		data = jerr.Data
	} else if status == http.StatusBadRequest {
		data = map[string]any{"error": err.Error()}
	} else {
		f.logger.Error("rendering response", logging.F("method", r.Method), logging.F("path", r.URL.Path), logging.Err(err))
		data = map[string]any{"error": http.StatusText(status)}
	}

	resp, rerr := f.JSONResponse(status, data)
	if rerr != nil {
		f.logger.Error("rendering error response", logging.Err(rerr))
		return newResponse(http.StatusInternalServerError, f.cfg.JSONContentType, []byte(`{"error":"Internal Server Error"}`))
	}
	return resp
}
