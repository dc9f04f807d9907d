package respond

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// RawMessage is a pre-encoded JSON value embedded as-is.
type RawMessage = jsoniter.RawMessage

var jsonAPI = jsoniter.Config{
	EscapeHTML:  true,
	SortMapKeys: true,
}.Froze()

var prettyOptions = &pretty.Options{Width: 80, Prefix: "", Indent: "  ", SortKeys: false}

// Dotted JavaScript identifier, e.g. "cb" or "jQuery.cb_12".
var callbackPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)

type payloadKind int

const (
	kindScalar payloadKind = iota
	kindMapping
	kindSequence
)

func (k payloadKind) String() string {
	switch k {
	case kindMapping:
		return "mapping"
	case kindSequence:
		return "sequence"
	default:
		return "scalar"
	}
}

// Marshal encodes v as compact JSON. RawMessage values are copied verbatim,
// so the encoded document is validated as a whole.
func Marshal(v any) ([]byte, error) {
	b, err := jsonAPI.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	if !gjson.ValidBytes(b) {
		return nil, fmt.Errorf("encoding %T: %w", v, ErrInvalidJSON)
	}
	// Raw messages may carry their own whitespace.
	return pretty.Ugly(b), nil
}

func kindOf(doc []byte) payloadKind {
	res := gjson.ParseBytes(doc)
	switch {
	case res.IsObject():
		return kindMapping
	case res.IsArray():
		return kindSequence
	default:
		return kindScalar
	}
}

// compactBody returns body without insignificant whitespace when it is valid
// JSON, and trimmed of trailing newlines otherwise.
func compactBody(body []byte) []byte {
	if gjson.ValidBytes(body) {
		return pretty.Ugly(body)
	}
	return bytes.TrimRight(body, "\r\n")
}

var pathEscaper = strings.NewReplacer(
	`\`, `\\`,
	`.`, `\.`,
	`:`, `\:`,
	`*`, `\*`,
	`?`, `\?`,
	`|`, `\|`,
	`#`, `\#`,
	`@`, `\@`,
)

// injectStatus adds field=status to a JSON object unless the field is
// already present.
func injectStatus(obj []byte, field string, status int) ([]byte, error) {
	path := pathEscaper.Replace(field)
	if gjson.GetBytes(obj, path).Exists() {
		return obj, nil
	}
	out, err := sjson.SetBytes(obj, path, status)
	if err != nil {
		return nil, fmt.Errorf("adding %s field: %w", field, err)
	}
	return out, nil
}

// ndjsonLines renders the elements of a JSON array one per line. When
// statusField is non-empty it is injected into object elements.
func ndjsonLines(arr gjson.Result, statusField string, status int) ([]byte, error) {
	var (
		buf bytes.Buffer
		err error
	)
	arr.ForEach(func(_, el gjson.Result) bool {
		line := []byte(el.Raw)
		if statusField != "" && el.IsObject() {
			line, err = injectStatus(line, statusField, status)
			if err != nil {
				return false
			}
		}
		buf.Write(line)
		buf.WriteByte('\n')
		return true
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// callbackArgs renders a JSON array as a callback argument list. Elements
// that are arrays themselves become ndjson blocks.
func callbackArgs(doc []byte) ([]byte, error) {
	var args [][]byte
	for _, el := range gjson.ParseBytes(doc).Array() {
		if el.IsArray() {
			lines, err := ndjsonLines(el, "", 0)
			if err != nil {
				return nil, err
			}
			args = append(args, bytes.TrimRight(lines, "\n"))
			continue
		}
		args = append(args, []byte(el.Raw))
	}
	return bytes.Join(args, []byte(",")), nil
}

func wrapCallback(name string, arg []byte) []byte {
	out := make([]byte, 0, len(name)+len(arg)+3)
	out = append(out, name...)
	out = append(out, '(')
	out = append(out, arg...)
	return append(out, ')', ';')
}
