package feedkit

import (
	"fmt"
	"net/http"
	"net/textproto"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ResponseReader is the read side of an HTTP response as seen by feedkit.
// Response implements it, and so do the decorators returned by
// DecorateHTTPResponse and Decorate.
type ResponseReader interface {
	StatusCode() int
	Body() string
	HeaderLine(name, def string) string
}

// Response is an immutable HTTP response value produced by the callback handler.
// All fields are validated once, at construction.
type Response struct {
	status  int
	body    string
	headers map[string][]string // canonical name -> values
	names   []string            // canonical names in sorted order
}

var _ ResponseReader = (*Response)(nil)

// Response validation failure messages.
const (
	ResponseErrStatusType      = "status-type"
	ResponseErrStatusRange     = "status-range"
	ResponseErrHeaderNameShape = "header-name-shape"
	ResponseErrHeaderValueType = "header-value-type"
	ResponseErrBodyType        = "body-type"
)

// NewResponse validates and builds a Response.
//
// Status must be an integer kind (or an integral float) within [100,599].
// Header names must be non-empty and not purely numeric. Header values may be a
// string, an integer or float, or a []string / []any of those. Body may be a string,
// []byte, fmt.Stringer, number, bool or nil.
//
// Failures are INVALID_ARGUMENT errors whose message names the violated constraint.
func NewResponse(status any, body any, headers map[string]any) (*Response, error) {
	code, err := coerceStatus(status)
	if err != nil {
		return nil, err
	}

	text, ok := coerceBody(body)
	if !ok {
		return nil, NewError(ErrCodeInvalidArgument, fmt.Sprintf("%s: unsupported body %T", ResponseErrBodyType, body))
	}

	r := &Response{
		status:  code,
		body:    text,
		headers: make(map[string][]string, len(headers)),
	}

	// Names differing only in case merge into one header; sorting the input
	// keeps the merged value order stable.
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := headers[name]
		if !validHeaderName(name) {
			return nil, NewError(ErrCodeInvalidArgument, fmt.Sprintf("%s: %q", ResponseErrHeaderNameShape, name))
		}
		values, ok := coerceHeaderValues(value)
		if !ok {
			return nil, NewError(ErrCodeInvalidArgument,
				fmt.Sprintf("%s: header %q has unsupported value %T", ResponseErrHeaderValueType, name, value))
		}
		key := textproto.CanonicalMIMEHeaderKey(name)
		if _, seen := r.headers[key]; !seen {
			r.names = append(r.names, key)
		}
		r.headers[key] = append(r.headers[key], values...)
	}
	sort.Strings(r.names)

	return r, nil
}

// StatusCode returns the HTTP status.
func (r *Response) StatusCode() int {
	return r.status
}

// Body returns the response body.
func (r *Response) Body() string {
	return r.body
}

// Header returns all values of a header (case-insensitive), or nil.
func (r *Response) Header(name string) []string {
	values := r.headers[textproto.CanonicalMIMEHeaderKey(name)]
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

// HeaderLine returns the values of a header joined with ", ", or def when absent.
func (r *Response) HeaderLine(name, def string) string {
	values := r.headers[textproto.CanonicalMIMEHeaderKey(name)]
	if len(values) == 0 {
		return def
	}
	return strings.Join(values, ", ")
}

// Headers returns a copy of all headers keyed by canonical name.
func (r *Response) Headers() http.Header {
	h := make(http.Header, len(r.headers))
	for _, name := range r.names {
		h[name] = r.Header(name)
	}
	return h
}

// WriteTo writes headers, status and body to w.
func (r *Response) WriteTo(w http.ResponseWriter) error {
	for _, name := range r.names {
		for _, v := range r.headers[name] {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(r.status)
	if r.body == "" {
		return nil
	}
	_, err := w.Write([]byte(r.body))
	return err
}

// String implements fmt.Stringer.
func (r *Response) String() string {
	return fmt.Sprintf("Response{status=%d, headers=%d, body=%d bytes}", r.status, len(r.names), len(r.body))
}

// mustResponse builds responses from constant inputs inside the package.
func mustResponse(status int, body string, headers map[string]any) *Response {
	r, err := NewResponse(status, body, headers)
	if err != nil {
		panic(err)
	}
	return r
}

func coerceStatus(status any) (int, error) {
	var code int64
	switch v := reflect.ValueOf(status); v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		code = v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if v.Uint() > 1000 {
			code = 1000
		} else {
			code = int64(v.Uint())
		}
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if f != float64(int64(f)) {
			return 0, NewError(ErrCodeInvalidArgument, fmt.Sprintf("%s: status %v is not integral", ResponseErrStatusType, f))
		}
		code = int64(f)
	default:
		return 0, NewError(ErrCodeInvalidArgument, fmt.Sprintf("%s: unsupported status %T", ResponseErrStatusType, status))
	}

	if code < 100 || code > 599 {
		return 0, NewError(ErrCodeInvalidArgument, fmt.Sprintf("%s: status %d is outside [100,599]", ResponseErrStatusRange, code))
	}
	return int(code), nil
}

func coerceBody(body any) (string, bool) {
	switch v := body.(type) {
	case nil:
		return "", true
	case string:
		return v, true
	case []byte:
		return string(v), true
	case fmt.Stringer:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return coerceScalar(body)
}

// coerceScalar formats integer and float kinds; anything else is rejected.
func coerceScalar(value any) (string, bool) {
	switch v := reflect.ValueOf(value); v.Kind() {
	case reflect.String:
		return v.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), true
	}
	return "", false
}

func coerceHeaderValues(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...), true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := coerceScalar(item)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	s, ok := coerceScalar(value)
	if !ok {
		return nil, false
	}
	return []string{s}, true
}

func validHeaderName(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] >= '0' && name[i] <= '9' {
			continue
		}
		return true
	}
	return false
}
