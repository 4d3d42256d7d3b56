package feedkit

import (
	"io"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
)

// maxRequestBody caps the feed payload read from an inbound request.
const maxRequestBody = 10 << 20

// Request is the transport-neutral view of an inbound callback request.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// NewRequest builds a Request from its parts. The raw query is parsed leniently.
func NewRequest(method, path, rawQuery string, header http.Header, body []byte) *Request {
	query, _ := url.ParseQuery(rawQuery)
	if header == nil {
		header = make(http.Header)
	}
	return &Request{
		Method: strings.ToUpper(method),
		Path:   path,
		Query:  query,
		Header: header,
		Body:   body,
	}
}

// RequestFromHTTP reads r into a Request. The body is limited to 10 MiB.
func RequestFromHTTP(r *http.Request) (*Request, error) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			return nil, NewErrorWithCause(ErrCodeInvalidArgument, "failed to read request body", err)
		}
	}
	return NewRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Clone(), body), nil
}

// QueryParam returns the first value of a hub parameter. Both the dotted form
// ("hub.mode") and the underscore form ("hub_mode") are accepted, dotted first.
func (r *Request) QueryParam(name string) (string, bool) {
	if r.Query == nil {
		return "", false
	}
	if values, ok := r.Query[name]; ok && len(values) > 0 {
		return values[0], true
	}
	alt := strings.ReplaceAll(name, ".", "_")
	if values, ok := r.Query[alt]; ok && len(values) > 0 {
		return values[0], true
	}
	return "", false
}

// HeaderValue returns the first value of a header, case-insensitive.
func (r *Request) HeaderValue(name string) string {
	if r.Header == nil {
		return ""
	}
	values := r.Header[textproto.CanonicalMIMEHeaderKey(name)]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// LastPathSegment returns the final non-empty segment of the request path.
func (r *Request) LastPathSegment() string {
	path := strings.TrimRight(r.Path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
