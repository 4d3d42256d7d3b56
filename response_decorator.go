package feedkit

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// DecorateHTTPResponse adapts a net/http client response to ResponseReader.
// The body is read (up to 10 MiB) and closed on first access to Body.
func DecorateHTTPResponse(resp *http.Response) ResponseReader {
	return &httpResponseDecorator{resp: resp}
}

type httpResponseDecorator struct {
	resp *http.Response
	once sync.Once
	body string
}

func (d *httpResponseDecorator) StatusCode() int {
	if d.resp == nil {
		return 0
	}
	return d.resp.StatusCode
}

func (d *httpResponseDecorator) Body() string {
	d.once.Do(func() {
		if d.resp == nil || d.resp.Body == nil {
			return
		}
		defer d.resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(d.resp.Body, maxRequestBody))
		d.body = string(data)
	})
	return d.body
}

func (d *httpResponseDecorator) HeaderLine(name, def string) string {
	if d.resp == nil {
		return def
	}
	return headerLine(d.resp.Header, name, def)
}

// Accessor shapes recognised by Decorate.
type (
	statusCoder interface{ StatusCode() int }

	headerLiner interface {
		HeaderLine(name, def string) string
	}
	headerMapper interface{ Header() http.Header }

	stringBodier interface{ Body() string }
	bytesBodier  interface{ Body() []byte }
	anyBodier    interface{ Body() any }
)

// Decorate wraps an arbitrary response object exposing a StatusCode() int accessor,
// a Body() accessor returning string, []byte or any string-coercible value, and either
// HeaderLine(name, def) or Header() http.Header. Values are proxied as-is, without the
// validation NewResponse applies.
//
// Returns a CONFIGURATION_ERROR when a required accessor is missing.
func Decorate(v any) (ResponseReader, error) {
	if rr, ok := v.(ResponseReader); ok {
		return rr, nil
	}
	if resp, ok := v.(*http.Response); ok {
		return DecorateHTTPResponse(resp), nil
	}

	status, ok := v.(statusCoder)
	if !ok {
		return nil, NewError(ErrCodeConfiguration, fmt.Sprintf("%T does not expose StatusCode() int", v))
	}

	var body func() string
	switch b := v.(type) {
	case stringBodier:
		body = b.Body
	case bytesBodier:
		body = func() string { return string(b.Body()) }
	case anyBodier:
		body = func() string {
			s, _ := coerceBody(b.Body())
			return s
		}
	default:
		return nil, NewError(ErrCodeConfiguration, fmt.Sprintf("%T does not expose a Body() accessor", v))
	}

	var line func(name, def string) string
	switch h := v.(type) {
	case headerLiner:
		line = h.HeaderLine
	case headerMapper:
		line = func(name, def string) string { return headerLine(h.Header(), name, def) }
	default:
		return nil, NewError(ErrCodeConfiguration, fmt.Sprintf("%T does not expose HeaderLine or Header accessors", v))
	}

	return &responseDecorator{status: status.StatusCode, body: body, line: line}, nil
}

type responseDecorator struct {
	status func() int
	body   func() string
	line   func(name, def string) string
}

func (d *responseDecorator) StatusCode() int                    { return d.status() }
func (d *responseDecorator) Body() string                       { return d.body() }
func (d *responseDecorator) HeaderLine(name, def string) string { return d.line(name, def) }

func headerLine(h http.Header, name, def string) string {
	values := h.Values(name)
	if len(values) == 0 {
		return def
	}
	return strings.Join(values, ", ")
}
