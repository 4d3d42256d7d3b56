// Package reader parses RSS and Atom documents with gofeed and attaches reader
// extensions to the result.
//
// Every FeedParser in the registry is resolved once per parsed feed and every
// EntryParser once per entry, so extension values are never shared between
// documents.
package reader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/coregx/feedkit"
	"github.com/coregx/feedkit/extension"
	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	ext "github.com/mmcdole/gofeed/extensions"
)

// Document types returned by DetectType.
const (
	TypeRSS     = "rss"
	TypeAtom    = "atom"
	TypeJSON    = "json"
	TypeUnknown = "unknown"
)

// maxDocumentSize caps documents read by Parse and Fetch.
const maxDocumentSize = 10 << 20

// Reader parses feeds using a reader extension registry.
//
// Thread safety: Safe for concurrent use.
type Reader struct {
	extensions *extension.Registry
	logger     feedkit.Logger
	client     *http.Client
}

// Option is a function that configures a Reader.
type Option func(*Reader) error

// New creates a Reader. Without WithExtensions it uses DefaultExtensions.
func New(opts ...Option) (*Reader, error) {
	r := &Reader{
		logger: &feedkit.NoopLogger{},
		client: http.DefaultClient,
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, feedkit.NewErrorWithCause(feedkit.ErrCodeConfiguration, "failed to apply reader option", err)
		}
	}

	if r.extensions == nil {
		r.extensions = DefaultExtensions()
	}
	return r, nil
}

// WithExtensions sets the reader extension registry.
func WithExtensions(reg *extension.Registry) Option {
	return func(r *Reader) error {
		if reg == nil {
			return fmt.Errorf("extension registry cannot be nil")
		}
		if reg.Role() != extension.RoleReader {
			return fmt.Errorf("extension registry has role %q, want %q", reg.Role(), extension.RoleReader)
		}
		r.extensions = reg
		return nil
	}
}

// WithLogger sets the logger instance. Optional, defaults to NoopLogger.
func WithLogger(logger feedkit.Logger) Option {
	return func(r *Reader) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		r.logger = logger
		return nil
	}
}

// WithHTTPClient sets the client used by Fetch.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Reader) error {
		if client == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		r.client = client
		return nil
	}
}

// Extensions returns the reader's registry.
func (r *Reader) Extensions() *extension.Registry {
	return r.extensions
}

// DetectType sniffs the document type without fully parsing it.
func DetectType(rd io.Reader) string {
	switch gofeed.DetectFeedType(rd) {
	case gofeed.FeedTypeRSS:
		return TypeRSS
	case gofeed.FeedTypeAtom:
		return TypeAtom
	case gofeed.FeedTypeJSON:
		return TypeJSON
	}
	return TypeUnknown
}

// Parse reads and parses a feed document.
// Malformed documents are INVALID_ARGUMENT errors.
func (r *Reader) Parse(rd io.Reader) (*Feed, error) {
	data, err := io.ReadAll(io.LimitReader(rd, maxDocumentSize))
	if err != nil {
		return nil, feedkit.NewErrorWithCause(feedkit.ErrCodeInvalidArgument, "failed to read feed", err)
	}
	return r.ParseBytes(data)
}

// ParseString parses a feed document held in a string.
func (r *Reader) ParseString(s string) (*Feed, error) {
	return r.ParseBytes([]byte(s))
}

// ParseBytes parses a feed document.
func (r *Reader) ParseBytes(data []byte) (*Feed, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, feedkit.NewErrorWithCause(feedkit.ErrCodeInvalidArgument, "failed to parse feed", err)
	}

	if parsed.FeedType == TypeAtom {
		r.normalizeAtomLinks(parsed, data)
	}

	return r.attach(parsed)
}

// Fetch downloads and parses the feed at url.
func (r *Reader) Fetch(ctx context.Context, url string) (*Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, feedkit.NewErrorWithCause(feedkit.ErrCodeInvalidArgument, "invalid feed URL", err)
	}
	req.Header.Set("Accept", strings.Join(feedkit.FeedMediaTypes, ", "))

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, feedkit.NewErrorWithCause(feedkit.ErrCodeDelivery, "failed to fetch feed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, feedkit.NewError(feedkit.ErrCodeDelivery, fmt.Sprintf("fetching %s returned status %d", url, resp.StatusCode))
	}
	return r.Parse(resp.Body)
}

func (r *Reader) attach(parsed *gofeed.Feed) (*Feed, error) {
	feed := &Feed{Feed: parsed, extensions: make(map[string]any)}

	for _, name := range r.extensions.Names(extension.KindFeedParser) {
		p, err := extension.ResolveAs[extension.FeedParser](r.extensions, name)
		if err != nil {
			return nil, err
		}
		if err := p.ParseFeed(parsed); err != nil {
			r.logger.Warnf("Reader extension %s failed on feed %q: %v", name, parsed.Title, err)
			continue
		}
		feed.extensions[name] = p
	}

	entryParsers := r.extensions.Names(extension.KindEntryParser)
	feed.Entries = make([]*Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		entry := &Entry{Item: item, extensions: make(map[string]any)}
		for _, name := range entryParsers {
			p, err := extension.ResolveAs[extension.EntryParser](r.extensions, name)
			if err != nil {
				return nil, err
			}
			if err := p.ParseEntry(item); err != nil {
				r.logger.Warnf("Reader extension %s failed on entry %q: %v", name, item.Title, err)
				continue
			}
			entry.extensions[name] = p
		}
		feed.Entries = append(feed.Entries, entry)
	}

	return feed, nil
}

// normalizeAtomLinks copies typed Atom links into the "atom" extension map, the
// place where RSS documents carry them, so extensions read one shape.
// gofeed's universal feed keeps only link hrefs.
func (r *Reader) normalizeAtomLinks(parsed *gofeed.Feed, data []byte) {
	fp := &atom.Parser{}
	af, err := fp.Parse(bytes.NewReader(data))
	if err != nil {
		r.logger.Debugf("Atom link normalisation skipped: %v", err)
		return
	}

	parsed.Extensions = withAtomLinks(parsed.Extensions, af.Links)
	if len(af.Entries) != len(parsed.Items) {
		return
	}
	for i, item := range parsed.Items {
		item.Extensions = withAtomLinks(item.Extensions, af.Entries[i].Links)
	}
}

func withAtomLinks(exts ext.Extensions, links []*atom.Link) ext.Extensions {
	if len(links) == 0 {
		return exts
	}
	if exts == nil {
		exts = ext.Extensions{}
	}
	if exts["atom"] == nil {
		exts["atom"] = map[string][]ext.Extension{}
	}
	for _, l := range links {
		exts["atom"]["link"] = append(exts["atom"]["link"], ext.Extension{
			Name: "link",
			Attrs: map[string]string{
				"rel":  l.Rel,
				"href": l.Href,
				"type": l.Type,
			},
		})
	}
	return exts
}

// Feed is a parsed feed with its reader extensions.
type Feed struct {
	*gofeed.Feed
	Entries []*Entry

	extensions map[string]any
}

// Extension returns the extension parsed under name (case-insensitive).
func (f *Feed) Extension(name string) (any, bool) {
	v, ok := f.extensions[strings.ToLower(name)]
	return v, ok
}

// Hubs returns the hub URLs advertised by the feed.
func (f *Feed) Hubs() []string {
	if a, ok := f.Extension("atomfeed"); ok {
		if af, ok := a.(*AtomFeed); ok {
			return af.Hubs
		}
	}
	return nil
}

// Self returns the feed's self URL, falling back to gofeed's FeedLink.
func (f *Feed) Self() string {
	if a, ok := f.Extension("atomfeed"); ok {
		if af, ok := a.(*AtomFeed); ok && af.Self != "" {
			return af.Self
		}
	}
	return f.FeedLink
}

// Entry is a parsed item with its reader extensions.
type Entry struct {
	*gofeed.Item

	extensions map[string]any
}

// Extension returns the extension parsed under name (case-insensitive).
func (e *Entry) Extension(name string) (any, bool) {
	v, ok := e.extensions[strings.ToLower(name)]
	return v, ok
}
