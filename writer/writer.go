// Package writer builds RSS 2.0 and Atom 1.0 documents.
//
// Feeds and entries created through a Writer carry fresh instances of every data
// extension in its registry; every renderer in the registry is invoked while
// rendering, each adding its own elements and namespaces.
//
// Example:
//
//	w, _ := writer.New(writer.WithExtensions(writer.DefaultExtensions()))
//	feed, _ := w.NewFeed()
//	feed.Title = "Example"
//	feed.Link = "https://example.com/"
//	feed.Description = "Example feed"
//	entry, _ := w.NewEntry()
//	entry.Title = "Hello"
//	feed.AddEntry(entry)
//	doc, err := w.Render(feed, writer.TypeRSS)
package writer

import (
	"fmt"
	"time"

	"github.com/coregx/feedkit"
	"github.com/coregx/feedkit/extension"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Feed types.
const (
	TypeRSS  = "rss"
	TypeAtom = "atom"
)

// DefaultGenerator is written as the feed generator when none is set.
const DefaultGenerator = "feedkit"

// Writer renders feeds using a writer extension registry.
//
// Thread safety: Safe for concurrent use; feeds themselves are not.
type Writer struct {
	extensions *extension.Registry
	generator  string
}

// Option is a function that configures a Writer.
type Option func(*Writer) error

// New creates a Writer. Without WithExtensions it uses DefaultExtensions.
func New(opts ...Option) (*Writer, error) {
	w := &Writer{generator: DefaultGenerator}

	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, feedkit.NewErrorWithCause(feedkit.ErrCodeConfiguration, "failed to apply writer option", err)
		}
	}

	if w.extensions == nil {
		w.extensions = DefaultExtensions()
	}
	return w, nil
}

// WithExtensions sets the writer extension registry.
func WithExtensions(r *extension.Registry) Option {
	return func(w *Writer) error {
		if r == nil {
			return fmt.Errorf("extension registry cannot be nil")
		}
		if r.Role() != extension.RoleWriter {
			return fmt.Errorf("extension registry has role %q, want %q", r.Role(), extension.RoleWriter)
		}
		w.extensions = r
		return nil
	}
}

// WithGenerator sets the generator written when a feed does not set one.
func WithGenerator(generator string) Option {
	return func(w *Writer) error {
		w.generator = generator
		return nil
	}
}

// Extensions returns the writer's registry.
func (w *Writer) Extensions() *extension.Registry {
	return w.extensions
}

// NewFeed creates a feed with a fresh instance of every FeedData extension attached.
func (w *Writer) NewFeed() (*Feed, error) {
	f := &Feed{}
	for _, name := range w.extensions.Names(extension.KindFeedData) {
		data, err := w.extensions.Resolve(name)
		if err != nil {
			return nil, err
		}
		f.SetExtension(name, data)
	}
	return f, nil
}

// NewEntry creates an entry with a fresh instance of every EntryData extension attached.
func (w *Writer) NewEntry() (*Entry, error) {
	e := &Entry{}
	for _, name := range w.extensions.Names(extension.KindEntryData) {
		data, err := w.extensions.Resolve(name)
		if err != nil {
			return nil, err
		}
		e.SetExtension(name, data)
	}
	return e, nil
}

// Render validates feed and encodes it as feedType (TypeRSS or TypeAtom).
//
// Validation failures, including failures of attached data extensions, are
// INVALID_ARGUMENT errors. Registry failures are returned as resolved.
func (w *Writer) Render(feed *Feed, feedType string) ([]byte, error) {
	if feed == nil {
		return nil, feedkit.NewError(feedkit.ErrCodeInvalidArgument, "feed is required")
	}
	if feedType != TypeRSS && feedType != TypeAtom {
		return nil, feedkit.NewError(feedkit.ErrCodeInvalidArgument, fmt.Sprintf("unsupported feed type %q", feedType))
	}
	if err := w.validate(feed, feedType); err != nil {
		return nil, err
	}

	renderers, err := w.renderers()
	if err != nil {
		return nil, err
	}

	var root *extension.Element
	if feedType == TypeRSS {
		root = w.renderRSS(feed)
	} else {
		root = w.renderAtom(feed)
	}

	for _, r := range renderers {
		for _, ns := range r.Namespaces() {
			root.DeclareNamespace(ns)
		}
	}

	feedElem := root
	if feedType == TypeRSS {
		feedElem = root.Find("channel")
	}
	entryName := "item"
	if feedType == TypeAtom {
		entryName = "entry"
	}
	entryElems := feedElem.FindAll(entryName)

	for _, r := range renderers {
		switch r.Target() {
		case extension.TargetFeed:
			if err := r.Render(feedType, feed, feedElem); err != nil {
				return nil, renderError(r, err)
			}
		case extension.TargetEntry:
			for i, entry := range feed.Entries {
				if err := r.Render(feedType, entry, entryElems[i]); err != nil {
					return nil, renderError(r, err)
				}
			}
		}
	}

	out, err := root.Marshal()
	if err != nil {
		return nil, feedkit.NewErrorWithCause(feedkit.ErrCodeInvalidArgument, "failed to encode feed", err)
	}
	return out, nil
}

func (w *Writer) renderers() ([]extension.Renderer, error) {
	names := w.extensions.Names(extension.KindRenderer)
	renderers := make([]extension.Renderer, 0, len(names))
	for _, name := range names {
		r, err := extension.ResolveAs[extension.Renderer](w.extensions, name)
		if err != nil {
			return nil, err
		}
		renderers = append(renderers, r)
	}
	return renderers, nil
}

func (w *Writer) validate(feed *Feed, feedType string) error {
	err := validation.Errors{
		"feed": feed.Validate(),
		"description": validation.Validate(feed.Description,
			validation.When(feedType == TypeRSS, validation.Required)),
		"updated": validation.Validate(feedUpdated(feed),
			validation.When(feedType == TypeAtom, validation.Required)),
	}.Filter()
	if err != nil {
		return feedkit.NewErrorWithCause(feedkit.ErrCodeInvalidArgument, "invalid feed", err)
	}

	if err := validateExtensions(feed.extensions); err != nil {
		return feedkit.NewErrorWithCause(feedkit.ErrCodeInvalidArgument, "invalid feed extension", err)
	}

	for i, e := range feed.Entries {
		if e == nil {
			return feedkit.NewError(feedkit.ErrCodeInvalidArgument, fmt.Sprintf("entry %d is nil", i))
		}
		err := validation.Errors{
			"entry": e.Validate(),
			"title": validation.Validate(e.Title,
				validation.When(feedType == TypeAtom, validation.Required)),
			"id": validation.Validate(firstNonEmpty(e.ID, e.Link),
				validation.When(feedType == TypeAtom, validation.Required)),
		}.Filter()
		if err != nil {
			return feedkit.NewErrorWithCause(feedkit.ErrCodeInvalidArgument, fmt.Sprintf("invalid entry %d", i), err)
		}
		if err := validateExtensions(e.extensions); err != nil {
			return feedkit.NewErrorWithCause(feedkit.ErrCodeInvalidArgument, fmt.Sprintf("invalid extension on entry %d", i), err)
		}
	}
	return nil
}

func validateExtensions(exts map[string]any) error {
	errs := validation.Errors{}
	for name, data := range exts {
		if v, ok := data.(validation.Validatable); ok {
			errs[name] = v.Validate()
		}
	}
	return errs.Filter()
}

func renderError(r extension.Renderer, err error) error {
	return feedkit.NewErrorWithCause(feedkit.ErrCodeInvalidExtension, fmt.Sprintf("renderer %T failed", r), err)
}

// feedUpdated is the feed's Updated time, else the latest entry update or publication.
func feedUpdated(feed *Feed) time.Time {
	if !feed.Updated.IsZero() {
		return feed.Updated
	}
	var latest time.Time
	for _, e := range feed.Entries {
		if t := entryUpdated(e); t.After(latest) {
			latest = t
		}
	}
	return latest
}

func entryUpdated(e *Entry) time.Time {
	if !e.Updated.IsZero() {
		return e.Updated
	}
	return e.Published
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
