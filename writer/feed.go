package writer

import (
	"errors"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Person is a feed or entry author.
type Person struct {
	Name  string
	Email string
	URI   string
}

// Validate implements validation.Validatable.
func (p Person) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.URI, validation.By(absoluteURL)),
	)
}

// Link is a typed link, used for comment feeds.
type Link struct {
	URL  string
	Type string // "rss" or "atom"
}

// Enclosure is a media attachment of an entry.
type Enclosure struct {
	URL    string
	Length int64
	Type   string
}

// Validate implements validation.Validatable.
func (e Enclosure) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.URL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&e.Type, validation.Required),
		validation.Field(&e.Length, validation.Min(int64(0))),
	)
}

// Feed is a feed document under construction.
// Create it with Writer.NewFeed so data extensions are attached.
type Feed struct {
	ID          string
	Title       string
	Description string
	Link        string
	FeedLinks   map[string]string // feed type -> self URL
	Hubs        []string
	Authors     []Person
	Language    string
	Copyright   string
	Generator   string
	ImageURL    string
	Categories  []string
	Updated     time.Time
	Entries     []*Entry

	extensions map[string]any
}

// Entry is a feed item under construction.
// Create it with Writer.NewEntry so data extensions are attached.
type Entry struct {
	ID               string
	Title            string
	Description      string
	Content          string
	Link             string
	Authors          []Person
	Categories       []string
	Published        time.Time
	Updated          time.Time
	CommentCount     int
	CommentLink      string
	CommentFeedLinks []Link
	Enclosure        *Enclosure

	extensions map[string]any
}

// Extension returns the data extension attached under name (case-insensitive).
func (f *Feed) Extension(name string) (any, bool) {
	v, ok := f.extensions[strings.ToLower(name)]
	return v, ok
}

// SetExtension attaches a data extension under name, replacing any previous one.
func (f *Feed) SetExtension(name string, data any) {
	if f.extensions == nil {
		f.extensions = make(map[string]any)
	}
	f.extensions[strings.ToLower(name)] = data
}

// AddEntry appends e to the feed.
func (f *Feed) AddEntry(e *Entry) {
	f.Entries = append(f.Entries, e)
}

// FeedLink returns the self URL for a feed type.
func (f *Feed) FeedLink(feedType string) string {
	return f.FeedLinks[feedType]
}

// SetFeedLink sets the self URL for a feed type.
func (f *Feed) SetFeedLink(feedType, link string) {
	if f.FeedLinks == nil {
		f.FeedLinks = make(map[string]string)
	}
	f.FeedLinks[feedType] = link
}

// Validate checks fields every feed type needs. Rendering adds type-specific checks.
func (f Feed) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Title, validation.Required),
		validation.Field(&f.Link, validation.Required, validation.By(absoluteURL)),
		validation.Field(&f.Hubs, validation.Each(validation.By(absoluteURL))),
		validation.Field(&f.FeedLinks, validation.Each(validation.By(absoluteURL))),
		validation.Field(&f.Authors),
		validation.Field(&f.ImageURL, validation.By(absoluteURL)),
	)
}

// Extension returns the data extension attached under name (case-insensitive).
func (e *Entry) Extension(name string) (any, bool) {
	v, ok := e.extensions[strings.ToLower(name)]
	return v, ok
}

// SetExtension attaches a data extension under name, replacing any previous one.
func (e *Entry) SetExtension(name string, data any) {
	if e.extensions == nil {
		e.extensions = make(map[string]any)
	}
	e.extensions[strings.ToLower(name)] = data
}

// Validate checks fields every feed type needs. Rendering adds type-specific checks.
func (e Entry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Title, validation.When(e.Description == "" && e.Content == "", validation.Required)),
		validation.Field(&e.Link, validation.By(absoluteURL)),
		validation.Field(&e.Authors),
		validation.Field(&e.CommentCount, validation.Min(0)),
		validation.Field(&e.CommentLink, validation.By(absoluteURL)),
		validation.Field(&e.CommentFeedLinks, validation.Each(validation.By(func(v interface{}) error {
			return absoluteURL(v.(Link).URL)
		}))),
		validation.Field(&e.Enclosure),
	)
}

func absoluteURL(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return errors.New("must be an absolute URL")
	}
	return nil
}
