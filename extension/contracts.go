package extension

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mmcdole/gofeed"
)

// Target is the document level a renderer writes to.
type Target int

// Renderer targets.
const (
	TargetFeed Target = iota
	TargetEntry
)

// String implements fmt.Stringer.
func (t Target) String() string {
	if t == TargetEntry {
		return "entry"
	}
	return "feed"
}

// Namespace is an XML namespace declared on the document root.
type Namespace struct {
	Prefix string
	URI    string
}

// Container is a feed or entry being written. Data extensions attached to it
// are reachable by their registered name.
type Container interface {
	Extension(name string) (any, bool)
}

// Renderer writes extension elements into a feed or entry element.
// feedType is "rss" or "atom".
type Renderer interface {
	Target() Target
	Namespaces() []Namespace
	Render(feedType string, container Container, parent *Element) error
}

// FeedParser extracts feed-level extension data from a parsed feed.
// The resolved instance holds the extracted values.
type FeedParser interface {
	ParseFeed(feed *gofeed.Feed) error
}

// EntryParser extracts entry-level extension data from a parsed item.
type EntryParser interface {
	ParseEntry(item *gofeed.Item) error
}

// contract describes the interface an instance of a kind must satisfy.
type contract struct {
	name string
	ok   func(any) bool
}

var contracts = map[Kind]contract{
	KindRenderer: {"extension.Renderer", func(v any) bool {
		_, ok := v.(Renderer)
		return ok
	}},
	KindFeedData: {"validation.Validatable", func(v any) bool {
		_, ok := v.(validation.Validatable)
		return ok
	}},
	KindEntryData: {"validation.Validatable", func(v any) bool {
		_, ok := v.(validation.Validatable)
		return ok
	}},
	KindFeedParser: {"extension.FeedParser", func(v any) bool {
		_, ok := v.(FeedParser)
		return ok
	}},
	KindEntryParser: {"extension.EntryParser", func(v any) bool {
		_, ok := v.(EntryParser)
		return ok
	}},
}
