package writer

import (
	"strconv"

	"github.com/coregx/feedkit/extension"
)

var (
	atomNamespace          = extension.Namespace{Prefix: "atom", URI: "http://www.w3.org/2005/Atom"}
	contentNamespace       = extension.Namespace{Prefix: "content", URI: "http://purl.org/rss/1.0/modules/content/"}
	dublinCoreNamespace    = extension.Namespace{Prefix: "dc", URI: "http://purl.org/dc/elements/1.1/"}
	slashNamespace         = extension.Namespace{Prefix: "slash", URI: "http://purl.org/rss/1.0/modules/slash/"}
	threadingNamespace     = extension.Namespace{Prefix: "thr", URI: "http://purl.org/syndication/thread/1.0"}
	wellFormedWebNamespace = extension.Namespace{Prefix: "wfw", URI: "http://wellformedweb.org/CommentAPI/"}
)

// AtomFeedRenderer adds atom:link self and hub references to RSS channels.
// Atom documents carry them natively.
type AtomFeedRenderer struct{}

// Target implements extension.Renderer.
func (AtomFeedRenderer) Target() extension.Target { return extension.TargetFeed }

// Namespaces implements extension.Renderer.
func (AtomFeedRenderer) Namespaces() []extension.Namespace {
	return []extension.Namespace{atomNamespace}
}

// Render implements extension.Renderer.
func (AtomFeedRenderer) Render(feedType string, container extension.Container, parent *extension.Element) error {
	f, ok := container.(*Feed)
	if !ok || feedType != TypeRSS {
		return nil
	}
	if self := f.FeedLink(TypeRSS); self != "" {
		parent.AddChild("atom:link", "").
			SetAttr("rel", "self").
			SetAttr("type", "application/rss+xml").
			SetAttr("href", self)
	}
	for _, hub := range f.Hubs {
		parent.AddChild("atom:link", "").SetAttr("rel", "hub").SetAttr("href", hub)
	}
	return nil
}

// ContentEntryRenderer writes entry content as content:encoded in RSS.
type ContentEntryRenderer struct{}

// Target implements extension.Renderer.
func (ContentEntryRenderer) Target() extension.Target { return extension.TargetEntry }

// Namespaces implements extension.Renderer.
func (ContentEntryRenderer) Namespaces() []extension.Namespace {
	return []extension.Namespace{contentNamespace}
}

// Render implements extension.Renderer.
func (ContentEntryRenderer) Render(feedType string, container extension.Container, parent *extension.Element) error {
	e, ok := container.(*Entry)
	if !ok || feedType != TypeRSS {
		return nil
	}
	parent.AddChildIf("content:encoded", e.Content)
	return nil
}

// DublinCoreEntryRenderer writes entry author names as dc:creator in RSS,
// which has no name-only author element.
type DublinCoreEntryRenderer struct{}

// Target implements extension.Renderer.
func (DublinCoreEntryRenderer) Target() extension.Target { return extension.TargetEntry }

// Namespaces implements extension.Renderer.
func (DublinCoreEntryRenderer) Namespaces() []extension.Namespace {
	return []extension.Namespace{dublinCoreNamespace}
}

// Render implements extension.Renderer.
func (DublinCoreEntryRenderer) Render(feedType string, container extension.Container, parent *extension.Element) error {
	e, ok := container.(*Entry)
	if !ok || feedType != TypeRSS {
		return nil
	}
	renderCreators(e.Authors, parent)
	return nil
}

// DublinCoreFeedRenderer writes feed author names as dc:creator in RSS.
type DublinCoreFeedRenderer struct{}

// Target implements extension.Renderer.
func (DublinCoreFeedRenderer) Target() extension.Target { return extension.TargetFeed }

// Namespaces implements extension.Renderer.
func (DublinCoreFeedRenderer) Namespaces() []extension.Namespace {
	return []extension.Namespace{dublinCoreNamespace}
}

// Render implements extension.Renderer.
func (DublinCoreFeedRenderer) Render(feedType string, container extension.Container, parent *extension.Element) error {
	f, ok := container.(*Feed)
	if !ok || feedType != TypeRSS {
		return nil
	}
	renderCreators(f.Authors, parent)
	return nil
}

func renderCreators(authors []Person, parent *extension.Element) {
	for _, a := range authors {
		parent.AddChildIf("dc:creator", a.Name)
	}
}

// SlashEntryRenderer writes the comment count as slash:comments.
type SlashEntryRenderer struct{}

// Target implements extension.Renderer.
func (SlashEntryRenderer) Target() extension.Target { return extension.TargetEntry }

// Namespaces implements extension.Renderer.
func (SlashEntryRenderer) Namespaces() []extension.Namespace {
	return []extension.Namespace{slashNamespace}
}

// Render implements extension.Renderer.
func (SlashEntryRenderer) Render(_ string, container extension.Container, parent *extension.Element) error {
	e, ok := container.(*Entry)
	if !ok || e.CommentCount <= 0 {
		return nil
	}
	parent.AddChild("slash:comments", strconv.Itoa(e.CommentCount))
	return nil
}

// ThreadingEntryRenderer writes Atom threading replies links and thr:total.
type ThreadingEntryRenderer struct{}

// Target implements extension.Renderer.
func (ThreadingEntryRenderer) Target() extension.Target { return extension.TargetEntry }

// Namespaces implements extension.Renderer.
func (ThreadingEntryRenderer) Namespaces() []extension.Namespace {
	return []extension.Namespace{threadingNamespace}
}

// Render implements extension.Renderer.
func (ThreadingEntryRenderer) Render(feedType string, container extension.Container, parent *extension.Element) error {
	e, ok := container.(*Entry)
	if !ok || feedType != TypeAtom {
		return nil
	}

	if e.CommentLink != "" {
		link := parent.AddChild("link", "").
			SetAttr("rel", "replies").
			SetAttr("type", "text/html").
			SetAttr("href", e.CommentLink)
		if e.CommentCount > 0 {
			link.SetAttr("thr:count", strconv.Itoa(e.CommentCount))
		}
	}
	for _, l := range e.CommentFeedLinks {
		link := parent.AddChild("link", "").
			SetAttr("rel", "replies").
			SetAttr("type", mediaType(l.Type)).
			SetAttr("href", l.URL)
		if e.CommentCount > 0 {
			link.SetAttr("thr:count", strconv.Itoa(e.CommentCount))
		}
	}
	if e.CommentCount > 0 {
		parent.AddChild("thr:total", strconv.Itoa(e.CommentCount))
	}
	return nil
}

// WellFormedWebEntryRenderer writes wfw:commentRss for RSS comment feeds.
type WellFormedWebEntryRenderer struct{}

// Target implements extension.Renderer.
func (WellFormedWebEntryRenderer) Target() extension.Target { return extension.TargetEntry }

// Namespaces implements extension.Renderer.
func (WellFormedWebEntryRenderer) Namespaces() []extension.Namespace {
	return []extension.Namespace{wellFormedWebNamespace}
}

// Render implements extension.Renderer.
func (WellFormedWebEntryRenderer) Render(feedType string, container extension.Container, parent *extension.Element) error {
	e, ok := container.(*Entry)
	if !ok || feedType != TypeRSS {
		return nil
	}
	for _, l := range e.CommentFeedLinks {
		if l.Type == TypeRSS {
			parent.AddChild("wfw:commentRss", l.URL)
		}
	}
	return nil
}

func mediaType(feedType string) string {
	if feedType == TypeRSS {
		return "application/rss+xml"
	}
	return "application/atom+xml"
}
