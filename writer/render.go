package writer

import (
	"fmt"
	"net/mail"
	"strconv"
	"time"

	"github.com/coregx/feedkit/extension"
)

const atomNS = "http://www.w3.org/2005/Atom"

func (w *Writer) generatorFor(feed *Feed) string {
	return firstNonEmpty(feed.Generator, w.generator)
}

func (w *Writer) renderRSS(feed *Feed) *extension.Element {
	root := extension.NewElement("rss").SetAttr("version", "2.0")
	channel := root.AddChild("channel", "")

	channel.AddChild("title", feed.Title)
	channel.AddChild("link", feed.Link)
	channel.AddChild("description", feed.Description)
	channel.AddChildIf("language", feed.Language)
	channel.AddChildIf("copyright", feed.Copyright)
	channel.AddChildIf("generator", w.generatorFor(feed))
	if updated := feedUpdated(feed); !updated.IsZero() {
		channel.AddChild("lastBuildDate", updated.UTC().Format(time.RFC1123Z))
	}
	for _, c := range feed.Categories {
		channel.AddChild("category", c)
	}
	if feed.ImageURL != "" {
		image := channel.AddChild("image", "")
		image.AddChild("url", feed.ImageURL)
		image.AddChild("title", feed.Title)
		image.AddChild("link", feed.Link)
	}

	for _, e := range feed.Entries {
		item := channel.AddChild("item", "")
		item.AddChildIf("title", e.Title)
		item.AddChildIf("link", e.Link)
		item.AddChildIf("description", firstNonEmpty(e.Description, e.Content))
		for _, a := range e.Authors {
			if a.Email != "" {
				item.AddChild("author", rssAuthor(a))
			}
		}
		for _, c := range e.Categories {
			item.AddChild("category", c)
		}
		item.AddChildIf("comments", e.CommentLink)
		if e.Enclosure != nil {
			item.AddChild("enclosure", "").
				SetAttr("url", e.Enclosure.URL).
				SetAttr("length", strconv.FormatInt(e.Enclosure.Length, 10)).
				SetAttr("type", e.Enclosure.Type)
		}
		if guid := firstNonEmpty(e.ID, e.Link); guid != "" {
			g := item.AddChild("guid", guid)
			if guid != e.Link {
				g.SetAttr("isPermaLink", "false")
			}
		}
		if !e.Published.IsZero() {
			item.AddChild("pubDate", e.Published.UTC().Format(time.RFC1123Z))
		}
	}
	return root
}

func (w *Writer) renderAtom(feed *Feed) *extension.Element {
	root := extension.NewElement("feed").SetAttr("xmlns", atomNS)
	updated := feedUpdated(feed)

	root.AddChild("id", firstNonEmpty(feed.ID, feed.Link))
	root.AddChild("title", feed.Title).SetAttr("type", "text")
	if feed.Description != "" {
		root.AddChild("subtitle", feed.Description).SetAttr("type", "text")
	}
	root.AddChild("updated", updated.UTC().Format(time.RFC3339))
	root.AddChild("link", "").SetAttr("rel", "alternate").SetAttr("type", "text/html").SetAttr("href", feed.Link)
	if self := feed.FeedLink(TypeAtom); self != "" {
		root.AddChild("link", "").SetAttr("rel", "self").SetAttr("type", "application/atom+xml").SetAttr("href", self)
	}
	for _, hub := range feed.Hubs {
		root.AddChild("link", "").SetAttr("rel", "hub").SetAttr("href", hub)
	}
	for _, a := range feed.Authors {
		atomPerson(root.AddChild("author", ""), a)
	}
	for _, c := range feed.Categories {
		root.AddChild("category", "").SetAttr("term", c)
	}
	root.AddChildIf("rights", feed.Copyright)
	root.AddChildIf("generator", w.generatorFor(feed))
	root.AddChildIf("logo", feed.ImageURL)
	if feed.Language != "" {
		root.SetAttr("xml:lang", feed.Language)
	}

	for _, e := range feed.Entries {
		entry := root.AddChild("entry", "")
		entry.AddChild("id", firstNonEmpty(e.ID, e.Link))
		entry.AddChild("title", e.Title).SetAttr("type", "html")
		entryTime := entryUpdated(e)
		if entryTime.IsZero() {
			entryTime = updated
		}
		entry.AddChild("updated", entryTime.UTC().Format(time.RFC3339))
		if !e.Published.IsZero() {
			entry.AddChild("published", e.Published.UTC().Format(time.RFC3339))
		}
		if e.Link != "" {
			entry.AddChild("link", "").SetAttr("rel", "alternate").SetAttr("type", "text/html").SetAttr("href", e.Link)
		}
		for _, a := range e.Authors {
			atomPerson(entry.AddChild("author", ""), a)
		}
		for _, c := range e.Categories {
			entry.AddChild("category", "").SetAttr("term", c)
		}
		if e.Description != "" {
			entry.AddChild("summary", e.Description).SetAttr("type", "html")
		}
		if e.Content != "" {
			entry.AddChild("content", e.Content).SetAttr("type", "html")
		}
		if e.Enclosure != nil {
			entry.AddChild("link", "").
				SetAttr("rel", "enclosure").
				SetAttr("type", e.Enclosure.Type).
				SetAttr("length", strconv.FormatInt(e.Enclosure.Length, 10)).
				SetAttr("href", e.Enclosure.URL)
		}
	}
	return root
}

func atomPerson(el *extension.Element, p Person) {
	el.AddChild("name", p.Name)
	el.AddChildIf("email", p.Email)
	el.AddChildIf("uri", p.URI)
}

// rssAuthor formats an RSS author as "email (name)".
func rssAuthor(p Person) string {
	if addr, err := mail.ParseAddress(p.Email); err == nil {
		return fmt.Sprintf("%s (%s)", addr.Address, p.Name)
	}
	return fmt.Sprintf("%s (%s)", p.Email, p.Name)
}
