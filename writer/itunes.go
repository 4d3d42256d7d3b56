package writer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/coregx/feedkit/extension"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	itunesNamespace = extension.Namespace{Prefix: "itunes", URI: "http://www.itunes.com/dtds/podcast-1.0.dtd"}

	durationPattern = regexp.MustCompile(`^([0-9]+|[0-9]{1,2}:[0-5][0-9](:[0-5][0-9])?)$`)
	explicitValues  = []interface{}{"true", "false", "yes", "no", "clean"}
)

// ITunesCategory is an iTunes category with optional subcategories.
type ITunesCategory struct {
	Text          string
	Subcategories []string
}

// ITunesOwner is the podcast owner contact.
type ITunesOwner struct {
	Name  string
	Email string
}

// ITunesFeed holds podcast metadata of a feed. It is attached to feeds as the
// "itunesfeed" data extension and written by the "itunesrendererfeed" renderer.
type ITunesFeed struct {
	Author     string
	Subtitle   string
	Summary    string
	Image      string
	Explicit   string
	Categories []ITunesCategory
	Owner      *ITunesOwner
	Keywords   []string
	Type       string
	NewFeedURL string
	Block      bool
	Complete   bool
}

// Validate implements validation.Validatable.
func (f *ITunesFeed) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.Author, validation.Length(0, 255)),
		validation.Field(&f.Subtitle, validation.Length(0, 255)),
		validation.Field(&f.Summary, validation.Length(0, 4000)),
		validation.Field(&f.Image, validation.By(absoluteURL)),
		validation.Field(&f.Explicit, validation.In(explicitValues...)),
		validation.Field(&f.Keywords, validation.Length(0, 12)),
		validation.Field(&f.Type, validation.In("episodic", "serial")),
		validation.Field(&f.NewFeedURL, validation.By(absoluteURL)),
		validation.Field(&f.Categories, validation.Each(validation.By(func(v interface{}) error {
			return validation.Validate(v.(ITunesCategory).Text, validation.Required)
		}))),
	)
}

// IsEmpty reports whether nothing was set.
func (f *ITunesFeed) IsEmpty() bool {
	return f.Author == "" && f.Subtitle == "" && f.Summary == "" && f.Image == "" &&
		f.Explicit == "" && len(f.Categories) == 0 && f.Owner == nil && len(f.Keywords) == 0 &&
		f.Type == "" && f.NewFeedURL == "" && !f.Block && !f.Complete
}

// ITunesEntry holds podcast metadata of an entry. It is attached to entries as
// the "itunesentry" data extension and written by the "itunesrendererentry" renderer.
type ITunesEntry struct {
	Author            string
	Subtitle          string
	Summary           string
	Image             string
	Duration          string
	Explicit          string
	Keywords          []string
	Episode           int
	Season            int
	EpisodeType       string
	Order             int
	Block             bool
	IsClosedCaptioned bool
}

// Validate implements validation.Validatable.
func (e *ITunesEntry) Validate() error {
	return validation.ValidateStruct(e,
		validation.Field(&e.Author, validation.Length(0, 255)),
		validation.Field(&e.Subtitle, validation.Length(0, 255)),
		validation.Field(&e.Summary, validation.Length(0, 4000)),
		validation.Field(&e.Image, validation.By(absoluteURL)),
		validation.Field(&e.Duration, validation.Match(durationPattern)),
		validation.Field(&e.Explicit, validation.In(explicitValues...)),
		validation.Field(&e.Keywords, validation.Length(0, 12)),
		validation.Field(&e.Episode, validation.Min(0)),
		validation.Field(&e.Season, validation.Min(0)),
		validation.Field(&e.EpisodeType, validation.In("full", "trailer", "bonus")),
		validation.Field(&e.Order, validation.Min(0)),
	)
}

// IsEmpty reports whether nothing was set.
func (e *ITunesEntry) IsEmpty() bool {
	return e.Author == "" && e.Subtitle == "" && e.Summary == "" && e.Image == "" &&
		e.Duration == "" && e.Explicit == "" && len(e.Keywords) == 0 && e.Episode == 0 &&
		e.Season == 0 && e.EpisodeType == "" && e.Order == 0 && !e.Block && !e.IsClosedCaptioned
}

// ITunesFeedRenderer writes the "itunesfeed" data extension.
type ITunesFeedRenderer struct{}

// Target implements extension.Renderer.
func (ITunesFeedRenderer) Target() extension.Target { return extension.TargetFeed }

// Namespaces implements extension.Renderer.
func (ITunesFeedRenderer) Namespaces() []extension.Namespace {
	return []extension.Namespace{itunesNamespace}
}

// Render implements extension.Renderer.
func (ITunesFeedRenderer) Render(_ string, container extension.Container, parent *extension.Element) error {
	data, ok := container.Extension("itunesfeed")
	if !ok {
		return nil
	}
	it, ok := data.(*ITunesFeed)
	if !ok || it.IsEmpty() {
		return nil
	}

	parent.AddChildIf("itunes:author", it.Author)
	parent.AddChildIf("itunes:subtitle", it.Subtitle)
	parent.AddChildIf("itunes:summary", it.Summary)
	if it.Image != "" {
		parent.AddChild("itunes:image", "").SetAttr("href", it.Image)
	}
	parent.AddChildIf("itunes:explicit", it.Explicit)
	for _, c := range it.Categories {
		cat := parent.AddChild("itunes:category", "").SetAttr("text", c.Text)
		for _, sub := range c.Subcategories {
			cat.AddChild("itunes:category", "").SetAttr("text", sub)
		}
	}
	if it.Owner != nil {
		owner := parent.AddChild("itunes:owner", "")
		owner.AddChildIf("itunes:name", it.Owner.Name)
		owner.AddChildIf("itunes:email", it.Owner.Email)
	}
	if len(it.Keywords) > 0 {
		parent.AddChild("itunes:keywords", strings.Join(it.Keywords, ","))
	}
	parent.AddChildIf("itunes:type", it.Type)
	parent.AddChildIf("itunes:new-feed-url", it.NewFeedURL)
	if it.Block {
		parent.AddChild("itunes:block", "Yes")
	}
	if it.Complete {
		parent.AddChild("itunes:complete", "Yes")
	}
	return nil
}

// ITunesEntryRenderer writes the "itunesentry" data extension.
type ITunesEntryRenderer struct{}

// Target implements extension.Renderer.
func (ITunesEntryRenderer) Target() extension.Target { return extension.TargetEntry }

// Namespaces implements extension.Renderer.
func (ITunesEntryRenderer) Namespaces() []extension.Namespace {
	return []extension.Namespace{itunesNamespace}
}

// Render implements extension.Renderer.
func (ITunesEntryRenderer) Render(_ string, container extension.Container, parent *extension.Element) error {
	data, ok := container.Extension("itunesentry")
	if !ok {
		return nil
	}
	it, ok := data.(*ITunesEntry)
	if !ok || it.IsEmpty() {
		return nil
	}

	parent.AddChildIf("itunes:author", it.Author)
	parent.AddChildIf("itunes:subtitle", it.Subtitle)
	parent.AddChildIf("itunes:summary", it.Summary)
	if it.Image != "" {
		parent.AddChild("itunes:image", "").SetAttr("href", it.Image)
	}
	parent.AddChildIf("itunes:duration", it.Duration)
	parent.AddChildIf("itunes:explicit", it.Explicit)
	if len(it.Keywords) > 0 {
		parent.AddChild("itunes:keywords", strings.Join(it.Keywords, ","))
	}
	if it.Episode > 0 {
		parent.AddChild("itunes:episode", strconv.Itoa(it.Episode))
	}
	if it.Season > 0 {
		parent.AddChild("itunes:season", strconv.Itoa(it.Season))
	}
	parent.AddChildIf("itunes:episodeType", it.EpisodeType)
	if it.Order > 0 {
		parent.AddChild("itunes:order", strconv.Itoa(it.Order))
	}
	if it.Block {
		parent.AddChild("itunes:block", "Yes")
	}
	if it.IsClosedCaptioned {
		parent.AddChild("itunes:isClosedCaptioned", "Yes")
	}
	return nil
}
