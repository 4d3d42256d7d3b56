package reader

import (
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

// Prefixes under which gofeed files each namespace. gofeed keys extensions by
// the prefix the document declared, so common aliases are listed too.
var (
	atomPrefixes            = []string{"atom", "atom10"}
	contentPrefixes         = []string{"content"}
	creativeCommonsPrefixes = []string{"creativeCommons", "cc"}
	slashPrefixes           = []string{"slash"}
	syndicationPrefixes     = []string{"sy", "syn"}
	threadPrefixes          = []string{"thr"}
	wellFormedWebPrefixes   = []string{"wfw"}
)

// Link is a typed link element.
type Link struct {
	Rel  string
	Href string
	Type string
}

// AtomFeed exposes atom:link elements of a feed, including the self and hub
// links used for PubSubHubbub discovery.
type AtomFeed struct {
	Links []Link
	Self  string
	Hubs  []string
}

func (a *AtomFeed) ParseFeed(feed *gofeed.Feed) error {
	a.Links = atomLinks(feed.Extensions)
	for _, l := range a.Links {
		switch l.Rel {
		case "self":
			if a.Self == "" {
				a.Self = l.Href
			}
		case "hub":
			a.Hubs = append(a.Hubs, l.Href)
		}
	}
	return nil
}

// AtomEntry exposes atom:link elements of an entry.
type AtomEntry struct {
	Links []Link
}

func (a *AtomEntry) ParseEntry(item *gofeed.Item) error {
	a.Links = atomLinks(item.Extensions)
	return nil
}

// LinksByRel returns the entry's links with the given rel.
func (a *AtomEntry) LinksByRel(rel string) []Link {
	var out []Link
	for _, l := range a.Links {
		if l.Rel == rel {
			out = append(out, l)
		}
	}
	return out
}

func atomLinks(exts ext.Extensions) []Link {
	var links []Link
	for _, e := range find(exts, atomPrefixes, "link") {
		href := e.Attrs["href"]
		if href == "" {
			continue
		}
		rel := e.Attrs["rel"]
		if rel == "" {
			rel = "alternate"
		}
		links = append(links, Link{Rel: rel, Href: href, Type: e.Attrs["type"]})
	}
	return links
}

// ContentEntry holds content:encoded.
type ContentEntry struct {
	Encoded string
}

func (c *ContentEntry) ParseEntry(item *gofeed.Item) error {
	c.Encoded = first(find(item.Extensions, contentPrefixes, "encoded"))
	if c.Encoded == "" {
		c.Encoded = item.Content
	}
	return nil
}

// CreativeCommonsFeed holds creativeCommons:license values of a feed.
type CreativeCommonsFeed struct {
	Licenses []string
}

func (c *CreativeCommonsFeed) ParseFeed(feed *gofeed.Feed) error {
	c.Licenses = values(find(feed.Extensions, creativeCommonsPrefixes, "license"))
	return nil
}

// CreativeCommonsEntry holds creativeCommons:license values of an entry.
type CreativeCommonsEntry struct {
	Licenses []string
}

func (c *CreativeCommonsEntry) ParseEntry(item *gofeed.Item) error {
	c.Licenses = values(find(item.Extensions, creativeCommonsPrefixes, "license"))
	return nil
}

// DublinCore holds the Dublin Core elements feedkit surfaces.
type DublinCore struct {
	Title       []string
	Creator     []string
	Subject     []string
	Description []string
	Publisher   []string
	Contributor []string
	Date        []string
	Language    []string
	Rights      []string
}

func (d *DublinCore) fill(dc *ext.DublinCoreExtension) {
	if dc == nil {
		return
	}
	d.Title = dc.Title
	d.Creator = dc.Creator
	d.Subject = dc.Subject
	d.Description = dc.Description
	d.Publisher = dc.Publisher
	d.Contributor = dc.Contributor
	d.Date = dc.Date
	d.Language = dc.Language
	d.Rights = dc.Rights
}

// DublinCoreFeed holds dc:* elements of a feed.
type DublinCoreFeed struct {
	DublinCore
}

func (d *DublinCoreFeed) ParseFeed(feed *gofeed.Feed) error {
	d.fill(feed.DublinCoreExt)
	return nil
}

// DublinCoreEntry holds dc:* elements of an entry.
type DublinCoreEntry struct {
	DublinCore
}

func (d *DublinCoreEntry) ParseEntry(item *gofeed.Item) error {
	d.fill(item.DublinCoreExt)
	return nil
}

// PodcastFeed holds the iTunes podcast elements of a feed.
type PodcastFeed struct {
	Author     string
	Subtitle   string
	Summary    string
	Image      string
	Explicit   bool
	Block      bool
	Complete   bool
	Type       string
	NewFeedURL string
	OwnerName  string
	OwnerEmail string
	Categories []string
	Keywords   []string
}

func (p *PodcastFeed) ParseFeed(feed *gofeed.Feed) error {
	it := feed.ITunesExt
	if it == nil {
		return nil
	}
	p.Author = it.Author
	p.Subtitle = it.Subtitle
	p.Summary = it.Summary
	p.Image = it.Image
	p.Explicit = yes(it.Explicit)
	p.Block = yes(it.Block)
	p.Complete = yes(it.Complete)
	p.Type = it.Type
	p.NewFeedURL = it.NewFeedURL
	if it.Owner != nil {
		p.OwnerName = it.Owner.Name
		p.OwnerEmail = it.Owner.Email
	}
	for _, c := range it.Categories {
		for ; c != nil; c = c.Subcategory {
			p.Categories = append(p.Categories, c.Text)
		}
	}
	p.Keywords = splitList(it.Keywords)
	return nil
}

// PodcastEntry holds the iTunes podcast elements of an episode.
type PodcastEntry struct {
	Author      string
	Subtitle    string
	Summary     string
	Image       string
	Duration    time.Duration
	Explicit    bool
	Episode     int
	Season      int
	EpisodeType string
	Keywords    []string
}

func (p *PodcastEntry) ParseEntry(item *gofeed.Item) error {
	it := item.ITunesExt
	if it == nil {
		return nil
	}
	p.Author = it.Author
	p.Subtitle = it.Subtitle
	p.Summary = it.Summary
	p.Image = it.Image
	p.Duration = parseDuration(it.Duration)
	p.Explicit = yes(it.Explicit)
	p.Episode, _ = strconv.Atoi(strings.TrimSpace(it.Episode))
	p.Season, _ = strconv.Atoi(strings.TrimSpace(it.Season))
	p.EpisodeType = it.EpisodeType
	p.Keywords = splitList(it.Keywords)
	return nil
}

// SlashEntry holds slash:* elements.
type SlashEntry struct {
	Section    string
	Department string
	Comments   int
	HitParade  []int
}

func (s *SlashEntry) ParseEntry(item *gofeed.Item) error {
	s.Section = first(find(item.Extensions, slashPrefixes, "section"))
	s.Department = first(find(item.Extensions, slashPrefixes, "department"))
	s.Comments, _ = strconv.Atoi(strings.TrimSpace(first(find(item.Extensions, slashPrefixes, "comments"))))
	for _, v := range splitList(first(find(item.Extensions, slashPrefixes, "hit_parade"))) {
		if n, err := strconv.Atoi(v); err == nil {
			s.HitParade = append(s.HitParade, n)
		}
	}
	return nil
}

// SyndicationFeed holds sy:* update schedule hints.
type SyndicationFeed struct {
	UpdatePeriod    string
	UpdateFrequency int
	UpdateBase      time.Time
}

func (s *SyndicationFeed) ParseFeed(feed *gofeed.Feed) error {
	s.UpdatePeriod = strings.ToLower(strings.TrimSpace(first(find(feed.Extensions, syndicationPrefixes, "updatePeriod"))))
	s.UpdateFrequency, _ = strconv.Atoi(strings.TrimSpace(first(find(feed.Extensions, syndicationPrefixes, "updateFrequency"))))
	if base := strings.TrimSpace(first(find(feed.Extensions, syndicationPrefixes, "updateBase"))); base != "" {
		if t, err := time.Parse(time.RFC3339, base); err == nil {
			s.UpdateBase = t
		}
	}
	return nil
}

// UpdateInterval returns the advertised polling interval, defaulting to daily
// updates at frequency 1 when the feed leaves either value out.
func (s *SyndicationFeed) UpdateInterval() time.Duration {
	period := 24 * time.Hour
	switch s.UpdatePeriod {
	case "hourly":
		period = time.Hour
	case "weekly":
		period = 7 * 24 * time.Hour
	case "monthly":
		period = 30 * 24 * time.Hour
	case "yearly":
		period = 365 * 24 * time.Hour
	}
	if s.UpdateFrequency > 1 {
		return period / time.Duration(s.UpdateFrequency)
	}
	return period
}

// InReplyTo is a thr:in-reply-to reference.
type InReplyTo struct {
	Ref  string
	Href string
	Type string
}

// ThreadEntry holds Atom threading elements.
type ThreadEntry struct {
	Total     int
	InReplyTo []InReplyTo
}

func (t *ThreadEntry) ParseEntry(item *gofeed.Item) error {
	t.Total, _ = strconv.Atoi(strings.TrimSpace(first(find(item.Extensions, threadPrefixes, "total"))))
	for _, e := range find(item.Extensions, threadPrefixes, "in-reply-to") {
		t.InReplyTo = append(t.InReplyTo, InReplyTo{Ref: e.Attrs["ref"], Href: e.Attrs["href"], Type: e.Attrs["type"]})
	}
	return nil
}

// WellFormedWebEntry holds wfw:* comment endpoints.
type WellFormedWebEntry struct {
	Comment    string
	CommentRSS string
}

func (w *WellFormedWebEntry) ParseEntry(item *gofeed.Item) error {
	w.Comment = first(find(item.Extensions, wellFormedWebPrefixes, "comment"))
	w.CommentRSS = first(find(item.Extensions, wellFormedWebPrefixes, "commentRss"))
	if w.CommentRSS == "" {
		w.CommentRSS = first(find(item.Extensions, wellFormedWebPrefixes, "commentRSS"))
	}
	return nil
}

func find(exts ext.Extensions, prefixes []string, name string) []ext.Extension {
	for _, prefix := range prefixes {
		if elems := exts[prefix][name]; len(elems) > 0 {
			return elems
		}
	}
	return nil
}

func first(elems []ext.Extension) string {
	if len(elems) == 0 {
		return ""
	}
	return strings.TrimSpace(elems[0].Value)
}

func values(elems []ext.Extension) []string {
	var out []string
	for _, e := range elems {
		v := strings.TrimSpace(e.Value)
		if v == "" {
			// rdf:resource style licenses carry the URL as an attribute
			v = e.Attrs["resource"]
		}
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func yes(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "explicit":
		return true
	}
	return false
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseDuration accepts itunes:duration as seconds, MM:SS or HH:MM:SS.
func parseDuration(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	var total int
	for _, part := range strings.Split(v, ":") {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second
}
