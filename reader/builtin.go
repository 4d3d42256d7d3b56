package reader

import (
	"github.com/coregx/feedkit/extension"
)

// BuiltinExtensions returns the reader extensions shipped with feedkit.
func BuiltinExtensions() []extension.Registration {
	return []extension.Registration{
		{Name: "atomentry", Kind: extension.KindEntryParser, Factory: func() any { return &AtomEntry{} }},
		{Name: "atomfeed", Kind: extension.KindFeedParser, Factory: func() any { return &AtomFeed{} }},
		{Name: "contententry", Kind: extension.KindEntryParser, Factory: func() any { return &ContentEntry{} }},
		{Name: "creativecommonsentry", Kind: extension.KindEntryParser, Factory: func() any { return &CreativeCommonsEntry{} }},
		{Name: "creativecommonsfeed", Kind: extension.KindFeedParser, Factory: func() any { return &CreativeCommonsFeed{} }},
		{Name: "dublincoreentry", Kind: extension.KindEntryParser, Factory: func() any { return &DublinCoreEntry{} }},
		{Name: "dublincorefeed", Kind: extension.KindFeedParser, Factory: func() any { return &DublinCoreFeed{} }},
		{Name: "podcastentry", Kind: extension.KindEntryParser, Factory: func() any { return &PodcastEntry{} }},
		{Name: "podcastfeed", Kind: extension.KindFeedParser, Factory: func() any { return &PodcastFeed{} }},
		{Name: "slashentry", Kind: extension.KindEntryParser, Factory: func() any { return &SlashEntry{} }},
		{Name: "syndicationfeed", Kind: extension.KindFeedParser, Factory: func() any { return &SyndicationFeed{} }},
		{Name: "threadentry", Kind: extension.KindEntryParser, Factory: func() any { return &ThreadEntry{} }},
		{Name: "wellformedwebentry", Kind: extension.KindEntryParser, Factory: func() any { return &WellFormedWebEntry{} }},
	}
}

// DefaultExtensions returns a pluggable reader registry seeded with BuiltinExtensions.
func DefaultExtensions() *extension.Registry {
	r := extension.New(extension.RoleReader)
	if err := r.RegisterAll(BuiltinExtensions()); err != nil {
		panic(err) // built-in names are constant
	}
	return r
}

// StandaloneExtensions returns a fixed reader registry holding only BuiltinExtensions.
func StandaloneExtensions() *extension.Registry {
	r, err := extension.NewStandalone(extension.RoleReader, BuiltinExtensions())
	if err != nil {
		panic(err)
	}
	return r
}
