package writer

import (
	"github.com/coregx/feedkit/extension"
)

// BuiltinExtensions returns the writer extensions shipped with feedkit.
func BuiltinExtensions() []extension.Registration {
	return []extension.Registration{
		{Name: "atomrendererfeed", Kind: extension.KindRenderer, Factory: func() any { return &AtomFeedRenderer{} }},
		{Name: "contentrendererentry", Kind: extension.KindRenderer, Factory: func() any { return &ContentEntryRenderer{} }},
		{Name: "dublincorerendererentry", Kind: extension.KindRenderer, Factory: func() any { return &DublinCoreEntryRenderer{} }},
		{Name: "dublincorerendererfeed", Kind: extension.KindRenderer, Factory: func() any { return &DublinCoreFeedRenderer{} }},
		{Name: "itunesentry", Kind: extension.KindEntryData, Factory: func() any { return &ITunesEntry{} }},
		{Name: "itunesfeed", Kind: extension.KindFeedData, Factory: func() any { return &ITunesFeed{} }},
		{Name: "itunesrendererentry", Kind: extension.KindRenderer, Factory: func() any { return &ITunesEntryRenderer{} }},
		{Name: "itunesrendererfeed", Kind: extension.KindRenderer, Factory: func() any { return &ITunesFeedRenderer{} }},
		{Name: "slashrendererentry", Kind: extension.KindRenderer, Factory: func() any { return &SlashEntryRenderer{} }},
		{Name: "threadingrendererentry", Kind: extension.KindRenderer, Factory: func() any { return &ThreadingEntryRenderer{} }},
		{Name: "wellformedwebrendererentry", Kind: extension.KindRenderer, Factory: func() any { return &WellFormedWebEntryRenderer{} }},
	}
}

// DefaultExtensions returns a pluggable writer registry seeded with BuiltinExtensions.
func DefaultExtensions() *extension.Registry {
	r := extension.New(extension.RoleWriter)
	if err := r.RegisterAll(BuiltinExtensions()); err != nil {
		panic(err) // built-in names are constant
	}
	return r
}

// StandaloneExtensions returns a fixed writer registry holding only BuiltinExtensions.
func StandaloneExtensions() *extension.Registry {
	r, err := extension.NewStandalone(extension.RoleWriter, BuiltinExtensions())
	if err != nil {
		panic(err)
	}
	return r
}
