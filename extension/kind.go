package extension

// Role identifies which side of the library a registry serves.
type Role string

// Registry roles.
const (
	RoleReader Role = "reader"
	RoleWriter Role = "writer"
)

// Kind is the capability an extension declares when it is registered.
// Each kind belongs to exactly one Role and carries one contract.
type Kind string

// Reader kinds.
const (
	// KindFeedParser extensions implement FeedParser.
	KindFeedParser Kind = "FeedParser"
	// KindEntryParser extensions implement EntryParser.
	KindEntryParser Kind = "EntryParser"
)

// Writer kinds.
const (
	// KindRenderer extensions implement Renderer.
	KindRenderer Kind = "Renderer"
	// KindFeedData extensions are feed-level data containers implementing validation.Validatable.
	KindFeedData Kind = "FeedData"
	// KindEntryData extensions are entry-level data containers implementing validation.Validatable.
	KindEntryData Kind = "EntryData"
)

// Role returns the role the kind belongs to, or "" for an unknown kind.
func (k Kind) Role() Role {
	switch k {
	case KindFeedParser, KindEntryParser:
		return RoleReader
	case KindRenderer, KindFeedData, KindEntryData:
		return RoleWriter
	}
	return ""
}

// Kinds returns the kinds of a role.
func (r Role) Kinds() []Kind {
	switch r {
	case RoleReader:
		return []Kind{KindFeedParser, KindEntryParser}
	case RoleWriter:
		return []Kind{KindRenderer, KindFeedData, KindEntryData}
	}
	return nil
}
