// Package role is the registry of item attributes ("roles") the model can
// carry, sort and group by.
package role

import "slices"

// Kind is the typed tag of a role.
type Kind int

const (
	NoRole Kind = iota
	NameRole
	SizeRole
	ModificationTimeRole
	CreationTimeRole
	AccessTimeRole
	PermissionsRole
	OwnerRole
	GroupRole
	TypeRole
	ExtensionRole
	DestinationRole
	PathRole
	DeletionTimeRole
	CommentRole
	TagsRole
	RatingRole
	DimensionsRole
	WidthRole
	HeightRole
	ImageDateTimeRole
	OrientationRole
	PublisherRole
	PageCountRole
	WordCountRole
	TitleRole
	AuthorRole
	LineCountRole
	ArtistRole
	GenreRole
	AlbumRole
	DurationRole
	TrackRole
	ReleaseYearRole
	BitrateRole
	OriginURLRole
	AspectRatioRole
	FrameRateRole

	IsDirRole
	IsLinkRole
	IsHiddenRole
	IsExpandedRole
	IsExpandableRole
	ExpandedParentsCountRole
)

// Role names.
const (
	Text             = "text"
	Size             = "size"
	ModificationTime = "modificationtime"
	CreationTime     = "creationtime"
	AccessTime       = "accesstime"
	Type             = "type"
	Rating           = "rating"
	Tags             = "tags"
	Comment          = "comment"
	Title            = "title"
	Author           = "author"
	Publisher        = "publisher"
	PageCount        = "pageCount"
	WordCount        = "wordCount"
	LineCount        = "lineCount"
	ImageDateTime    = "imageDateTime"
	Dimensions       = "dimensions"
	Width            = "width"
	Height           = "height"
	Orientation      = "orientation"
	Artist           = "artist"
	Genre            = "genre"
	Album            = "album"
	Duration         = "duration"
	Bitrate          = "bitrate"
	Track            = "track"
	ReleaseYear      = "releaseYear"
	AspectRatio      = "aspectRatio"
	FrameRate        = "frameRate"
	Path             = "path"
	Extension        = "extension"
	DeletionTime     = "deletiontime"
	Destination      = "destination"
	OriginURL        = "originUrl"
	Permissions      = "permissions"
	Owner            = "owner"
	Group            = "group"

	IsDir                = "isDir"
	IsLink               = "isLink"
	IsHidden             = "isHidden"
	IsExpanded           = "isExpanded"
	IsExpandable         = "isExpandable"
	ExpandedParentsCount = "expandedParentsCount"

	// URL is always present in an item's values.
	URL = "url"

	// Written by the roles updater.
	IconName     = "iconName"
	IconPixmap   = "iconPixmap"
	IconOverlays = "iconOverlays"
	Count        = "count"
)

// Info describes a user visible role.
type Info struct {
	Name  string `json:"name"`
	Kind  Kind   `json:"-"`
	Title string `json:"title"`
	// Group is the menu group the role is listed under, "" for the basics.
	Group string `json:"group,omitempty"`
	// RequiresIndexer marks roles only a metadata indexer can provide.
	RequiresIndexer bool `json:"requiresIndexer,omitempty"`
}

var registry = []Info{
	{Name: Text, Kind: NameRole, Title: "Name"},
	{Name: Size, Kind: SizeRole, Title: "Size"},
	{Name: ModificationTime, Kind: ModificationTimeRole, Title: "Modified"},
	{Name: CreationTime, Kind: CreationTimeRole, Title: "Created"},
	{Name: AccessTime, Kind: AccessTimeRole, Title: "Accessed"},
	{Name: Type, Kind: TypeRole, Title: "Type"},
	{Name: Rating, Kind: RatingRole, Title: "Rating", RequiresIndexer: true},
	{Name: Tags, Kind: TagsRole, Title: "Tags", RequiresIndexer: true},
	{Name: Comment, Kind: CommentRole, Title: "Comment", RequiresIndexer: true},
	{Name: Title, Kind: TitleRole, Title: "Title", Group: "Document", RequiresIndexer: true},
	{Name: Author, Kind: AuthorRole, Title: "Author", Group: "Document", RequiresIndexer: true},
	{Name: Publisher, Kind: PublisherRole, Title: "Publisher", Group: "Document", RequiresIndexer: true},
	{Name: PageCount, Kind: PageCountRole, Title: "Page Count", Group: "Document", RequiresIndexer: true},
	{Name: WordCount, Kind: WordCountRole, Title: "Word Count", Group: "Document", RequiresIndexer: true},
	{Name: LineCount, Kind: LineCountRole, Title: "Line Count", Group: "Document", RequiresIndexer: true},
	{Name: ImageDateTime, Kind: ImageDateTimeRole, Title: "Date Photographed", Group: "Image"},
	{Name: Dimensions, Kind: DimensionsRole, Title: "Dimensions", Group: "Image"},
	{Name: Width, Kind: WidthRole, Title: "Width", Group: "Image"},
	{Name: Height, Kind: HeightRole, Title: "Height", Group: "Image"},
	{Name: Orientation, Kind: OrientationRole, Title: "Orientation", Group: "Image"},
	{Name: Artist, Kind: ArtistRole, Title: "Artist", Group: "Audio", RequiresIndexer: true},
	{Name: Genre, Kind: GenreRole, Title: "Genre", Group: "Audio", RequiresIndexer: true},
	{Name: Album, Kind: AlbumRole, Title: "Album", Group: "Audio", RequiresIndexer: true},
	{Name: Duration, Kind: DurationRole, Title: "Duration", Group: "Audio", RequiresIndexer: true},
	{Name: Bitrate, Kind: BitrateRole, Title: "Bitrate", Group: "Audio", RequiresIndexer: true},
	{Name: Track, Kind: TrackRole, Title: "Track", Group: "Audio", RequiresIndexer: true},
	{Name: ReleaseYear, Kind: ReleaseYearRole, Title: "Release Year", Group: "Audio", RequiresIndexer: true},
	{Name: AspectRatio, Kind: AspectRatioRole, Title: "Aspect Ratio", Group: "Video", RequiresIndexer: true},
	{Name: FrameRate, Kind: FrameRateRole, Title: "Frame Rate", Group: "Video", RequiresIndexer: true},
	{Name: Path, Kind: PathRole, Title: "Path", Group: "Other"},
	{Name: Extension, Kind: ExtensionRole, Title: "File Extension", Group: "Other"},
	{Name: DeletionTime, Kind: DeletionTimeRole, Title: "Deletion Time", Group: "Other"},
	{Name: Destination, Kind: DestinationRole, Title: "Link Destination", Group: "Other"},
	{Name: OriginURL, Kind: OriginURLRole, Title: "Downloaded From", Group: "Other", RequiresIndexer: true},
	{Name: Permissions, Kind: PermissionsRole, Title: "Permissions", Group: "Other"},
	{Name: Owner, Kind: OwnerRole, Title: "Owner", Group: "Other"},
	{Name: Group, Kind: GroupRole, Title: "User Group", Group: "Other"},
}

var kinds = func() map[string]Kind {
	m := make(map[string]Kind, len(registry)+6)
	for _, info := range registry {
		m[info.Name] = info.Kind
	}
	m[IsDir] = IsDirRole
	m[IsLink] = IsLinkRole
	m[IsHidden] = IsHiddenRole
	m[IsExpanded] = IsExpandedRole
	m[IsExpandable] = IsExpandableRole
	m[ExpandedParentsCount] = ExpandedParentsCountRole
	return m
}()

var names = func() map[Kind]string {
	m := make(map[Kind]string, len(kinds))
	for name, k := range kinds {
		m[k] = name
	}
	return m
}()

// All returns the user visible roles in presentation order.
func All() []Info { return slices.Clone(registry) }

// ByName looks up a user visible role.
func ByName(name string) (Info, bool) {
	for _, info := range registry {
		if info.Name == name {
			return info, true
		}
	}
	return Info{}, false
}

// KindOf returns the kind for a role name, NoRole when unknown.
func KindOf(name string) Kind { return kinds[name] }

// NameOf returns the role name for a kind, "" for NoRole.
func NameOf(k Kind) string { return names[k] }

// TitleOf returns the presentation title of a role, or the name itself.
func TitleOf(name string) string {
	if info, ok := ByName(name); ok {
		return info.Title
	}
	return name
}
