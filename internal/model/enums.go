package model

// Job kinds
type JobKind string

const (
	JobKindImage JobKind = "image-generation"
	JobKindBook  JobKind = "book-generation"
)

// Job status
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further updates are expected for this status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// Generation categories
type Category string

const (
	CategoryStickers Category = "stickers"
	CategoryAvatars  Category = "avatars"
	CategoryPosters  Category = "posters"
	CategoryColoring Category = "coloring"
)

var ValidCategories = []Category{
	CategoryStickers, CategoryAvatars, CategoryPosters, CategoryColoring,
}

// Valid reports whether c is a known generation category.
func (c Category) Valid() bool {
	for _, v := range ValidCategories {
		if c == v {
			return true
		}
	}
	return false
}

// Output quality
type Quality string

const (
	QualityStandard Quality = "standard"
	QualityHigh     Quality = "high"
)

// Output dimensions
type Dimensions string

const (
	DimensionsSquare    Dimensions = "square"
	DimensionsPortrait  Dimensions = "portrait"
	DimensionsLandscape Dimensions = "landscape"
)

// Story themes
type StoryTheme string

const (
	ThemeAdventure  StoryTheme = "adventure"
	ThemeFriendship StoryTheme = "friendship"
	ThemeBedtime    StoryTheme = "bedtime"
	ThemeAnimals    StoryTheme = "animals"
	ThemeSpace      StoryTheme = "space"
)

var ValidStoryThemes = []StoryTheme{
	ThemeAdventure, ThemeFriendship, ThemeBedtime, ThemeAnimals, ThemeSpace,
}

// Valid reports whether t is a known story theme.
func (t StoryTheme) Valid() bool {
	for _, v := range ValidStoryThemes {
		if t == v {
			return true
		}
	}
	return false
}

// Story types
type StoryType string

const (
	StoryTypePicture StoryType = "picture-book"
	StoryTypeComic   StoryType = "comic"
	StoryTypeRhyming StoryType = "rhyming"
)
