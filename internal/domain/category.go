package domain

// Category is the coarse musical bucket a tag belongs to.
type Category string

// Known categories. CategoryOther is the fallback for tags that match no
// configured category keywords.
const (
	CategoryMetal        Category = "metal"
	CategoryRock         Category = "rock"
	CategoryElectronic   Category = "electronic"
	CategoryJazz         Category = "jazz"
	CategoryFolk         Category = "folk"
	CategoryPunk         Category = "punk"
	CategoryPop          Category = "pop"
	CategoryExperimental Category = "experimental"
	CategoryOther        Category = "other"
)

// Categories lists every category in the order they are matched against
// configured keywords. More specific buckets come first so "jazz metal"
// resolves to metal rather than jazz only by keyword priority, not by chance.
var Categories = []Category{
	CategoryMetal,
	CategoryRock,
	CategoryElectronic,
	CategoryJazz,
	CategoryFolk,
	CategoryPunk,
	CategoryPop,
	CategoryExperimental,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryMetal, CategoryRock, CategoryElectronic, CategoryJazz,
		CategoryFolk, CategoryPunk, CategoryPop, CategoryExperimental, CategoryOther:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}
