package model

// Term is a category or a location. Both are plain named entities.
type Term struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Taxonomy selects which term table an operation works on.
type Taxonomy string

// Taxonomies.
const (
	TaxonomyCategory Taxonomy = "category"
	TaxonomyLocation Taxonomy = "location"
)

// Valid reports whether t is a known taxonomy.
func (t Taxonomy) Valid() bool {
	return t == TaxonomyCategory || t == TaxonomyLocation
}
