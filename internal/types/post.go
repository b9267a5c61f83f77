package types

// StatusPublished is the status written to every stored post.
const StatusPublished = "published"

// Translation is one language version of a post.
type Translation struct {
	Title   string `json:"title"   bson:"title"`
	Content string `json:"content" bson:"content"`
}

// Translations holds the bilingual copy of a post.
type Translations struct {
	DE Translation `json:"de" bson:"de"`
	EN Translation `json:"en" bson:"en"`
}

// PostMedia is the media block of a published post.
type PostMedia struct {
	Images       []string `json:"images"       bson:"images"`
	VideoURL     string   `json:"videoUrl"     bson:"videoUrl"`
	ExternalLink string   `json:"externalLink" bson:"externalLink"`
}

// Post is a published post record. The JSON shape is shared with the
// site front-end and must not change.
type Post struct {
	ID           string       `json:"id"           bson:"id"`
	Title        string       `json:"title"        bson:"title"`
	Description  string       `json:"description"  bson:"description"`
	Translations Translations `json:"translations" bson:"translations"`
	Type         string       `json:"type"         bson:"type"`
	Content      string       `json:"content"      bson:"content"`
	Media        PostMedia    `json:"media"        bson:"media"`
	Source       string       `json:"source"       bson:"source"`
	OriginalURL  string       `json:"originalUrl"  bson:"originalUrl"`
	Date         string       `json:"date"         bson:"date"`
	Tags         []string     `json:"tags"         bson:"tags"`
	Status       string       `json:"status"       bson:"status"`
}
