package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// AllCategories is the category selector value that disables filtering.
const AllCategories = "all"

// PreviewLength is the number of characters kept in a generated preview.
const PreviewLength = 160

// SortMode selects the ordering of a feed.
type SortMode string

const (
	SortNewest   SortMode = "newest"
	SortHelpful  SortMode = "helpful"
	SortAccuracy SortMode = "accuracy"
)

// ParseSortMode maps a selector token to a SortMode. Unknown tokens fall back
// to SortNewest.
func ParseSortMode(s string) SortMode {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case SortHelpful:
		return SortHelpful
	case SortAccuracy:
		return SortAccuracy
	default:
		return SortNewest
	}
}

// Categories returns the fixed list offered by the category selector.
func Categories() []Category {
	return []Category{
		{ID: AllCategories, Label: "All Posts"},
		{ID: "visa", Label: "Visa & Immigration"},
		{ID: "housing", Label: "Housing"},
		{ID: "health", Label: "Health & Insurance"},
		{ID: "campus", Label: "Campus Life"},
		{ID: "work", Label: "Work & Internships"},
		{ID: "trending", Label: "Trending"},
	}
}

// Validate checks if the post meets all validation requirements
func (p *Post) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	if !strings.HasPrefix(p.ID, "post-") {
		return errors.New("id must start with post-")
	}
	return nil
}

// Clone returns a copy of the post that shares no memory with p.
func (p Post) Clone() Post {
	if p.Tags != nil {
		p.Tags = append([]string(nil), p.Tags...)
	}
	return p
}

// MatchesCategory reports whether any tag contains category, ignoring case.
// The "all" selector and the empty selector match every post.
func (p *Post) MatchesCategory(category string) bool {
	if category == "" || category == AllCategories {
		return true
	}
	needle := strings.ToLower(category)
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// Validate checks the submitted fields of a new post.
func (in *PostInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	if strings.TrimSpace(in.Author.Name) == "" {
		return errors.New("author name is required")
	}
	return nil
}

// Validate checks if the reply meets all validation requirements
func (r *Reply) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.CreatedAt.IsZero() {
		return errors.New("created_at cannot be zero")
	}
	return nil
}

// BeforeCreate sets up any necessary fields before creation
func (r *Reply) BeforeCreate() {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
}

var (
	markdownImage = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	markdownLink  = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	markdownChars = regexp.MustCompile("[`*_>#-]")
	whitespace    = regexp.MustCompile(`\s+`)
)

// BuildPreview flattens post content into a single line of plain text and
// truncates it to PreviewLength characters followed by "...".
func BuildPreview(content string) string {
	plain := strings.TrimSpace(content)
	if plain == "" {
		return ""
	}
	plain = markdownImage.ReplaceAllString(plain, "")
	plain = markdownLink.ReplaceAllString(plain, "$1")
	plain = markdownChars.ReplaceAllString(plain, "")
	plain = strings.TrimSpace(whitespace.ReplaceAllString(plain, " "))

	runes := []rune(plain)
	if len(runes) > PreviewLength {
		return string(runes[:PreviewLength]) + "..."
	}
	return plain
}
