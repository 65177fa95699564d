package services

import (
	"cmp"
	"slices"

	"bridgeus/app/models"
)

// FilterPosts returns the posts matching category, in input order. The input
// slice is never modified.
func FilterPosts(posts []models.Post, category string) []models.Post {
	out := make([]models.Post, 0, len(posts))
	for i := range posts {
		if posts[i].MatchesCategory(category) {
			out = append(out, posts[i])
		}
	}
	return out
}

// SortPosts returns a sorted copy of posts. Helpful and accuracy order
// descending by their counter; newest keeps input order. The sort is stable,
// so ties keep insertion order too.
func SortPosts(posts []models.Post, mode models.SortMode) []models.Post {
	out := slices.Clone(posts)
	switch mode {
	case models.SortHelpful:
		slices.SortStableFunc(out, func(a, b models.Post) int {
			return cmp.Compare(b.HelpfulCount, a.HelpfulCount)
		})
	case models.SortAccuracy:
		slices.SortStableFunc(out, func(a, b models.Post) int {
			return cmp.Compare(b.AccuracyScore, a.AccuracyScore)
		})
	}
	return out
}

// QueryPosts filters then sorts.
func QueryPosts(posts []models.Post, category string, mode models.SortMode) []models.Post {
	return SortPosts(FilterPosts(posts, category), mode)
}
