package services

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"bridgeus/app/models"
	"bridgeus/app/seed"
)

// Ranges of the randomised fields of a generated post, as [min, max).
const (
	minAccuracy = 80
	maxAccuracy = 95
	minHelpful  = 20
	maxHelpful  = 170
	minReplies  = 5
	maxReplies  = 55
)

// Generated posts look between one hour and ten months old.
var timestampUnits = []string{"hour", "day", "week", "month"}

const maxTimestampValue = 10

// Generator manufactures feed posts by cycling through a fixed template
// list. Template choice and ids depend only on the index; scores and the
// timestamp are random.
type Generator struct {
	templates []seed.Template
	seedCount int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator for a store seeded with seedCount posts.
// A nil rng draws from a randomly seeded PCG source.
func NewGenerator(templates []seed.Template, seedCount int, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{
		templates: templates,
		seedCount: seedCount,
		rng:       rng,
	}
}

// SeedCount is the number of fixed posts ids are numbered after.
func (g *Generator) SeedCount() int {
	return g.seedCount
}

// Generate returns count posts. Post i uses template (startIndex+i) modulo
// the template count and gets id post-(seedCount+startIndex+i+1), so the
// first generated post after eight seeds is post-9.
func (g *Generator) Generate(startIndex, count int) []models.Post {
	if count <= 0 || len(g.templates) == 0 {
		return nil
	}
	if startIndex < 0 {
		startIndex = 0
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	posts := make([]models.Post, 0, count)
	for i := 0; i < count; i++ {
		idx := startIndex + i
		tpl := g.templates[idx%len(g.templates)]
		posts = append(posts, models.Post{
			ID:            fmt.Sprintf("post-%d", g.seedCount+idx+1),
			Title:         tpl.Title,
			Preview:       tpl.Preview,
			Tags:          append([]string(nil), tpl.Tags...),
			Author:        tpl.Author,
			AccuracyScore: g.between(minAccuracy, maxAccuracy),
			HelpfulCount:  g.between(minHelpful, maxHelpful),
			ReplyCount:    g.between(minReplies, maxReplies),
			Timestamp:     g.timestamp(),
		})
	}
	return posts
}

func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo)
}

// timestamp renders a relative time such as "1 week ago" or "7 days ago".
func (g *Generator) timestamp() string {
	unit := timestampUnits[g.rng.IntN(len(timestampUnits))]
	n := 1 + g.rng.IntN(maxTimestampValue)
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
