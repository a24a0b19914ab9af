// Package recommend ranks unread books against a reader's library and runs
// the pipeline that feeds it candidates from the library or the catalog.
package recommend

import (
	"cmp"
	"slices"

	"readtrac/internal/book"
)

// Ranking policy. These are fixed business rules.
const (
	// LikedThreshold is the minimum rating that marks a book as liked.
	LikedThreshold = 4.0
	// DefaultLimit applies when the caller passes limit <= 0.
	DefaultLimit = 5
)

// Stage names reported with each pick.
const (
	StagePreferredGenre = "preferred_genre"
	StageFavoriteAuthor = "favorite_author"
	StageReadGenre      = "read_genre"
	StageTopRated       = "top_rated"
)

type stage struct {
	name  string
	match func(book.Book) bool
}

// Pick is a ranked book and the stage that selected it.
type Pick struct {
	book.Book
	Reason string `json:"reason"`
}

type profile struct {
	preferredGenres map[string]struct{}
	favoriteAuthors map[string]struct{}
	allGenres       map[string]struct{}
	read            map[string]struct{}
}

func buildProfile(history []book.Book) profile {
	p := profile{
		preferredGenres: map[string]struct{}{},
		favoriteAuthors: map[string]struct{}{},
		allGenres:       map[string]struct{}{},
		read:            make(map[string]struct{}, len(history)),
	}
	for _, b := range history {
		p.read[b.Identity()] = struct{}{}
		if b.Genre != "" {
			p.allGenres[b.Genre] = struct{}{}
		}
		if b.Rating == nil || *b.Rating < LikedThreshold {
			continue
		}
		if b.Genre != "" {
			p.preferredGenres[b.Genre] = struct{}{}
		}
		if b.Author != "" {
			p.favoriteAuthors[b.Author] = struct{}{}
		}
	}
	return p
}

func member(set map[string]struct{}, key string) bool {
	if key == "" {
		return false
	}
	_, ok := set[key]
	return ok
}

// stages returns the selection predicates in priority order. The last stage
// accepts everything; Rank orders its input by rating first.
func (p profile) stages() []stage {
	return []stage{
		{StagePreferredGenre, func(b book.Book) bool { return member(p.preferredGenres, b.Genre) }},
		{StageFavoriteAuthor, func(b book.Book) bool { return member(p.favoriteAuthors, b.Author) }},
		{StageReadGenre, func(b book.Book) bool { return member(p.allGenres, b.Genre) }},
		{StageTopRated, func(book.Book) bool { return true }},
	}
}

// Rank returns up to limit candidates the reader has not read yet, filled
// stage by stage: books in genres the reader rated highly, books by authors
// the reader rated highly, books in any genre the reader has read, then the
// rest by descending rating. An empty history yields an empty result.
func Rank(history, candidates []book.Book, limit int) []book.Book {
	picks := RankPicks(history, candidates, limit)
	out := make([]book.Book, len(picks))
	for i, p := range picks {
		out[i] = p.Book
	}
	return out
}

// RankPicks is Rank with the selecting stage attached to every book.
func RankPicks(history, candidates []book.Book, limit int) []Pick {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(history) == 0 {
		return []Pick{}
	}

	p := buildProfile(history)
	selected := make(map[string]struct{}, limit)
	out := make([]Pick, 0, limit)

	stages := p.stages()
	for i, st := range stages {
		if len(out) >= limit {
			break
		}
		pool := candidates
		if i == len(stages)-1 {
			pool = slices.Clone(candidates)
			slices.SortStableFunc(pool, func(a, b book.Book) int {
				return cmp.Compare(b.RatingValue(), a.RatingValue())
			})
		}
		for _, c := range pool {
			if len(out) >= limit {
				break
			}
			id := c.Identity()
			if _, ok := p.read[id]; ok {
				continue
			}
			if _, ok := selected[id]; ok {
				continue
			}
			if !st.match(c) {
				continue
			}
			selected[id] = struct{}{}
			out = append(out, Pick{Book: c, Reason: st.name})
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
