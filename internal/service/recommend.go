package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"snapboard/internal/apperr"
	"snapboard/internal/models"
)

const (
	defaultRecommendLimit = 12
	maxRecommendLimit     = 50

	tagMatchScore   = 2
	titleWordScore  = 1
	minTitleWordLen = 3 // title tokens shorter than this are not significant
)

// Recommend scores every candidate that shares a tag or a significant title
// word with the source asset, ranks by score (creation time breaks ties,
// newer first) and truncates to limit.
//
// The storage query is only a coarse superset filter; the exact gate is the
// in-process scoring below. This is a deliberate full scan over candidates:
// the ranking contract depends on it, and it is fine at personal-board scale.
func (s *Service) Recommend(ctx context.Context, assetID uuid.UUID, limit int, viewerID uuid.UUID) (*models.RecommendationResponse, error) {
	const op = "service.Recommend"

	if limit <= 0 {
		limit = defaultRecommendLimit
	}
	if limit > maxRecommendLimit {
		limit = maxRecommendLimit
	}

	src, err := s.store.GetImage(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("image: %w", apperr.ErrNotFound)
	}

	resp := &models.RecommendationResponse{
		Items: []models.RankedAsset{},
		SourceImage: models.SourceSummary{
			ID:    src.ID,
			Title: src.Title,
			Tags:  src.Tags,
		},
	}

	words := significantWords(src.Title)
	if len(src.Tags) == 0 && len(words) == 0 {
		// No features to score on; an empty result, not an error.
		return resp, nil
	}

	patterns := make([]string, len(words))
	for i, w := range words {
		patterns[i] = "%" + w + "%"
	}

	candidates, err := s.store.FindCandidates(ctx, src.ID, src.Tags, patterns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	type scored struct {
		img         models.Image
		score       int
		matchedTags []string
	}
	matches := make([]scored, 0, len(candidates))
	for _, cand := range candidates {
		score, matched := scoreCandidate(src.Tags, words, &cand)
		if score > 0 {
			matches = append(matches, scored{img: cand, score: score, matchedTags: matched})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].img.CreatedAt.After(matches[j].img.CreatedAt)
	})

	resp.TotalMatches = len(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}

	cache := newRefCache()
	for _, m := range matches {
		asset, err := s.buildAsset(ctx, &m.img, viewerID, cache)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		resp.Items = append(resp.Items, models.RankedAsset{
			AssetResponse: asset,
			Score:         m.score,
			MatchedTags:   m.matchedTags,
		})
	}
	return resp, nil
}

// scoreCandidate awards +2 per shared tag and +1 per significant source
// title word appearing as a substring of the candidate's lowercased title,
// and reports which source tags matched.
func scoreCandidate(sourceTags, titleWords []string, cand *models.Image) (int, []string) {
	score := 0
	matched := []string{}

	for _, tag := range sourceTags {
		for _, ct := range cand.Tags {
			if ct == tag {
				score += tagMatchScore
				matched = append(matched, tag)
				break
			}
		}
	}

	candTitle := strings.ToLower(cand.Title)
	for _, word := range titleWords {
		if strings.Contains(candTitle, word) {
			score += titleWordScore
		}
	}
	return score, matched
}

// significantWords lowercases the title, splits on whitespace and keeps
// tokens of at least minTitleWordLen runes.
func significantWords(title string) []string {
	fields := strings.Fields(strings.ToLower(title))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTitleWordLen {
			words = append(words, f)
		}
	}
	return words
}
