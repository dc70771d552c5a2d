package ranking

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/FACorreiaa/go-trip-itinerary-planner/config"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/intent"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/poi"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/types"
)

const defaultOutputCap = 50

// Ranker merges the two retrieval channels into one ranked candidate list.
type Ranker struct {
	cfg config.RankingConfig
}

// NewRanker uses the shipped defaults when cfg is the zero value.
func NewRanker(cfg config.RankingConfig) *Ranker {
	if cfg == (config.RankingConfig{}) {
		cfg = config.DefaultRanking()
	}
	if cfg.OutputCap <= 0 {
		cfg.OutputCap = defaultOutputCap
	}
	return &Ranker{cfg: cfg}
}

// Fuse scores every candidate, collapses duplicates by id keeping the highest score and
// its channel, and returns at most OutputCap candidates in descending score order. Ties
// keep structured-first input order.
func (r *Ranker) Fuse(structured, semantic []types.PlaceCandidate, trip types.TripIntent) []types.ScoredCandidate {
	reqs := parseRequirements(trip.SpecialRequirements)

	out := make([]types.ScoredCandidate, 0, len(structured)+len(semantic))
	index := make(map[string]int, len(structured)+len(semantic))
	add := func(candidates []types.PlaceCandidate, channel types.Channel, base float64) {
		for rank, c := range candidates {
			score := base - r.cfg.RankPenalty*float64(rank) + r.contentScore(c, trip.Themes, reqs)
			if i, seen := index[c.ID]; seen {
				if score > out[i].Score {
					out[i].Score = score
					out[i].SourceChannel = channel
				}
				continue
			}
			index[c.ID] = len(out)
			out = append(out, types.ScoredCandidate{PlaceCandidate: c, Score: score, SourceChannel: channel})
		}
	}
	add(structured, types.ChannelStructured, r.cfg.StructuredBase)
	add(semantic, types.ChannelSemantic, r.cfg.SemanticBase)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > r.cfg.OutputCap {
		out = out[:r.cfg.OutputCap]
	}
	return out
}

func (r *Ranker) contentScore(c types.PlaceCandidate, themes []string, reqs []requirement) float64 {
	score := 0.0
	if c.Rating != nil {
		score += r.cfg.RatingWeight * *c.Rating
	}
	if len(themes) > 0 {
		matched := 0
		for _, theme := range themes {
			if poi.MatchesTheme(c, theme) {
				matched++
			}
		}
		score += r.cfg.ThemeWeight * float64(matched) / float64(len(themes))
	}

	eco := false
	for _, req := range reqs {
		if req.matches(c) {
			score += r.cfg.RequirementWeight
		}
		eco = eco || req.class == classEco
	}
	if eco && isEco(c) {
		score += r.cfg.EcoBoost
	}
	return score
}

const (
	classEco           = "eco"
	classPhotography   = "photography"
	classCulture       = "culture"
	classFamily        = "family"
	classFood          = "food"
	classAccessibility = "accessibility"
)

// requirementExpansions maps phrases in a requirement onto a class and the tag and name
// keywords that satisfy it.
var requirementExpansions = []struct {
	class    string
	triggers intent.KeywordSet
	keywords []string
}{
	{classEco,
		intent.NewKeywordSet("eco", "ecological", "ecotourism", "green", "sustainable", "sustainability", "environmental", "環保", "生態", "永續", "低碳"),
		[]string{"eco", "sustainable", "green", "organic", "nature_reserve", "wetland", "farm", "生態", "環保"}},
	{classPhotography,
		intent.NewKeywordSet("photo", "photography", "photogenic", "instagram", "instagrammable", "拍照", "攝影", "打卡"),
		[]string{"photo", "photogenic", "viewpoint", "scenic", "landmark", "sunset", "instagram"}},
	{classCulture,
		intent.NewKeywordSet("culture", "cultural", "history", "historic", "historical", "heritage", "in-depth", "authentic", "歷史", "文化", "深度", "古蹟"),
		[]string{"culture", "cultural", "heritage", "historic", "history", "museum", "temple", "old_street"}},
	{classFamily,
		intent.NewKeywordSet("family", "kid", "child", "children", "親子", "小孩", "兒童"),
		[]string{"family", "kid", "playground", "zoo", "amusement_park", "farm"}},
	{classFood,
		intent.NewKeywordSet("vegetarian", "vegan", "food", "素"),
		[]string{"vegetarian", "vegan", "restaurant", "food", "street_food", "night_market"}},
	{classAccessibility,
		intent.NewKeywordSet("wheelchair", "accessible", "accessibility", "無障礙", "輪椅"),
		[]string{"wheelchair", "accessible", "barrier_free", "無障礙"}},
}

// ecoTags mark a candidate as eco-oriented when it is not certified.
var ecoTags = intent.NewKeywordSet("eco", "ecological", "eco-friendly", "ecotourism", "sustainable", "sustainability", "生態", "環保", "永續")

type requirement struct {
	class    string
	keywords intent.KeywordSet
}

var requirementSplitRe = regexp.MustCompile(`[,，;；、]|\band\b`)

var requirementStopwords = map[string]bool{"friendly": true, "the": true, "with": true, "for": true, "please": true}

// parseRequirements turns the free-text requirement list into matchable requirements.
// Each part keeps its own words as keywords besides those of its class.
func parseRequirements(text string) []requirement {
	var reqs []requirement
	for _, part := range requirementSplitRe.Split(strings.ToLower(text), -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var req requirement
		var keywords []string
		for _, e := range requirementExpansions {
			if e.triggers.Match(part) {
				req.class = e.class
				keywords = append(keywords, e.keywords...)
				break
			}
		}
		for _, word := range strings.FieldsFunc(part, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsNumber(r) }) {
			if len(word) >= 3 && !requirementStopwords[word] {
				keywords = append(keywords, word)
			}
		}
		if len(keywords) > 0 {
			req.keywords = intent.NewKeywordSet(keywords...)
			reqs = append(reqs, req)
		}
	}
	return reqs
}

func (r requirement) matches(c types.PlaceCandidate) bool {
	if r.class == classEco && c.EcoCertified {
		return true
	}
	if r.keywords.Match(strings.ToLower(c.Name)) {
		return true
	}
	for _, t := range c.Tags {
		if r.keywords.Match(strings.ToLower(t)) {
			return true
		}
	}
	for _, cat := range c.Categories {
		if r.keywords.Match(strings.ToLower(cat)) {
			return true
		}
	}
	return false
}

func isEco(c types.PlaceCandidate) bool {
	if c.EcoCertified {
		return true
	}
	for _, t := range c.Tags {
		if ecoTags.Match(strings.ToLower(t)) {
			return true
		}
	}
	return false
}
