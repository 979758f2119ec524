package insights

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"channel-insights/internal/models"
)

const (
	shortTitleLimit  = 20 // characters
	mediumTitleLimit = 40
	minKeywordLength = 2
	topKeywordCount  = 5
)

// TitleBucket is the performance of videos whose titles fall in one length range.
type TitleBucket struct {
	Label    string  `json:"label"`
	Videos   int     `json:"videos"`
	AvgViews float64 `json:"avg_views"`
}

// Keyword is one title word and the views of the videos using it.
type Keyword struct {
	Word       string  `json:"word"`
	Uses       int     `json:"uses"`
	TotalViews int64   `json:"total_views"`
	AvgViews   float64 `json:"avg_views"`
}

type TitleAnalysis struct {
	Short       TitleBucket `json:"short"`
	Medium      TitleBucket `json:"medium"`
	Long        TitleBucket `json:"long"`
	TopKeywords []Keyword   `json:"top_keywords"`
}

// ComputeTitleAnalysis buckets videos by title length in characters (under
// 20, 20 to 40, 40 and over) and ranks lowercased title words by the total
// views of the videos that use them. Single-character words are ignored.
func ComputeTitleAnalysis(videos []models.VideoRecord) TitleAnalysis {
	buckets := [3]TitleBucket{
		{Label: "under 20 chars"},
		{Label: "20-40 chars"},
		{Label: "over 40 chars"},
	}
	var views [3]int64
	keywords := map[string]*Keyword{}

	for _, v := range videos {
		n := parseCount(v.ViewCount)

		i := 2
		switch length := utf8.RuneCountInString(v.Title); {
		case length < shortTitleLimit:
			i = 0
		case length < mediumTitleLimit:
			i = 1
		}
		buckets[i].Videos++
		views[i] += n

		for _, word := range strings.Fields(strings.ToLower(v.Title)) {
			if utf8.RuneCountInString(word) < minKeywordLength {
				continue
			}
			k, ok := keywords[word]
			if !ok {
				k = &Keyword{Word: word}
				keywords[word] = k
			}
			k.Uses++
			k.TotalViews += n
		}
	}

	for i := range buckets {
		buckets[i].AvgViews = math.Round(mean(float64(views[i]), buckets[i].Videos))
	}

	ranked := make([]Keyword, 0, len(keywords))
	for _, k := range keywords {
		k.AvgViews = math.Round(mean(float64(k.TotalViews), k.Uses))
		ranked = append(ranked, *k)
	}
	slices.SortFunc(ranked, func(a, b Keyword) int {
		if c := cmp.Compare(b.TotalViews, a.TotalViews); c != 0 {
			return c
		}
		return strings.Compare(a.Word, b.Word)
	})
	if len(ranked) > topKeywordCount {
		ranked = ranked[:topKeywordCount]
	}

	return TitleAnalysis{
		Short:       buckets[0],
		Medium:      buckets[1],
		Long:        buckets[2],
		TopKeywords: ranked,
	}
}
