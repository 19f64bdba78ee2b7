package state

import (
	"cmp"
	"slices"
	"unicode/utf8"

	"restaurantfinder/internal/model"
)

// SortBusinesses returns a stably sorted copy of businesses.
// Price tiers compare by symbol count, so "$$" sorts after "$" and a
// missing price counts as zero.
func SortBusinesses(businesses []model.Business, by model.SortCriteria) []model.Business {
	sorted := slices.Clone(businesses)
	if sorted == nil {
		sorted = []model.Business{}
	}

	var compare func(a, b model.Business) int
	switch by {
	case model.SortByRating:
		compare = func(a, b model.Business) int { return cmp.Compare(b.Rating, a.Rating) }
	case model.SortByReviewCount:
		compare = func(a, b model.Business) int { return cmp.Compare(b.ReviewCount, a.ReviewCount) }
	case model.SortByDistance:
		compare = func(a, b model.Business) int { return cmp.Compare(a.Distance, b.Distance) }
	case model.SortByPriceAsc:
		compare = func(a, b model.Business) int { return cmp.Compare(utf8.RuneCountInString(a.Price), utf8.RuneCountInString(b.Price)) }
	case model.SortByPriceDesc:
		compare = func(a, b model.Business) int { return cmp.Compare(utf8.RuneCountInString(b.Price), utf8.RuneCountInString(a.Price)) }
	default:
		return sorted
	}

	slices.SortStableFunc(sorted, compare)
	return sorted
}
