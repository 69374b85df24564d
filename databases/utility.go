package databases

import "go.mongodb.org/mongo-driver/mongo/options"

const (
	maxPageSize = 200
	// maxPage keeps page*limit far away from overflowing
	maxPage = 1 << 20
)

type mongoPaginate struct {
	limit int64
	page  int64
}

// newMongoPaginate clamps limit to (0, maxPageSize] and page to [1, maxPage]
func newMongoPaginate(limit, page int) *mongoPaginate {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	return &mongoPaginate{
		limit: int64(limit),
		page:  int64(page),
	}
}

func (mp *mongoPaginate) getPaginatedOpts() *options.FindOptions {
	l := mp.limit
	skip := mp.page*mp.limit - mp.limit
	fOpt := options.FindOptions{Limit: &l, Skip: &skip}

	return &fOpt
}

// window returns the slice bounds of the page within n items
func (mp *mongoPaginate) window(n int) (int, int) {
	start := int(mp.page*mp.limit - mp.limit)
	if start > n {
		start = n
	}
	end := start + int(mp.limit)
	if end > n {
		end = n
	}
	return start, end
}
