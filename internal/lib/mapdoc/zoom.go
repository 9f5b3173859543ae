package mapdoc

// zoomStep maps an upper distance bound (inclusive) to a zoom level
type zoomStep struct {
	maxKm float64
	zoom  int
}

var zoomTable = []zoomStep{
	{1, 15},
	{5, 13},
	{10, 12},
	{25, 11},
	{50, 10},
	{100, 9},
}

const (
	farZoom = 8

	// Used when there is nothing to measure against, i.e. no user location.
	singlePointZoom = 13
)

// ZoomForDistance picks the initial zoom for two points km apart. A distance
// exactly on a bucket edge belongs to the nearer bucket, so the end buckets are
// closed: exactly 1 km is still 15 and exactly 100 km is still 9 rather than
// the widest view. NaN gets the widest view.
func ZoomForDistance(km float64) int {
	for _, step := range zoomTable {
		if km <= step.maxKm {
			return step.zoom
		}
	}
	return farZoom
}
