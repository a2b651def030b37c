package eo

// Histogram is a per-scene pixel count for each SCL class code.
// Counts partition the scene exactly: they sum to Rows * Cols provided
// every pixel carries a code in 0..11, which holds for any Level-2A
// classification raster.
type Histogram [NumClasses]int

// Total returns the sum of all class counts.
func (h Histogram) Total() int {
	total := 0
	for _, n := range h {
		total += n
	}
	return total
}

// Valid returns the count of pixels carrying any code other than
// No Data (class 0).
func (h Histogram) Valid() int {
	return h.Total() - h[ClassNoData]
}

// Cloud returns the count of pixels in the cloud-probability classes.
// The range spans codes 7 through 10 inclusive: the three cloud
// probability tiers plus cirrus, matching the half-open 7:11 slice the
// quality thresholds were tuned against.
func (h Histogram) Cloud() int {
	return h[ClassCloudLow] + h[ClassCloudMedium] + h[ClassCloudHigh] + h[ClassCirrus]
}

// ClassHistogram counts the pixels of each SCL class in one scene.
// Codes outside the 0..11 enumeration are ignored, mirroring a count
// restricted to the known class list.
func ClassHistogram(g *ClassGrid) Histogram {
	var h Histogram
	for _, code := range g.Data {
		if int(code) < NumClasses {
			h[code]++
		}
	}
	return h
}
