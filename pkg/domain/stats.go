package domain

// CountyYieldStats is the yield aggregate of one county.
type CountyYieldStats struct {
	State      string
	County     string
	AvgYield   float64
	StdYield   float64
	FieldCount int
}

func (s *CountyYieldStats) Equal(o *CountyYieldStats) bool {
	if (s == nil) || (o == nil) {
		return (s == nil) && (o == nil)
	}
	return *s == *o
}

// Ranking places one yield value among the observed yields of a region.
type Ranking struct {
	Percentile float64
	Above      int
	Below      int
	Mean       float64
	Std        float64
	Count      int
}

// VarietyPerformance is the observed yield aggregate of one variety.
//
// CV is the coefficient of variation (std / mean); smaller is steadier.
type VarietyPerformance struct {
	Crop       string
	Variety    string
	MeanYield  float64
	StdYield   float64
	N          int
	CV         float64
}

func (v *VarietyPerformance) Equal(o *VarietyPerformance) bool {
	if (v == nil) || (o == nil) {
		return (v == nil) && (o == nil)
	}
	return *v == *o
}
