package services

import (
	"fmt"
	"math"

	"livedhere/internal/models"
)

// Score carries both stored forms of the overall score. Exact is the mean of
// the ten category ratings at 2 decimal places; Display is that value rounded
// again to 1 decimal place. The double rounding matches the behavior
// downstream consumers already depend on, so both are kept.
type Score struct {
	Exact   float64
	Display float64
}

// AggregateScore validates the ten category ratings and derives the overall
// score. math.Round rounds half away from zero, which is the rule here.
func AggregateScore(r models.Ratings) (Score, error) {
	values := r.Values()
	sum := 0
	for i, v := range values {
		if v < 1 || v > 5 {
			return Score{}, &ValidationError{
				Field:   "ratings",
				Message: fmt.Sprintf("category %d must be between 1 and 5", i+1),
			}
		}
		sum += v
	}

	mean := float64(sum) / float64(len(values))
	exact := roundTo(mean, 2)
	return Score{
		Exact:   exact,
		Display: roundTo(exact, 1),
	}, nil
}

func roundTo(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
