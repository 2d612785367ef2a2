package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAverage(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		want    Summary
	}{
		{name: "no reviews", ratings: nil, want: Summary{}},
		{name: "single review", ratings: []int{4}, want: Summary{Average: 4, Count: 1}},
		{name: "rounds to one decimal", ratings: []int{5, 4, 4}, want: Summary{Average: 4.3, Count: 3}},
		{name: "exact half goes to even", ratings: []int{4, 4, 4, 5}, want: Summary{Average: 4.2, Count: 4}},
		{name: "exact half goes to even below", ratings: []int{3, 3, 3, 4}, want: Summary{Average: 3.2, Count: 4}},
		{name: "inexact half follows binary value", ratings: []int{5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 4, 4, 4, 4, 4, 4, 4, 4, 4, 3}, want: Summary{Average: 4.5, Count: 20}},
		{name: "two thirds", ratings: []int{1, 2, 2}, want: Summary{Average: 1.7, Count: 3}},
		{name: "all fives", ratings: []int{5, 5, 5, 5, 5}, want: Summary{Average: 5, Count: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Average(tt.ratings))
		})
	}
}
