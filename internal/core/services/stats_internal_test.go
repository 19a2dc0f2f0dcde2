package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	assert.Zero(t, median(nil))
	assert.Equal(t, 4.0, median([]float64{4}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))
	assert.InDelta(t, 4.6, percentile([]float64{1, 2, 3, 4, 5}, 90), 1e-9)
	assert.Zero(t, rate(3, 0))
}
