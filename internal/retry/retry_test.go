package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStrategy(t *testing.T) {
	s := Strategy(3)
	assert.Equal(t, 3, s.Attempts)
	assert.EqualValues(t, 200*time.Millisecond, s.Delay)
	assert.EqualValues(t, 2, s.Backoff)

	assert.Equal(t, 1, Strategy(0).Attempts)
	assert.Equal(t, 1, Strategy(-4).Attempts)
}
