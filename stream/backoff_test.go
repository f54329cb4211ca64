package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedBackoff(t *testing.T) {
	b := FixedBackoff{Delay: 2 * time.Second}
	assert.Equal(t, 2*time.Second, b.Next(1))
	assert.Equal(t, 2*time.Second, b.Next(100))
}

func TestFixedBackoffDefault(t *testing.T) {
	b := FixedBackoff{}
	assert.Equal(t, DefaultReconnectDelay, b.Next(1))
}

func TestExponentialBackoff(t *testing.T) {
	b := ExponentialBackoff{Base: time.Second, Max: 10 * time.Second}
	assert.Equal(t, time.Second, b.Next(1))
	assert.Equal(t, 2*time.Second, b.Next(2))
	assert.Equal(t, 4*time.Second, b.Next(3))
	assert.Equal(t, 8*time.Second, b.Next(4))
	assert.Equal(t, 10*time.Second, b.Next(5))
	assert.Equal(t, 10*time.Second, b.Next(20))
}

func TestExponentialBackoffDefaults(t *testing.T) {
	b := ExponentialBackoff{}
	assert.Equal(t, time.Second, b.Next(1))
	assert.Equal(t, time.Minute, b.Next(30))
}
