package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimits_GlobalBucketExhaustsThenRefuses(t *testing.T) {
	l := New(2, 100)
	assert.True(t, l.AllowGlobal())
	assert.True(t, l.AllowGlobal())
	assert.False(t, l.AllowGlobal())
}

func TestLimits_PerClientBucketsAreIndependent(t *testing.T) {
	l := New(1000, 1)
	assert.True(t, l.AllowClient("1.1.1.1"))
	assert.False(t, l.AllowClient("1.1.1.1"))
	assert.True(t, l.AllowClient("2.2.2.2"))
}

func TestLimits_QPSFloorsToOne(t *testing.T) {
	l := New(0, 0)
	assert.True(t, l.AllowGlobal())
	assert.False(t, l.AllowGlobal())
}
