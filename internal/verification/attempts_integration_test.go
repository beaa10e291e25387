//go:build integration

package verification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"certiva/pkg/testutil/containers"
)

type RedisLimiterSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	ctx   context.Context
}

func TestRedisLimiterSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLimiterSuite))
}

func (s *RedisLimiterSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.ctx = context.Background()
}

func (s *RedisLimiterSuite) SetupTest() {
	require.NoError(s.T(), s.redis.FlushAll(s.ctx))
}

func (s *RedisLimiterSuite) TestThrottle() {
	limiter := NewRedisLimiter(s.redis.Client, 3, time.Minute)

	s.Run("allows until the limit is reached", func() {
		for i := 0; i < 3; i++ {
			ok, err := limiter.Allow(s.ctx, "A123456")
			require.NoError(s.T(), err)
			assert.True(s.T(), ok)
			require.NoError(s.T(), limiter.RecordFailure(s.ctx, "A123456"))
		}

		ok, err := limiter.Allow(s.ctx, "A123456")
		require.NoError(s.T(), err)
		assert.False(s.T(), ok)
	})

	s.Run("counters are per id number", func() {
		ok, err := limiter.Allow(s.ctx, "B999999")
		require.NoError(s.T(), err)
		assert.True(s.T(), ok)
	})

	s.Run("clear resets the counter", func() {
		require.NoError(s.T(), limiter.Clear(s.ctx, "A123456"))
		ok, err := limiter.Allow(s.ctx, "A123456")
		require.NoError(s.T(), err)
		assert.True(s.T(), ok)
	})
}

func (s *RedisLimiterSuite) TestWindowExpiry() {
	limiter := NewRedisLimiter(s.redis.Client, 1, time.Second)

	require.NoError(s.T(), limiter.RecordFailure(s.ctx, "A123456"))
	ok, err := limiter.Allow(s.ctx, "A123456")
	require.NoError(s.T(), err)
	require.False(s.T(), ok)

	time.Sleep(1500 * time.Millisecond)

	ok, err = limiter.Allow(s.ctx, "A123456")
	require.NoError(s.T(), err)
	assert.True(s.T(), ok, "counter key expires with the window")
}
