//go:build integration

package owner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"certiva/pkg/platform/sentinel"
	"certiva/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresStore
	ctx   context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgres(s.pg.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) SetupTest() {
	require.NoError(s.T(), s.pg.TruncateAll(s.ctx))
}

func (s *PostgresStoreSuite) TestUpsert() {
	created := time.Now().UTC().Truncate(time.Microsecond)

	s.Run("inserts a new profile", func() {
		stored, err := s.store.Upsert(s.ctx, Profile{
			IDNo: "A123456", FullName: "Amina Yusuf", Mobile: "+254700000001",
			Email: "amina@example.com", CreatedAt: created,
		})
		require.NoError(s.T(), err)
		assert.Equal(s.T(), "Amina Yusuf", stored.FullName)
		assert.True(s.T(), created.Equal(stored.CreatedAt))
	})

	s.Run("re-registering overwrites contact fields but keeps created_at", func() {
		later := created.Add(time.Hour)
		stored, err := s.store.Upsert(s.ctx, Profile{
			IDNo: "A123456", FullName: "Amina Y. Hassan", Mobile: "+254700000002",
			Email: "amina.h@example.com", CreatedAt: later,
		})
		require.NoError(s.T(), err)
		assert.Equal(s.T(), "Amina Y. Hassan", stored.FullName)
		assert.Equal(s.T(), "+254700000002", stored.Mobile)
		assert.True(s.T(), created.Equal(stored.CreatedAt), "conflict path does not touch created_at")
	})
}

func (s *PostgresStoreSuite) TestFindByIDNo() {
	_, err := s.store.Upsert(s.ctx, Profile{IDNo: "A123456", FullName: "Amina Yusuf", CreatedAt: time.Now().UTC()})
	require.NoError(s.T(), err)

	s.Run("finds a stored profile", func() {
		got, err := s.store.FindByIDNo(s.ctx, "A123456")
		require.NoError(s.T(), err)
		assert.Equal(s.T(), "Amina Yusuf", got.FullName)
	})

	s.Run("unknown id number reports not found", func() {
		_, err := s.store.FindByIDNo(s.ctx, "Z000000")
		assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
	})

	s.Run("count reflects stored profiles", func() {
		count, err := s.store.Count(s.ctx)
		require.NoError(s.T(), err)
		assert.Equal(s.T(), 1, count)
	})
}

func (s *PostgresStoreSuite) TestDelete() {
	_, err := s.store.Upsert(s.ctx, Profile{IDNo: "A123456", CreatedAt: time.Now().UTC()})
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.store.Delete(s.ctx, "A123456"))

	_, err = s.store.FindByIDNo(s.ctx, "A123456")
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)

	assert.ErrorIs(s.T(), s.store.Delete(s.ctx, "A123456"), sentinel.ErrNotFound)
}
