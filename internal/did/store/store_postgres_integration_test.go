//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pixelgenesis/internal/did/models"
	"pixelgenesis/internal/did/store"
	id "pixelgenesis/pkg/domain"
	"pixelgenesis/pkg/platform/sentinel"
	"pixelgenesis/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "dids"))
}

func newRecord(subject string) models.Record {
	did := id.NewDID(id.DefaultDIDMethod)
	return models.Record{
		Subject:   subject,
		DID:       did,
		Document:  models.NewDocument(did, "zPublicKey"),
		SealedKey: []byte("sealed"),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestSaveIfAbsentConverges() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	results := make([]models.Record, goroutines)
	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, _, err := s.store.SaveIfAbsent(ctx, newRecord("user-1"))
			s.NoError(err)
			results[i] = rec
		}()
	}
	wg.Wait()

	for _, rec := range results {
		s.Equal(results[0].DID, rec.DID)
	}
	found, err := s.store.FindBySubject(ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(results[0].DID, found.DID)
	s.Equal(results[0].Document, found.Document)
}

func (s *PostgresStoreSuite) TestFindByDID() {
	ctx := context.Background()
	rec := newRecord("user-2")
	_, created, err := s.store.SaveIfAbsent(ctx, rec)
	s.Require().NoError(err)
	s.True(created)

	got, err := s.store.FindByDID(ctx, rec.DID)
	s.Require().NoError(err)
	s.Equal(rec.Subject, got.Subject)
	s.Equal(rec.SealedKey, got.SealedKey)

	_, err = s.store.FindByDID(ctx, id.NewDID(id.DefaultDIDMethod))
	s.ErrorIs(err, sentinel.ErrNotFound)
}
