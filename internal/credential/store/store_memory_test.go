package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pixelgenesis/internal/credential/fingerprint"
	"pixelgenesis/internal/credential/models"
	id "pixelgenesis/pkg/domain"
	"pixelgenesis/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
}

func newCredential(holder id.DID, issuedAt time.Time) *models.Credential {
	credID := id.NewCredentialID()
	return &models.Credential{
		ID:          credID,
		HolderDID:   holder,
		IssuerDID:   id.NewDID(id.DefaultDIDMethod),
		Types:       []string{models.TypeVerifiableCredential},
		IssuedAt:    issuedAt,
		Status:      models.StatusActive,
		Claims:      map[string]any{"name": "Ann", "tags": []any{"a"}},
		Fingerprint: fingerprint.Compute([]byte(credID)),
		Anchor:      models.Anchored("0x01"),
	}
}

func (s *InMemoryStoreSuite) TestSaveAndFind() {
	ctx := context.Background()
	c := newCredential(id.NewDID(id.DefaultDIDMethod), time.Now().UTC())
	s.Require().NoError(s.store.Save(ctx, c))

	byID, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c, byID)

	byFP, err := s.store.FindByFingerprint(ctx, c.Fingerprint)
	s.Require().NoError(err)
	s.Equal(c.ID, byFP.ID)
}

func (s *InMemoryStoreSuite) TestSaveRejectsDuplicates() {
	ctx := context.Background()
	c := newCredential(id.NewDID(id.DefaultDIDMethod), time.Now().UTC())
	s.Require().NoError(s.store.Save(ctx, c))

	sameID := newCredential(c.HolderDID, c.IssuedAt)
	sameID.ID = c.ID
	s.ErrorIs(s.store.Save(ctx, sameID), sentinel.ErrConflict)

	sameFP := newCredential(c.HolderDID, c.IssuedAt)
	sameFP.Fingerprint = c.Fingerprint
	s.ErrorIs(s.store.Save(ctx, sameFP), sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestMisses() {
	ctx := context.Background()
	_, err := s.store.FindByID(ctx, "vc:missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByFingerprint(ctx, fingerprint.Compute([]byte("x")))
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.UpdateStatus(ctx, "vc:missing", models.StatusUpdate{Status: models.StatusRevoked})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestReturnedRecordsAreCopies() {
	ctx := context.Background()
	c := newCredential(id.NewDID(id.DefaultDIDMethod), time.Now().UTC())
	s.Require().NoError(s.store.Save(ctx, c))

	c.Claims["name"] = "Mallory"
	got, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal("Ann", got.Claims["name"])

	got.Types[0] = "Other"
	got.Claims["tags"].([]any)[0] = "z"
	again, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.TypeVerifiableCredential, again.Types[0])
	s.Equal("a", again.Claims["tags"].([]any)[0])
}

func (s *InMemoryStoreSuite) TestFindByHolderDIDNewestFirst() {
	ctx := context.Background()
	holder := id.NewDID(id.DefaultDIDMethod)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	older := newCredential(holder, base)
	newer := newCredential(holder, base.Add(time.Hour))
	other := newCredential(id.NewDID(id.DefaultDIDMethod), base)
	for _, c := range []*models.Credential{older, newer, other} {
		s.Require().NoError(s.store.Save(ctx, c))
	}

	got, err := s.store.FindByHolderDID(ctx, holder)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(newer.ID, got[0].ID)
	s.Equal(older.ID, got[1].ID)

	none, err := s.store.FindByHolderDID(ctx, id.NewDID(id.DefaultDIDMethod))
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *InMemoryStoreSuite) TestUpdateStatusIsForwardOnly() {
	ctx := context.Background()
	c := newCredential(id.NewDID(id.DefaultDIDMethod), time.Now().UTC())
	s.Require().NoError(s.store.Save(ctx, c))

	revoked, err := s.store.UpdateStatus(ctx, c.ID, models.StatusUpdate{
		Status: models.StatusRevoked,
		Anchor: models.Pending(models.AnchorOpRevoke, c.Anchor.TxRef),
	})
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, revoked.Status)
	s.True(revoked.Anchor.IsPending())

	again, err := s.store.UpdateStatus(ctx, c.ID, models.StatusUpdate{
		Status: models.StatusRevoked,
		Anchor: models.Anchored("0x02"),
	})
	s.Require().NoError(err)
	s.Equal("0x02", again.Anchor.TxRef)

	_, err = s.store.UpdateStatus(ctx, c.ID, models.StatusUpdate{Status: models.StatusActive, Anchor: models.Anchored("0x03")})
	s.ErrorIs(err, sentinel.ErrInvalidState)

	final, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, final.Status)
	s.Equal("0x02", final.Anchor.TxRef)
}

func (s *InMemoryStoreSuite) TestUpdateStatusFromIsCompareAndSet() {
	ctx := context.Background()
	c := newCredential(id.NewDID(id.DefaultDIDMethod), time.Now().UTC())
	s.Require().NoError(s.store.Save(ctx, c))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.UpdateStatus(ctx, c.ID, models.StatusUpdate{
				From:   models.StatusActive,
				Status: models.StatusRevoked,
				Anchor: models.Pending(models.AnchorOpRevoke, fmt.Sprintf("0x%02x", i)),
			})
			if err == nil {
				wins.Add(1)
				return
			}
			s.ErrorIs(err, sentinel.ErrInvalidState)
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())

	_, err := s.store.UpdateStatus(ctx, c.ID, models.StatusUpdate{
		From:   models.StatusActive,
		Status: models.StatusActive,
		Anchor: models.Anchored("0xff"),
	})
	s.ErrorIs(err, sentinel.ErrInvalidState)
	got, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, got.Status)
	s.NotEqual("0xff", got.Anchor.TxRef)
}

func (s *InMemoryStoreSuite) TestListPendingAnchors() {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.store.now = func() time.Time { return now }

	var pending []id.CredentialID
	for i := range 3 {
		c := newCredential(id.NewDID(id.DefaultDIDMethod), now)
		c.Anchor = models.Pending(models.AnchorOpRegister, "")
		now = now.Add(time.Second)
		s.Require().NoError(s.store.Save(ctx, c), "credential %d", i)
		pending = append(pending, c.ID)
	}
	s.Require().NoError(s.store.Save(ctx, newCredential(id.NewDID(id.DefaultDIDMethod), now)))

	got, err := s.store.ListPendingAnchors(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(pending[0], got[0].ID)
	s.Equal(pending[1], got[1].ID)

	all, err := s.store.ListPendingAnchors(ctx, 0)
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *InMemoryStoreSuite) TestConcurrentRevokesConverge() {
	ctx := context.Background()
	c := newCredential(id.NewDID(id.DefaultDIDMethod), time.Now().UTC())
	s.Require().NoError(s.store.Save(ctx, c))

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.UpdateStatus(ctx, c.ID, models.StatusUpdate{
				Status: models.StatusRevoked,
				Anchor: models.Anchored(fmt.Sprintf("0x%02x", i)),
			})
			if err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Zero(failures.Load())
	got, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, got.Status)
}
