package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"pixelgenesis/internal/credential/proof"
	"pixelgenesis/internal/did/keyseal"
	"pixelgenesis/internal/did/models"
	"pixelgenesis/internal/did/store"
	id "pixelgenesis/pkg/domain"
	dErrors "pixelgenesis/pkg/domain-errors"
	"pixelgenesis/pkg/platform/audit"
	auditmemory "pixelgenesis/pkg/platform/audit/store/memory"
)

type auditRecorder struct {
	store *auditmemory.InMemoryStore
}

func (r auditRecorder) Emit(ctx context.Context, e audit.Event) error {
	return r.store.Append(ctx, e)
}

type ServiceSuite struct {
	suite.Suite
	store  *store.InMemoryStore
	audits *auditmemory.InMemoryStore
	svc    *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	sealer, err := keyseal.New("test-secret")
	s.Require().NoError(err)
	s.store = store.NewInMemoryStore()
	s.audits = auditmemory.NewInMemoryStore()
	s.svc = New(s.store, sealer, WithAuditPublisher(auditRecorder{store: s.audits}))
}

func (s *ServiceSuite) TestCreate() {
	ctx := context.Background()

	s.Run("creates a valid document", func() {
		doc, err := s.svc.Create(ctx, "alice")
		s.Require().NoError(err)
		s.NoError(doc.Validate())

		did, err := id.ParseDID(doc.ID)
		s.Require().NoError(err)
		s.Equal(id.DefaultDIDMethod, did.Method())
		s.Require().Len(doc.VerificationMethod, 1)
		s.Equal(doc.ID+models.KeyFragment, doc.VerificationMethod[0].ID)
		s.Equal(models.KeyType, doc.VerificationMethod[0].Type)
		s.Equal([]string{doc.ID + models.KeyFragment}, doc.Authentication)
	})

	s.Run("is idempotent per subject", func() {
		first, err := s.svc.Create(ctx, "bob")
		s.Require().NoError(err)
		second, err := s.svc.Create(ctx, "bob")
		s.Require().NoError(err)
		s.Equal(first, second)

		events, err := s.audits.ListAll(ctx)
		s.Require().NoError(err)
		var created int
		for _, e := range events {
			if e.Subject == "bob" && e.Action == audit.EventDIDCreated {
				created++
			}
		}
		s.Equal(1, created)
	})

	s.Run("rejects empty subject", func() {
		_, err := s.svc.Create(ctx, "  ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestCreate_ConcurrentConverges() {
	ctx := context.Background()
	const n = 16

	docs := make([]models.Document, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := s.svc.Create(ctx, "carol")
			s.NoError(err)
			docs[i] = doc
		}()
	}
	wg.Wait()

	for _, d := range docs[1:] {
		s.Equal(docs[0].ID, d.ID)
	}
	rec, err := s.store.FindBySubject(ctx, "carol")
	s.Require().NoError(err)
	s.Equal(docs[0].ID, rec.DID.String())
}

func (s *ServiceSuite) TestResolveAndSigningKey() {
	ctx := context.Background()
	doc, err := s.svc.Create(ctx, "dave")
	s.Require().NoError(err)

	resolved, err := s.svc.Resolve(ctx, id.DID(doc.ID))
	s.Require().NoError(err)
	s.Equal(doc, resolved)

	bySubject, err := s.svc.FindBySubject(ctx, "dave")
	s.Require().NoError(err)
	s.Equal(doc.ID, bySubject.ID)

	key, err := s.svc.SigningKey(ctx, id.DID(doc.ID))
	s.Require().NoError(err)
	s.Equal(doc.PrimaryMethodID(), key.MethodID)

	p, err := proof.Sign([]byte("payload"), key, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.NoError(proof.Verify([]byte("payload"), p, resolved))
}

func (s *ServiceSuite) TestLookupsMissing() {
	ctx := context.Background()

	_, err := s.svc.Resolve(ctx, id.NewDID(id.DefaultDIDMethod))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.svc.FindBySubject(ctx, "nobody")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.svc.SigningKey(ctx, id.NewDID(id.DefaultDIDMethod))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

type failingStore struct{ Store }

func (failingStore) FindBySubject(context.Context, string) (models.Record, error) {
	return models.Record{}, errors.New("connection reset")
}

func TestCreate_StoreFailureIsPersistenceError(t *testing.T) {
	sealer, err := keyseal.New("test-secret")
	require.NoError(t, err)
	svc := New(failingStore{Store: store.NewInMemoryStore()}, sealer)

	_, err = svc.Create(context.Background(), "erin")
	require.Error(t, err)
	require.True(t, dErrors.HasCode(err, dErrors.CodePersistence))
}
