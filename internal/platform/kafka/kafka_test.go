package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"

	"pixelgenesis/internal/platform/config"
)

type stubAdmin struct {
	resp kadm.CreateTopicResponses
	err  error
}

func (s stubAdmin) CreateTopics(context.Context, int32, int16, map[string]*string, ...string) (kadm.CreateTopicResponses, error) {
	return s.resp, s.err
}

func TestEnsureTopic(t *testing.T) {
	ctx := context.Background()

	t.Run("created", func(t *testing.T) {
		admin := stubAdmin{resp: kadm.CreateTopicResponses{"audit": {Topic: "audit"}}}
		require.NoError(t, EnsureTopic(ctx, admin, "audit"))
	})

	t.Run("already exists is fine", func(t *testing.T) {
		admin := stubAdmin{resp: kadm.CreateTopicResponses{"audit": {Topic: "audit", Err: kerr.TopicAlreadyExists}}}
		require.NoError(t, EnsureTopic(ctx, admin, "audit"))
	})

	t.Run("other topic errors surface", func(t *testing.T) {
		admin := stubAdmin{resp: kadm.CreateTopicResponses{"audit": {Topic: "audit", Err: kerr.TopicAuthorizationFailed}}}
		err := EnsureTopic(ctx, admin, "audit")
		require.Error(t, err)
		assert.ErrorIs(t, err, kerr.TopicAuthorizationFailed)
	})

	t.Run("request errors surface", func(t *testing.T) {
		admin := stubAdmin{err: errors.New("no brokers")}
		assert.Error(t, EnsureTopic(ctx, admin, "audit"))
	})
}

func TestNewClient_NoBrokers(t *testing.T) {
	client, err := NewClient(context.Background(), config.KafkaConfig{AuditTopic: "audit"})
	require.NoError(t, err)
	assert.Nil(t, client)
}
