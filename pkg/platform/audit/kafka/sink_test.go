package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "pixelgenesis/pkg/platform/audit"
)

type recordingProducer struct {
	records []*kgo.Record
	err     error
}

func (p *recordingProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		p.records = append(p.records, r)
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func TestSink_Append(t *testing.T) {
	producer := &recordingProducer{}
	sink := NewSink(producer, "credential-audit")

	event := audit.Event{
		Action:       audit.EventCredentialRevoked,
		Category:     audit.CategoryCompliance,
		Timestamp:    time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC),
		CredentialID: "vc:abc",
		Fingerprint:  "ff00",
	}
	require.NoError(t, sink.Append(context.Background(), event))

	require.Len(t, producer.records, 1)
	rec := producer.records[0]
	assert.Equal(t, "credential-audit", rec.Topic)
	assert.Equal(t, []byte("vc:abc"), rec.Key)

	var decoded audit.Event
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, event, decoded)
}

func TestSink_AppendPropagatesProduceError(t *testing.T) {
	producer := &recordingProducer{err: errors.New("broker down")}
	sink := NewSink(producer, "credential-audit")

	err := sink.Append(context.Background(), audit.Event{Action: audit.EventDIDCreated, Subject: "user-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Equal(t, []byte("user-1"), producer.records[0].Key)
}
