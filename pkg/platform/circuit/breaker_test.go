package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// Defaults the server wires for the revocation oracle
// (ORACLE_FAILURE_THRESHOLD, ORACLE_COOLDOWN).
const (
	oracleFailureThreshold = 5
	oracleCooldown         = 10 * time.Second
)

type BreakerSuite struct {
	suite.Suite
	now     time.Time
	breaker *Breaker
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.breaker = New("revocation-oracle",
		WithFailureThreshold(oracleFailureThreshold),
		WithCooldown(oracleCooldown),
		WithClock(func() time.Time { return s.now }),
	)
}

// failLedgerCalls records n consecutive failed oracle calls.
func (s *BreakerSuite) failLedgerCalls(n int) (opened int) {
	for range n {
		if _, change := s.breaker.RecordFailure(); change.Opened {
			opened++
		}
	}
	return opened
}

func (s *BreakerSuite) TestDefaultsMatchOracleConfig() {
	b := New("revocation-oracle")
	s.Equal("revocation-oracle", b.Name())
	s.Equal(StateClosed, b.State())
	s.Equal(oracleFailureThreshold, b.failureThreshold)
	s.Equal(oracleCooldown, b.cooldown)
	s.Equal(2, b.successThreshold)
}

func (s *BreakerSuite) TestLedgerOutageOpensOnFifthFailure() {
	s.Zero(s.failLedgerCalls(oracleFailureThreshold - 1))
	s.False(s.breaker.IsOpen())
	s.True(s.breaker.Allow())

	useFallback, change := s.breaker.RecordFailure()
	s.True(useFallback)
	s.True(change.Opened)
	s.Equal("open", s.breaker.State().String())
}

func (s *BreakerSuite) TestOpenBreakerShedsCallsUntilCooldown() {
	s.Equal(1, s.failLedgerCalls(oracleFailureThreshold))

	s.now = s.now.Add(oracleCooldown - time.Millisecond)
	s.False(s.breaker.Allow(), "ledger calls are shed inside the cooldown")

	s.now = s.now.Add(time.Millisecond)
	s.True(s.breaker.Allow(), "one trial call once the cooldown elapses")
	s.False(s.breaker.Allow(), "a single trial call per window")

	s.now = s.now.Add(oracleCooldown)
	s.True(s.breaker.Allow())
}

func (s *BreakerSuite) TestFailedTrialCallRearmsCooldown() {
	s.failLedgerCalls(oracleFailureThreshold)
	s.now = s.now.Add(oracleCooldown)
	s.Require().True(s.breaker.Allow())

	useFallback, change := s.breaker.RecordFailure()
	s.True(useFallback)
	s.False(change.Opened, "already open")
	s.False(s.breaker.Allow())
}

func (s *BreakerSuite) TestRecoveredLedgerClosesAfterTwoSuccesses() {
	s.failLedgerCalls(oracleFailureThreshold)
	s.now = s.now.Add(oracleCooldown)
	s.Require().True(s.breaker.Allow())

	usePrimary, change := s.breaker.RecordSuccess()
	s.False(usePrimary)
	s.False(change.Closed)
	s.True(s.breaker.IsOpen())

	s.now = s.now.Add(oracleCooldown)
	s.Require().True(s.breaker.Allow())
	usePrimary, change = s.breaker.RecordSuccess()
	s.True(usePrimary)
	s.True(change.Closed)
	s.True(s.breaker.Allow())

	s.Zero(s.failLedgerCalls(oracleFailureThreshold-1), "failure count starts over after closing")
}

func (s *BreakerSuite) TestFailureBetweenTrialSuccessesKeepsOpen() {
	s.failLedgerCalls(oracleFailureThreshold)
	s.breaker.RecordSuccess()
	s.breaker.RecordFailure()
	s.breaker.RecordSuccess()
	s.True(s.breaker.IsOpen())

	_, change := s.breaker.RecordSuccess()
	s.True(change.Closed)
}

func (s *BreakerSuite) TestIntermittentErrorsDoNotOpen() {
	for range 3 {
		s.failLedgerCalls(oracleFailureThreshold - 1)
		usePrimary, _ := s.breaker.RecordSuccess()
		s.True(usePrimary)
	}
	s.False(s.breaker.IsOpen())
}

func (s *BreakerSuite) TestReset() {
	s.failLedgerCalls(oracleFailureThreshold)
	s.Require().True(s.breaker.IsOpen())

	s.breaker.Reset()
	s.Equal(StateClosed, s.breaker.State())
	s.True(s.breaker.Allow())
	s.Zero(s.failLedgerCalls(oracleFailureThreshold - 1))
}
