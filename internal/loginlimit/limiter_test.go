package loginlimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type LimiterSuite struct {
	suite.Suite
	storage *MemoryStorage
	now     time.Time
	limiter *Limiter
	ctx     context.Context
}

func TestLimiterSuite(t *testing.T) {
	suite.Run(t, new(LimiterSuite))
}

func (s *LimiterSuite) SetupTest() {
	s.storage = NewMemoryStorage()
	s.now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	s.limiter = New(s.storage, WithClock(func() time.Time { return s.now }))
	s.ctx = context.Background()
}

func (s *LimiterSuite) TestNoRecordAllowsAttempt() {
	s.True(s.limiter.CanAttemptLogin(s.ctx))
}

func (s *LimiterSuite) TestThirdFailureLocksOut() {
	for i := 1; i <= 2; i++ {
		s.Require().NoError(s.limiter.RecordFailedLogin(s.ctx))
		s.now = s.now.Add(time.Hour)
		s.True(s.limiter.CanAttemptLogin(s.ctx), "after %d failures", i)
	}

	s.Require().NoError(s.limiter.RecordFailedLogin(s.ctx))
	s.False(s.limiter.CanAttemptLogin(s.ctx))

	info := s.limiter.Info(s.ctx)
	s.Require().NotNil(info)
	s.Equal(3, info.Attempts)
	s.Equal(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC).UnixMilli(), info.FirstAttemptTimestamp)
}

func (s *LimiterSuite) TestWindowIsMeasuredFromFirstFailure() {
	start := s.now
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.limiter.RecordFailedLogin(s.ctx))
		s.now = s.now.Add(10 * time.Hour)
	}
	// 30h after the first failure, 10h after the last.
	s.True(s.now.Sub(start) > LockoutWindow)
	s.True(s.limiter.CanAttemptLogin(s.ctx))
}

func (s *LimiterSuite) TestExpiredWindowIsClearedOnCheck() {
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.limiter.RecordFailedLogin(s.ctx))
	}
	s.False(s.limiter.CanAttemptLogin(s.ctx))

	s.now = s.now.Add(LockoutWindow + time.Second)
	s.True(s.limiter.CanAttemptLogin(s.ctx))

	_, ok, err := s.storage.Get(s.ctx, StorageKey)
	s.Require().NoError(err)
	s.False(ok, "expired record should be cleared")

	s.Require().NoError(s.limiter.RecordFailedLogin(s.ctx))
	info := s.limiter.Info(s.ctx)
	s.Require().NotNil(info)
	s.Equal(1, info.Attempts)
	s.Equal(s.now.UnixMilli(), info.FirstAttemptTimestamp)
}

func (s *LimiterSuite) TestFailureAfterWindowStartsNewWindow() {
	s.Require().NoError(s.limiter.RecordFailedLogin(s.ctx))
	s.Require().NoError(s.limiter.RecordFailedLogin(s.ctx))

	s.now = s.now.Add(LockoutWindow)
	s.Require().NoError(s.limiter.RecordFailedLogin(s.ctx))

	info := s.limiter.Info(s.ctx)
	s.Require().NotNil(info)
	s.Equal(1, info.Attempts)
}

func (s *LimiterSuite) TestResetAlwaysAllows() {
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.limiter.RecordFailedLogin(s.ctx))
	}
	s.False(s.limiter.CanAttemptLogin(s.ctx))

	s.Require().NoError(s.limiter.ResetLoginAttempts(s.ctx))
	s.True(s.limiter.CanAttemptLogin(s.ctx))
	s.Nil(s.limiter.Info(s.ctx))
}

func (s *LimiterSuite) TestCorruptRecordFailsOpen() {
	s.Require().NoError(s.storage.Set(s.ctx, StorageKey, "{not json", 0))
	s.True(s.limiter.CanAttemptLogin(s.ctx))

	s.Require().NoError(s.limiter.RecordFailedLogin(s.ctx))
	info := s.limiter.Info(s.ctx)
	s.Require().NotNil(info)
	s.Equal(1, info.Attempts)
}

func (s *LimiterSuite) TestClientsAreIndependent() {
	alice := s.limiter.For("10.0.0.1|Firefox|Linux")
	bob := s.limiter.For("10.0.0.2|Chrome|Windows")

	for i := 0; i < 3; i++ {
		s.Require().NoError(alice.RecordFailedLogin(s.ctx))
	}
	s.False(alice.CanAttemptLogin(s.ctx))
	s.True(bob.CanAttemptLogin(s.ctx))
	s.True(s.limiter.CanAttemptLogin(s.ctx))
}

func (s *LimiterSuite) TestReserveAttemptCountsDown() {
	for want := MaxAttempts - 1; want >= 0; want-- {
		remaining, allowed := s.limiter.ReserveAttempt(s.ctx)
		s.True(allowed)
		s.Equal(want, remaining)
	}

	remaining, allowed := s.limiter.ReserveAttempt(s.ctx)
	s.False(allowed)
	s.Zero(remaining)
	s.False(s.limiter.CanAttemptLogin(s.ctx))
}

func (s *LimiterSuite) TestConcurrentReservationsHonourCap() {
	var wg sync.WaitGroup
	var allowed atomic.Int32
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.limiter.ReserveAttempt(s.ctx); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(MaxAttempts), allowed.Load())
	info := s.limiter.Info(s.ctx)
	s.Require().NotNil(info)
	s.Equal(30, info.Attempts)
}

func (s *LimiterSuite) TestReservationAfterWindowStartsOver() {
	for i := 0; i < 5; i++ {
		s.limiter.ReserveAttempt(s.ctx)
	}
	s.now = s.now.Add(LockoutWindow)

	remaining, allowed := s.limiter.ReserveAttempt(s.ctx)
	s.True(allowed)
	s.Equal(MaxAttempts-1, remaining)
}
