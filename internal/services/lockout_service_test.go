package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/staffguard/internal/models"
	"github.com/BradenHooton/staffguard/internal/repositories/memory"
	"github.com/BradenHooton/staffguard/internal/repositories/sqlite"
	"github.com/BradenHooton/staffguard/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockoutBackend struct {
	accounts services.AccountSecurityRepository
	attempts services.FailedLoginRepository
}

func lockoutBackends() map[string]func(t *testing.T) lockoutBackend {
	return map[string]func(t *testing.T) lockoutBackend{
		"memory": func(t *testing.T) lockoutBackend {
			return lockoutBackend{
				accounts: memory.NewAccountSecurityRepository(),
				attempts: memory.NewFailedLoginRepository(),
			}
		},
		"sqlite": func(t *testing.T) lockoutBackend {
			db := openTestSQLite(t)
			return lockoutBackend{
				accounts: sqlite.NewAccountSecurityRepository(db),
				attempts: sqlite.NewFailedLoginRepository(db),
			}
		},
	}
}

func newLockoutService(t *testing.T, backend lockoutBackend, cfg services.LockoutConfig) (*services.LockoutService, *services.TestClock) {
	t.Helper()
	clock := services.NewTestClock(testEpoch)
	svc := services.NewLockoutService(backend.accounts, backend.attempts, cfg, testLogger())
	svc.SetClock(clock.Now)
	return svc, clock
}

func TestLockoutService_LocksAfterThreshold(t *testing.T) {
	for name, newBackend := range lockoutBackends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc, clock := newLockoutService(t, newBackend(t), services.DefaultLockoutConfig())

			for i := 1; i < 5; i++ {
				status, err := svc.RecordFailedLogin(ctx, "jane@example.com", "10.0.0.1", "invalid_credentials")
				require.NoError(t, err)
				assert.False(t, status.IsLocked)
				assert.Equal(t, 5-i, status.RemainingAttempts)
			}

			status, err := svc.RecordFailedLogin(ctx, "jane@example.com", "10.0.0.1", "invalid_credentials")
			require.NoError(t, err)
			assert.True(t, status.IsLocked)
			assert.Equal(t, 0, status.RemainingAttempts)
			require.NotNil(t, status.LockedUntil)
			assert.True(t, status.LockedUntil.Equal(clock.Now().Add(30*time.Minute)))

			check, err := svc.CheckLockout(ctx, "jane@example.com")
			require.NoError(t, err)
			assert.True(t, check.IsLocked)
			assert.Equal(t, 0, check.RemainingAttempts)
			require.NotNil(t, check.LockedUntil)
			assert.True(t, check.LockedUntil.Equal(*status.LockedUntil))
		})
	}
}

func TestLockoutService_ResetRestoresFullBudget(t *testing.T) {
	for name, newBackend := range lockoutBackends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for _, failures := range []int{0, 1, 3, 5, 7} {
				svc, _ := newLockoutService(t, newBackend(t), services.DefaultLockoutConfig())

				for i := 0; i < failures; i++ {
					_, err := svc.RecordFailedLogin(ctx, "u1", "", "")
					require.NoError(t, err)
				}

				require.NoError(t, svc.ResetFailedAttempts(ctx, "u1"))

				status, err := svc.CheckLockout(ctx, "u1")
				require.NoError(t, err)
				assert.False(t, status.IsLocked, "failures=%d", failures)
				assert.Equal(t, 5, status.RemainingAttempts, "failures=%d", failures)
				assert.Nil(t, status.LockedUntil)
			}
		})
	}
}

func TestLockoutService_ExpiredLockIsClearedOnRead(t *testing.T) {
	for name, newBackend := range lockoutBackends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			backend := newBackend(t)
			svc, clock := newLockoutService(t, backend, services.DefaultLockoutConfig())

			for i := 0; i < 5; i++ {
				_, err := svc.RecordFailedLogin(ctx, "u1", "10.0.0.1", "")
				require.NoError(t, err)
			}

			clock.Advance(31 * time.Minute)

			status, err := svc.CheckLockout(ctx, "u1")
			require.NoError(t, err)
			assert.False(t, status.IsLocked)
			assert.Equal(t, 5, status.RemainingAttempts)

			record, err := backend.accounts.GetByIdentity(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, 0, record.FailedLoginAttempts)
			assert.Nil(t, record.LockedUntil)

			again, err := svc.CheckLockout(ctx, "u1")
			require.NoError(t, err)
			assert.False(t, again.IsLocked)
			assert.Equal(t, 5, again.RemainingAttempts)
		})
	}
}

func TestLockoutService_LockEndsExactlyAtLockedUntil(t *testing.T) {
	ctx := context.Background()
	svc, clock := newLockoutService(t, lockoutBackends()["memory"](t), services.DefaultLockoutConfig())

	for i := 0; i < 5; i++ {
		_, err := svc.RecordFailedLogin(ctx, "u1", "", "")
		require.NoError(t, err)
	}

	clock.Advance(30*time.Minute - time.Second)
	status, err := svc.CheckLockout(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, status.IsLocked)

	clock.Advance(time.Second)
	status, err = svc.CheckLockout(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, status.IsLocked)
	assert.Equal(t, 5, status.RemainingAttempts)
}

func TestLockoutService_FailureAfterExpiredLockStartsFreshCount(t *testing.T) {
	for name, newBackend := range lockoutBackends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc, clock := newLockoutService(t, newBackend(t), services.DefaultLockoutConfig())

			for i := 0; i < 5; i++ {
				_, err := svc.RecordFailedLogin(ctx, "u1", "", "")
				require.NoError(t, err)
			}

			clock.Advance(45 * time.Minute)

			status, err := svc.RecordFailedLogin(ctx, "u1", "", "")
			require.NoError(t, err)
			assert.False(t, status.IsLocked)
			assert.Equal(t, 4, status.RemainingAttempts)
		})
	}
}

func TestLockoutService_EndToEndScenario(t *testing.T) {
	for name, newBackend := range lockoutBackends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc, _ := newLockoutService(t, newBackend(t), services.DefaultLockoutConfig())

			var status *models.LockoutStatus
			var err error
			for i := 0; i < 4; i++ {
				status, err = svc.RecordFailedLogin(ctx, "u1", "10.0.0.1", "invalid_credentials")
				require.NoError(t, err)
			}
			assert.Equal(t, 1, status.RemainingAttempts)
			assert.False(t, status.IsLocked)

			require.NoError(t, svc.ResetFailedAttempts(ctx, "u1"))

			status, err = svc.CheckLockout(ctx, "u1")
			require.NoError(t, err)
			assert.False(t, status.IsLocked)
			assert.Equal(t, 5, status.RemainingAttempts)
		})
	}
}

func TestLockoutService_UnknownIdentityHasFullBudget(t *testing.T) {
	svc, _ := newLockoutService(t, lockoutBackends()["memory"](t), services.DefaultLockoutConfig())

	status, err := svc.CheckLockout(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, status.IsLocked)
	assert.Equal(t, 5, status.RemainingAttempts)
}

func TestLockoutService_IdentityIsNormalized(t *testing.T) {
	ctx := context.Background()
	svc, _ := newLockoutService(t, lockoutBackends()["memory"](t), services.DefaultLockoutConfig())

	_, err := svc.RecordFailedLogin(ctx, "  Jane@Example.COM ", "", "")
	require.NoError(t, err)

	status, err := svc.CheckLockout(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, 4, status.RemainingAttempts)

	_, err = svc.CheckLockout(ctx, "   ")
	assert.ErrorIs(t, err, models.ErrInvalidIdentity)
}

func TestLockoutService_UnlockAccount(t *testing.T) {
	for name, newBackend := range lockoutBackends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc, _ := newLockoutService(t, newBackend(t), services.DefaultLockoutConfig())

			for i := 0; i < 6; i++ {
				_, err := svc.RecordFailedLogin(ctx, "u1", "", "")
				require.NoError(t, err)
			}

			require.NoError(t, svc.UnlockAccount(ctx, "u1"))

			status, err := svc.CheckLockout(ctx, "u1")
			require.NoError(t, err)
			assert.False(t, status.IsLocked)
			assert.Equal(t, 5, status.RemainingAttempts)
		})
	}
}

func TestLockoutService_UnlockKeepsLastFailedLogin(t *testing.T) {
	for name, newBackend := range lockoutBackends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			backend := newBackend(t)
			svc, clock := newLockoutService(t, backend, services.DefaultLockoutConfig())

			for i := 0; i < 5; i++ {
				_, err := svc.RecordFailedLogin(ctx, "u1", "", "")
				require.NoError(t, err)
			}

			clock.Advance(time.Minute)
			require.NoError(t, svc.UnlockAccount(ctx, "u1"))

			record, err := backend.accounts.GetByIdentity(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, 0, record.FailedLoginAttempts)
			assert.Nil(t, record.LockedUntil)
			require.NotNil(t, record.LastFailedLogin)
			assert.True(t, record.LastFailedLogin.Equal(testEpoch))
		})
	}
}

func TestLockoutService_ThresholdFailureStoresLock(t *testing.T) {
	for name, newBackend := range lockoutBackends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			backend := newBackend(t)
			svc, _ := newLockoutService(t, backend, services.DefaultLockoutConfig())

			for i := 0; i < 4; i++ {
				_, err := svc.RecordFailedLogin(ctx, "u1", "", "")
				require.NoError(t, err)
			}

			record, err := backend.accounts.GetByIdentity(ctx, "u1")
			require.NoError(t, err)
			assert.Nil(t, record.LockedUntil)

			_, err = svc.RecordFailedLogin(ctx, "u1", "", "")
			require.NoError(t, err)

			record, err = backend.accounts.GetByIdentity(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, 5, record.FailedLoginAttempts)
			require.NotNil(t, record.LockedUntil)
			assert.True(t, record.LockedUntil.Equal(testEpoch.Add(30*time.Minute)))
		})
	}
}

func TestLockoutService_LockIsWrittenWithTheIncrement(t *testing.T) {
	var (
		gotThreshold int
		gotUntil     time.Time
		increments   int
	)
	accounts := &services.MockAccountSecurityRepository{
		IncrementFailedAttemptsFunc: func(ctx context.Context, identity string, now time.Time, threshold int, lockedUntil time.Time) (*models.AccountSecurity, error) {
			increments++
			gotThreshold = threshold
			gotUntil = lockedUntil
			return &models.AccountSecurity{Identity: identity, FailedLoginAttempts: 5, LockedUntil: &lockedUntil}, nil
		},
	}

	svc := services.NewLockoutService(accounts, &services.MockFailedLoginRepository{}, services.DefaultLockoutConfig(), testLogger())
	svc.SetClock(func() time.Time { return testEpoch })

	status, err := svc.RecordFailedLogin(context.Background(), "u1", "", "")
	require.NoError(t, err)
	assert.True(t, status.IsLocked)
	assert.Equal(t, 1, increments)
	assert.Equal(t, 5, gotThreshold)
	assert.True(t, gotUntil.Equal(testEpoch.Add(30*time.Minute)))
}

func TestLockoutService_NotifiesAgainAfterLockExpires(t *testing.T) {
	notified := make(chan string, 10)
	notifier := &services.MockLockoutNotifier{
		NotifyAccountLockedFunc: func(ctx context.Context, identity string, lockedUntil time.Time) error {
			notified <- identity
			return nil
		},
	}

	svc, clock := newLockoutService(t, lockoutBackends()["memory"](t), services.DefaultLockoutConfig())
	svc.SetNotifier(notifier)
	ctx := context.Background()

	for round := 0; round < 2; round++ {
		for i := 0; i < 5; i++ {
			_, err := svc.RecordFailedLogin(ctx, "jane@example.com", "", "")
			require.NoError(t, err)
		}

		select {
		case <-notified:
		case <-time.After(2 * time.Second):
			t.Fatalf("round %d: expected a lockout notification", round)
		}

		clock.Advance(31 * time.Minute)
	}
}

func TestLockoutService_ConcurrentFailuresAreAllCounted(t *testing.T) {
	for name, newBackend := range lockoutBackends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			backend := newBackend(t)
			svc, _ := newLockoutService(t, backend, services.LockoutConfig{
				MaxFailedAttempts: 1000,
				LockoutDuration:   30 * time.Minute,
			})

			const workers = 25
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := svc.RecordFailedLogin(ctx, "u1", "10.0.0.1", "")
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			record, err := backend.accounts.GetByIdentity(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, workers, record.FailedLoginAttempts)
		})
	}
}

func TestLockoutService_ConcurrentFailuresCrossThresholdOnce(t *testing.T) {
	ctx := context.Background()
	backend := lockoutBackends()["memory"](t)
	svc, _ := newLockoutService(t, backend, services.DefaultLockoutConfig())

	var wg sync.WaitGroup
	results := make(chan *models.LockoutStatus, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, err := svc.RecordFailedLogin(ctx, "u1", "", "")
			assert.NoError(t, err)
			results <- status
		}()
	}
	wg.Wait()
	close(results)

	locked := 0
	for status := range results {
		if status.IsLocked {
			locked++
		}
	}
	assert.Equal(t, 1, locked)

	status, err := svc.CheckLockout(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, status.IsLocked)
}

func TestLockoutService_AuditFailureDoesNotBlockDecision(t *testing.T) {
	accounts := memory.NewAccountSecurityRepository()
	attempts := &services.MockFailedLoginRepository{
		RecordAttemptFunc: func(ctx context.Context, attempt *models.FailedLoginAttempt) error {
			return errors.New("audit table unavailable")
		},
	}

	svc := services.NewLockoutService(accounts, attempts, services.DefaultLockoutConfig(), testLogger())

	status, err := svc.RecordFailedLogin(context.Background(), "u1", "", "")
	require.NoError(t, err)
	assert.Equal(t, 4, status.RemainingAttempts)
}

func TestLockoutService_AuditEntryDefaults(t *testing.T) {
	attempts := memory.NewFailedLoginRepository()
	svc := services.NewLockoutService(memory.NewAccountSecurityRepository(), attempts, services.DefaultLockoutConfig(), testLogger())
	svc.SetClock(services.NewTestClock(testEpoch).Now)

	_, err := svc.RecordFailedLogin(context.Background(), "u1", "", "")
	require.NoError(t, err)

	entries := attempts.Attempts()
	require.Len(t, entries, 1)
	assert.Equal(t, "u1", entries[0].Identity)
	assert.Equal(t, models.DefaultClientAddress, entries[0].ClientAddress)
	assert.Equal(t, models.DefaultFailureReason, entries[0].Reason)
	assert.NotEmpty(t, entries[0].ID)
	assert.True(t, entries[0].AttemptedAt.Equal(testEpoch))
}

func TestLockoutService_StoreErrorsAreSurfaced(t *testing.T) {
	storeErr := errors.New("connection refused")
	accounts := &services.MockAccountSecurityRepository{
		GetByIdentityFunc: func(ctx context.Context, identity string) (*models.AccountSecurity, error) {
			return nil, storeErr
		},
		IncrementFailedAttemptsFunc: func(ctx context.Context, identity string, now time.Time, threshold int, lockedUntil time.Time) (*models.AccountSecurity, error) {
			return nil, storeErr
		},
		ResetFunc: func(ctx context.Context, identity string, now time.Time) error {
			return storeErr
		},
		UnlockFunc: func(ctx context.Context, identity string, now time.Time) error {
			return storeErr
		},
	}

	svc := services.NewLockoutService(accounts, &services.MockFailedLoginRepository{}, services.DefaultLockoutConfig(), testLogger())
	ctx := context.Background()

	_, err := svc.CheckLockout(ctx, "u1")
	assert.ErrorIs(t, err, storeErr)

	_, err = svc.RecordFailedLogin(ctx, "u1", "", "")
	assert.ErrorIs(t, err, storeErr)

	assert.ErrorIs(t, svc.ResetFailedAttempts(ctx, "u1"), storeErr)
	assert.ErrorIs(t, svc.UnlockAccount(ctx, "u1"), storeErr)
}

func TestLockoutService_ConcurrentClearRereadsRecord(t *testing.T) {
	now := testEpoch
	expired := now.Add(-time.Minute)
	relocked := now.Add(20 * time.Minute)
	reads := 0

	accounts := &services.MockAccountSecurityRepository{
		GetByIdentityFunc: func(ctx context.Context, identity string) (*models.AccountSecurity, error) {
			reads++
			if reads == 1 {
				return &models.AccountSecurity{Identity: identity, FailedLoginAttempts: 5, LockedUntil: &expired}, nil
			}
			return &models.AccountSecurity{Identity: identity, FailedLoginAttempts: 5, LockedUntil: &relocked}, nil
		},
		ClearExpiredLockFunc: func(ctx context.Context, identity string, now time.Time) (bool, error) {
			return false, nil
		},
	}

	svc := services.NewLockoutService(accounts, &services.MockFailedLoginRepository{}, services.DefaultLockoutConfig(), testLogger())
	svc.SetClock(func() time.Time { return now })

	status, err := svc.CheckLockout(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, status.IsLocked)
	assert.Equal(t, 2, reads)
}

func TestLockoutService_NotifiesOnceWhenLocked(t *testing.T) {
	notified := make(chan string, 10)
	notifier := &services.MockLockoutNotifier{
		NotifyAccountLockedFunc: func(ctx context.Context, identity string, lockedUntil time.Time) error {
			notified <- identity
			return nil
		},
	}

	svc, _ := newLockoutService(t, lockoutBackends()["memory"](t), services.DefaultLockoutConfig())
	svc.SetNotifier(notifier)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := svc.RecordFailedLogin(ctx, "jane@example.com", "", "")
		require.NoError(t, err)
	}

	select {
	case identity := <-notified:
		assert.Equal(t, "jane@example.com", identity)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a lockout notification")
	}

	select {
	case <-notified:
		t.Fatal("expected exactly one notification while the lock is in force")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLockoutService_NotifierErrorIsSwallowed(t *testing.T) {
	done := make(chan struct{})
	notifier := &services.MockLockoutNotifier{
		NotifyAccountLockedFunc: func(ctx context.Context, identity string, lockedUntil time.Time) error {
			defer close(done)
			return errors.New("ses throttled")
		},
	}

	svc, _ := newLockoutService(t, lockoutBackends()["memory"](t), services.LockoutConfig{
		MaxFailedAttempts: 1,
		LockoutDuration:   time.Minute,
	})
	svc.SetNotifier(notifier)

	status, err := svc.RecordFailedLogin(context.Background(), "jane@example.com", "", "")
	require.NoError(t, err)
	assert.True(t, status.IsLocked)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was not called")
	}
}

func TestLockoutService_PurgeAuditLog(t *testing.T) {
	for name, newBackend := range lockoutBackends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc, clock := newLockoutService(t, newBackend(t), services.DefaultLockoutConfig())

			_, err := svc.RecordFailedLogin(ctx, "u1", "", "")
			require.NoError(t, err)
			clock.Advance(48 * time.Hour)
			_, err = svc.RecordFailedLogin(ctx, "u2", "", "")
			require.NoError(t, err)

			deleted, err := svc.PurgeAuditLog(ctx, 24*time.Hour)
			require.NoError(t, err)
			assert.Equal(t, int64(1), deleted)

			deleted, err = svc.PurgeAuditLog(ctx, 0)
			require.NoError(t, err)
			assert.Equal(t, int64(0), deleted)
		})
	}
}

func TestLockoutService_SQLiteAuditTrailKeepsEveryFailure(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)
	attempts := sqlite.NewFailedLoginRepository(db)
	svc, _ := newLockoutService(t, lockoutBackend{
		accounts: sqlite.NewAccountSecurityRepository(db),
		attempts: attempts,
	}, services.DefaultLockoutConfig())

	// Failures while locked still extend the trail
	for i := 0; i < 7; i++ {
		_, err := svc.RecordFailedLogin(ctx, "Alice@Example.com", "", "")
		require.NoError(t, err)
	}

	count, err := attempts.CountByIdentity(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}
