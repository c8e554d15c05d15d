package postgres

import (
	"context"
	"testing"
	"time"

	"shiplabel-gateway/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClaim() *domain.EventClaim {
	return &domain.EventClaim{
		EventID:   "evt_1NirD82eZvKYlo2CIvbtLWuY",
		Provider:  domain.ProviderStripe,
		Kind:      domain.EventKindDepositConfirmed,
		ClaimedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestEventClaimRepo_Claim_FirstDelivery(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventClaimRepo(mock)
	claim := newTestClaim()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO event_claims").
		WithArgs(claim.EventID, string(claim.Provider), string(claim.Kind), claim.ClaimedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	won, err := repo.Claim(context.Background(), tx, claim)
	require.NoError(t, err)
	assert.True(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventClaimRepo_Claim_Replay(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventClaimRepo(mock)
	claim := newTestClaim()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO event_claims").
		WithArgs(claim.EventID, string(claim.Provider), string(claim.Kind), claim.ClaimedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	won, err := repo.Claim(context.Background(), tx, claim)
	require.NoError(t, err)
	assert.False(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventClaimRepo_PurgeOlderThan(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventClaimRepo(mock)
	cutoff := time.Now().Add(-domain.ClaimRetention)

	mock.ExpectExec("DELETE FROM event_claims").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 17))

	purged, err := repo.PurgeOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(17), purged)
	assert.NoError(t, mock.ExpectationsWereMet())
}
