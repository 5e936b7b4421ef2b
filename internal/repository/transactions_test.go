package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkSuccessIfPendingFlips(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE transactions SET status = 'SUCCESS'").
		WithArgs("ref-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := &TransactionRepository{}
	flipped, err := repo.MarkSuccessIfPending(context.Background(), db, "ref-1")
	require.NoError(t, err)
	assert.True(t, flipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSuccessIfPendingAlreadySettled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// A terminal status leaves zero rows for the conditional flip; the
	// caller must treat this as a replay, not an error.
	mock.ExpectExec("UPDATE transactions SET status = 'SUCCESS'").
		WithArgs("ref-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := &TransactionRepository{}
	flipped, err := repo.MarkSuccessIfPending(context.Background(), db, "ref-1")
	require.NoError(t, err)
	assert.False(t, flipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}
