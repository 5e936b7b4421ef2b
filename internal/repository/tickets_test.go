package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ticketer/internal/errors"
)

func TestGenerateCode(t *testing.T) {
	pattern := regexp.MustCompile(`^TCK-[0-9A-F]{10}$`)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code := GenerateCode()
		assert.Regexp(t, pattern, code)
		assert.False(t, seen[code], "generated a duplicate code: %s", code)
		seen[code] = true
	}
}

func TestMintRefusesToOvershootCapacity(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// The conditional increment matches no row when minted + count would
	// exceed max_tickets; no ticket inserts may follow.
	mock.ExpectExec("UPDATE ticket_categories").
		WithArgs("cat-1", 3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := &TicketRepository{}
	_, err = repo.Mint(context.Background(), db, "cat-1", "event-1", "user-1", 3)
	assert.ErrorIs(t, err, apperrors.ErrCapacityExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferOwnershipRequiresListing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE tickets").
		WithArgs("tkt-1", "buyer-1", "TCK-AAAAAAAAAA").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("tkt-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	repo := &TicketRepository{}
	err = repo.TransferOwnership(context.Background(), db, "tkt-1", "buyer-1", "TCK-AAAAAAAAAA")
	assert.ErrorIs(t, err, apperrors.ErrPermission)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferOwnershipMissingTicket(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE tickets").
		WithArgs("tkt-404", "buyer-1", "TCK-AAAAAAAAAA").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("tkt-404").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	repo := &TicketRepository{}
	err = repo.TransferOwnership(context.Background(), db, "tkt-404", "buyer-1", "TCK-AAAAAAAAAA")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
