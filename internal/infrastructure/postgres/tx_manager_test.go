package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinTransaction_Commit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	err = NewTxManager(mock).WithinTransaction(context.Background(), func(ctx context.Context) error {
		assert.NotNil(t, GetTx(ctx))
		return nil
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTransaction_RollbackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = NewTxManager(mock).WithinTransaction(context.Background(), func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTransaction_RollbackOnPanic(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = NewTxManager(mock).WithinTransaction(context.Background(), func(ctx context.Context) error {
			panic("handler blew up")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTransaction_BeginAndCommitErrors(t *testing.T) {
	t.Run("begin", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

		called := false
		err = NewTxManager(mock).WithinTransaction(context.Background(), func(ctx context.Context) error {
			called = true
			return nil
		})
		assert.ErrorContains(t, err, "begin transaction")
		assert.False(t, called)
	})

	t.Run("commit", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("connection lost"))

		err = NewTxManager(mock).WithinTransaction(context.Background(), func(ctx context.Context) error {
			return nil
		})
		assert.ErrorContains(t, err, "commit transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetTx_NoTransaction(t *testing.T) {
	assert.Nil(t, GetTx(context.Background()))
}
