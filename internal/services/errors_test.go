package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/exteriorcrm/pkg/errors"
)

func TestTranslateDBError(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		conflict *apperrors.AppError
		want     *apperrors.AppError
	}{
		{"postgres unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, ErrSlugTaken, ErrSlugTaken},
		{"postgres unique default", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, nil, apperrors.ErrConflict},
		{"postgres foreign key", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, nil, ErrInvalidReference},
		{"postgres other", &pgconn.PgError{Code: pgerrcode.SerializationFailure}, nil, apperrors.ErrInternalServer},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, ErrEmailTaken, ErrEmailTaken},
		{"mysql foreign key", &mysql.MySQLError{Number: 1452}, nil, ErrInvalidReference},
		{"sqlite unique", errors.New("UNIQUE constraint failed: organizations.slug"), ErrSlugTaken, ErrSlugTaken},
		{"sqlite foreign key", errors.New("FOREIGN KEY constraint failed"), nil, ErrInvalidReference},
		{"wrapped not found", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), nil, apperrors.ErrNotFound},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, nil, apperrors.ErrConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := translateDBError(tc.err, tc.conflict)
			require.ErrorIs(t, got, tc.want)
			require.Equal(t, tc.want.StatusCode, apperrors.FromError(got).StatusCode)
		})
	}
}

func TestTranslateDBErrorKeepsAppErrors(t *testing.T) {
	require.Nil(t, translateDBError(nil, nil))

	wrapped := ErrSlugTaken.WithInternal(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
	require.Same(t, wrapped, translateDBError(wrapped, nil))

	got := translateDBError(fmt.Errorf("tx: %w", ErrLastOwner), nil)
	require.ErrorIs(t, got, ErrLastOwner)
}
