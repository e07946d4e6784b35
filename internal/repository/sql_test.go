package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"minifeed/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestLikeRepository_Like_SQL(t *testing.T) {
	tests := []struct {
		name         string
		mockBehavior func(mock sqlmock.Sqlmock)
		expectedCode string
	}{
		{
			name: "Inserted",
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "posts" WHERE id = $1`)).
					WithArgs(1).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "users" WHERE id = $1`)).
					WithArgs(2).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "likes" ("post_id","user_id","created_at") VALUES ($1,$2,$3) ON CONFLICT ("post_id","user_id") DO NOTHING RETURNING "id"`)).
					WithArgs(1, 2, sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
				mock.ExpectCommit()
			},
		},
		{
			name: "Already liked",
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "posts"`)).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "users"`)).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "likes"`)).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
				mock.ExpectRollback()
			},
			expectedCode: models.CodeConflict,
		},
		{
			name: "Post missing",
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "posts"`)).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
				mock.ExpectRollback()
			},
			expectedCode: models.CodeNotFound,
		},
		{
			name: "User missing",
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "posts"`)).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "users" WHERE id = $1`)).
					WithArgs(2).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
				mock.ExpectRollback()
			},
			expectedCode: models.CodeNotFound,
		},
		{
			name: "Database failure",
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "posts"`)).
					WillReturnError(errors.New("connection reset"))
				mock.ExpectRollback()
			},
			expectedCode: models.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewLikeRepository(db)
			tt.mockBehavior(mock)

			err := repo.Like(context.Background(), 1, 2)
			if tt.expectedCode == "" {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.expectedCode, models.ErrorCode(err))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestLikeRepository_Unlike_SQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLikeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "likes" WHERE post_id = $1 AND user_id = $2`)).
		WithArgs(1, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Unlike(context.Background(), 1, 2)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikeRepository_CountsByPost_SQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLikeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT posts.id AS post_id, COUNT(likes.id) AS likes_count FROM "posts" LEFT JOIN likes ON likes.post_id = posts.id GROUP BY "posts"."id" ORDER BY posts.id ASC`)).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "likes_count"}).AddRow(1, 3).AddRow(2, 0))

	rows, err := repo.CountsByPost(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.PostLikes{{PostID: 1, LikesCount: 3}, {PostID: 2, LikesCount: 0}}, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_UniqueViolation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.User{Username: "alice", Email: "a@example.com", PasswordHash: "h"})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeConflict))
	assert.Equal(t, "Email already registered", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueConstraintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"pg code", &pgconn.PgError{Code: "23505"}, true},
		{"pg other code", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite message", errors.New("UNIQUE constraint failed: users.username"), true},
		{"unrelated", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueConstraintError(tt.err))
		})
	}
}
