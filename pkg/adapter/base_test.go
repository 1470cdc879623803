package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowboat-dev/rowboat/pkg/core"
)

func TestBaseSQLAdapter_Close(t *testing.T) {
	tests := []struct {
		name    string
		setupDB bool
	}{
		{name: "close with nil DB", setupDB: false},
		{name: "close with open DB", setupDB: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				mock.ExpectClose()
				base.DB = db
			}

			assert.NoError(t, base.Close())
		})
	}
}

func TestBaseSQLAdapter_Exec(t *testing.T) {
	tests := []struct {
		name        string
		setupDB     bool
		setupMock   func(mock sqlmock.Sqlmock)
		sql         string
		args        []any
		expectErr   bool
		connectErr  bool
	}{
		{
			name:       "exec without connection",
			setupDB:    false,
			sql:        "DELETE FROM users",
			expectErr:  true,
			connectErr: true,
		},
		{
			name:    "exec success with args",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE "users"`).
					WithArgs("Bob", int64(5)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			sql:  `UPDATE "users" SET "name" = $1 WHERE "id" = $2`,
			args: []any{"Bob", int64(5)},
		},
		{
			name:    "exec rejected by database",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("DELETE FROM").WillReturnError(assert.AnError)
			},
			sql:       "DELETE FROM missing",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}
			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				defer func() { _ = db.Close() }()
				tt.setupMock(mock)
				base.DB = db
			}

			err := base.Exec(context.Background(), tt.sql, tt.args...)
			if !tt.expectErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.connectErr {
				var cerr *core.ConnectivityError
				assert.ErrorAs(t, err, &cerr)
			} else {
				var qerr *core.QueryError
				assert.ErrorAs(t, err, &qerr)
			}
		})
	}
}

func TestBaseSQLAdapter_Query(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT \\* FROM").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "active", "meta"}).
			AddRow(int64(5), "Alice", true, []byte(`{"role":"admin"}`)).
			AddRow(int64(9), nil, false, []byte("plain text")),
	)

	base := &BaseSQLAdapter{DB: db}
	res, err := base.Query(context.Background(), `SELECT * FROM "users"`)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "active", "meta"}, res.Columns)
	assert.Equal(t, 2, res.RowCount)
	require.Len(t, res.Rows, 2)

	first := res.Rows[0]
	assert.Equal(t, float64(5), first[0].AsNumber())
	assert.Equal(t, "Alice", first[1].AsString())
	assert.True(t, first[2].AsBool())
	assert.Equal(t, core.KindOpaque, first[3].Kind())

	second := res.Rows[1]
	assert.True(t, second[1].IsNull())
	assert.Equal(t, "plain text", second[3].AsString())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("relation does not exist"))

	base := &BaseSQLAdapter{DB: db}
	_, err = base.Query(context.Background(), "SELECT * FROM missing")

	var qerr *core.QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Contains(t, err.Error(), "relation does not exist")
}

func TestScalarFromDriver(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want core.Scalar
	}{
		{name: "nil", in: nil, want: core.Null()},
		{name: "bool", in: true, want: core.Bool(true)},
		{name: "int64", in: int64(42), want: core.Number(42)},
		{name: "float64", in: 3.5, want: core.Number(3.5)},
		{name: "string", in: "abc", want: core.String("abc")},
		{name: "bytes as text", in: []byte("hello"), want: core.String("hello")},
		{name: "bytes as json object", in: []byte(`{"a":1}`), want: core.Opaque(json.RawMessage(`{"a":1}`))},
		{name: "bytes as json array", in: []byte(`[1,2]`), want: core.Opaque(json.RawMessage(`[1,2]`))},
		{name: "malformed json stays text", in: []byte(`{"a":`), want: core.String(`{"a":`)},
		{name: "time", in: ts, want: core.String("2024-03-01T12:30:00Z")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(ScalarFromDriver(tt.in)), "got %s", ScalarFromDriver(tt.in).Encode())
		})
	}
}
