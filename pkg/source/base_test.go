package source

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseSQLSource_Close(t *testing.T) {
	tests := []struct {
		name    string
		setupDB bool
	}{
		{name: "close with nil DB", setupDB: false},
		{name: "close with open DB", setupDB: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLSource{}

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

func TestBaseSQLSource_Count(t *testing.T) {
	tests := []struct {
		name      string
		setupDB   bool
		schema    string
		table     string
		setupMock func(mock sqlmock.Sqlmock)
		expected  int64
		errMsg    string
	}{
		{
			name:    "count without connection",
			setupDB: false,
			table:   "contacts",
			errMsg:  "database connection not established",
		},
		{
			name:    "count success",
			setupDB: true,
			table:   "contacts",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT COUNT(*) FROM "contacts"`).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(573))
			},
			expected: 573,
		},
		{
			name:    "count with schema",
			setupDB: true,
			schema:  "public",
			table:   "deals",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT COUNT(*) FROM "public"."deals"`).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
			},
			expected: 0,
		},
		{
			name:    "count query error",
			setupDB: true,
			table:   "teams",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT COUNT(*) FROM "teams"`).WillReturnError(assert.AnError)
			},
			errMsg: "failed to count teams",
		},
		{
			name:    "invalid identifier",
			setupDB: true,
			table:   "teams; DROP TABLE x",
			errMsg:  "invalid table identifier",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLSource{Cfg: Config{Schema: tt.schema}}

			if tt.setupDB {
				db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
				require.NoError(t, err)
				defer func() { _ = db.Close() }()
				if tt.setupMock != nil {
					tt.setupMock(mock)
				}
				base.DB = db
			}

			n, err := base.Count(context.Background(), tt.table)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, n)
		})
	}
}

func TestBaseSQLSource_Fetch(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT * FROM "contacts"`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "phone"}).
			AddRow(int64(1), "Ana, Silva", nil).
			AddRow(int64(2), []byte("Bruno"), "555"),
	)

	base := &BaseSQLSource{DB: db}
	recs, err := base.Fetch(context.Background(), "contacts")
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, []string{"id", "name", "phone"}, recs[0].Keys())

	phone, ok := recs[0].Get("phone")
	require.True(t, ok)
	assert.True(t, phone.IsNull())

	name, _ := recs[1].Get("name")
	assert.Equal(t, "Bruno", name.String())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLSource_FetchErrors(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		_, err := (&BaseSQLSource{}).Fetch(context.Background(), "contacts")
		assert.ErrorIs(t, err, ErrNotConnected)
	})

	t.Run("query error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)

		_, err = (&BaseSQLSource{DB: db}).Fetch(context.Background(), "contacts")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to query contacts")
	})

	t.Run("row error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		mock.ExpectQuery("SELECT").WillReturnRows(
			sqlmock.NewRows([]string{"id"}).AddRow(1).RowError(0, assert.AnError),
		)

		_, err = (&BaseSQLSource{DB: db}).Fetch(context.Background(), "contacts")
		require.Error(t, err)
	})
}

func TestQualifiedName(t *testing.T) {
	tests := []struct {
		schema, table, expected string
	}{
		{"", "contacts", `"contacts"`},
		{"public", "contacts", `"public"."contacts"`},
		{"public", "crm.contacts", `"crm"."contacts"`},
	}

	for _, tt := range tests {
		b := &BaseSQLSource{Cfg: Config{Schema: tt.schema}}
		got, err := b.QualifiedName(tt.table)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got)
	}
}

func TestValidateTable(t *testing.T) {
	for _, ok := range []string{"contacts", "team_members", "public.deals", "_x1"} {
		assert.NoError(t, ValidateTable(ok), ok)
	}
	for _, bad := range []string{"", "1abc", "a.b.c", `x"y`, "a b", "a;b"} {
		assert.Error(t, ValidateTable(bad), bad)
	}
}
