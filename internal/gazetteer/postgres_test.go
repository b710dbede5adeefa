package gazetteer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/address-tagger/internal/phonetic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLStore(context.Background(), db, DefaultPriority(), phonetic.NewEncoder(), zap.NewNop())
	require.NoError(t, err)
	return store, mock
}

func TestSQLStore_ClassifyExactUsesPriority(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT DISTINCT category FROM gazetteer_names`).
		WithArgs("HYDERABAD", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"category"}).AddRow("district").AddRow("city"))

	got, ok := store.ClassifyExact("Hyderabad")
	assert.True(t, ok)
	assert.Equal(t, City, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ClassifyExactMiss(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT DISTINCT category FROM gazetteer_names`).
		WithArgs("GOTHAM", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"category"}))

	_, ok := store.ClassifyExact("Gotham")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_NameIsNeverInterpolated(t *testing.T) {
	store, mock := newMockStore(t)
	hostile := `X" OR 1=1 --`

	mock.ExpectQuery(`WHERE name = \$1 AND category = ANY\(\$2\)`).
		WithArgs(`X" OR 1=1 --`, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"category"}))

	_, ok := store.ClassifyExact(hostile)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ClassifyPhonetic(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`metaphone1 = ANY\(\$2\) OR metaphone2 = ANY\(\$2\)`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"category"}).AddRow("village"))

	got, ok := store.ClassifyPhonetic("Hyderbad")
	assert.True(t, ok)
	assert.Equal(t, Village, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_PhoneticSkipsQueryWithoutCodes(t *testing.T) {
	store, mock := newMockStore(t)

	_, ok := store.ClassifyPhonetic("500032")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_DriverErrorIsAMiss(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT DISTINCT category`).WillReturnError(errors.New("connection reset"))

	_, ok := store.ClassifyExact("Hyderabad")
	assert.False(t, ok)
}

func TestSQLStore_SlowLookupIsAMiss(t *testing.T) {
	store, mock := newMockStore(t)
	store.lookupTimeout = 10 * time.Millisecond

	mock.ExpectQuery(`SELECT DISTINCT category`).
		WillDelayFor(time.Second).
		WillReturnRows(sqlmock.NewRows([]string{"category"}).AddRow("city"))

	start := time.Now()
	_, ok := store.ClassifyExact("Hyderabad")
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestSQLStore_ClassifyExactKeepsWhitespace(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT DISTINCT category FROM gazetteer_names`).
		WithArgs("HYDERABAD ", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"category"}))

	_, ok := store.ClassifyExact("Hyderabad ")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_InsertEntries(t *testing.T) {
	store, mock := newMockStore(t)
	codes := phonetic.NewEncoder().Encode("Warangal")

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO gazetteer_names`)
	prep.ExpectExec().
		WithArgs("district", "WARANGAL", codes.Primary, codes.Secondary).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	n, err := store.InsertEntries(context.Background(), []Entry{
		{Name: "Warangal", Category: District},
		{Name: "", Category: City},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_Load(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT category, name FROM gazetteer_names`).
		WillReturnRows(sqlmock.NewRows([]string{"category", "name"}).
			AddRow("state", "TELANGANA").
			AddRow("city", "HYDERABAD"))

	entries, err := (&PostgresSource{DB: db}).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Name: "TELANGANA", Category: State},
		{Name: "HYDERABAD", Category: City},
	}, entries)
}

func TestSQLStore_Fingerprint(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE\(md5`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(int64(3), "abc123"))

	got, err := store.Fingerprint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "md5:3:abc123", got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_FingerprintError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).WillReturnError(errors.New("relation does not exist"))

	_, err := store.Fingerprint(context.Background())
	assert.ErrorContains(t, err, "fingerprint gazetteer")
}
