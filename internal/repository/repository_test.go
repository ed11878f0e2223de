package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quakepredictec/riesgo-dashboard/internal/database"
	"github.com/quakepredictec/riesgo-dashboard/internal/models"
)

func openTemp(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "state.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPreferenceRoundTrip(t *testing.T) {
	repo := NewPreferenceRepository(openTemp(t))

	_, err := repo.Get(models.PreferenceTheme)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Set(models.PreferenceTheme, models.ThemeDark))
	require.NoError(t, repo.Set(models.PreferenceTheme, models.ThemeLight))

	pref, err := repo.Get(models.PreferenceTheme)
	require.NoError(t, err)
	assert.Equal(t, models.ThemeLight, pref.Value)
	assert.False(t, pref.UpdatedAt.IsZero())
}

func TestSubscriptionsReplaceAndLookup(t *testing.T) {
	repo := NewSubscriptionRepository(openTemp(t))
	ana := models.User{Usuario: "ana", Correo: "ana@example.com"}
	luis := models.User{Usuario: "luis"}

	require.NoError(t, repo.Replace(context.Background(), ana, []string{"Quito", "Guayaquil"}))
	require.NoError(t, repo.Replace(context.Background(), luis, []string{"Quito"}))

	subs, err := repo.ListByUser("ana")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "Guayaquil", subs[0].Location)

	users, err := repo.SubscribersOf("quito")
	require.NoError(t, err)
	assert.Equal(t, []models.User{ana, luis}, users)

	ana.Correo = "ana@quakepredict.ec"
	require.NoError(t, repo.Replace(context.Background(), ana, []string{"Loja", "Loja"}))
	subs, err = repo.ListByUser("ana")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Loja", subs[0].Location)

	users, err = repo.SubscribersOf("Loja")
	require.NoError(t, err)
	assert.Equal(t, []models.User{ana}, users)

	users, err = repo.SubscribersOf("Tena")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestRepositoryErrorPaths(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("disk I/O error")

	mock.ExpectQuery("SELECT key, value, updated_at FROM client_state").WillReturnError(boom)
	_, err = NewPreferenceRepository(db).Get("theme")
	assert.ErrorIs(t, err, boom)

	mock.ExpectExec("INSERT INTO client_state").WillReturnError(boom)
	assert.ErrorIs(t, NewPreferenceRepository(db).Set("theme", "dark"), boom)

	subs := NewSubscriptionRepository(db)

	mock.ExpectQuery("SELECT user, location, created_at FROM subscriptions").WillReturnError(boom)
	_, err = subs.ListByUser("ana")
	assert.ErrorIs(t, err, boom)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM subscriptions").WillReturnError(boom)
	mock.ExpectRollback()
	assert.ErrorIs(t, subs.Replace(context.Background(), models.User{Usuario: "ana"}, []string{"Quito"}), boom)

	mock.ExpectQuery("SELECT s.user").
		WillReturnRows(sqlmock.NewRows([]string{"user", "correo"}).AddRow("ana", "a@x").RowError(0, boom))
	_, err = subs.SubscribersOf("Quito")
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}
