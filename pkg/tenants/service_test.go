package tenants

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewPostgresService(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := service.Exists("tenant-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExists_Missing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewPostgresService(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := service.Exists("ghost")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExists_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewPostgresService(db)

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnError(errors.New("database error"))

	_, err = service.Exists("tenant-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check tenant")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewPostgresService(db)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM tenants WHERE id").
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status", "created_at", "updated_at"}).
			AddRow("tenant-1", "Acme", "active", now, now))

	tenant, err := service.Get("tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", tenant.Name)
	assert.Equal(t, TenantStatusActive, tenant.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewPostgresService(db)

	mock.ExpectQuery("SELECT (.+) FROM tenants WHERE id").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status", "created_at", "updated_at"}))

	_, err = service.Get("ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewPostgresService(db)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO tenants").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	tenant := &Tenant{Name: "Acme"}
	err = service.Create(tenant)
	require.NoError(t, err)

	// ID and status are defaulted when not supplied
	assert.NotEmpty(t, tenant.ID)
	assert.Equal(t, TenantStatusActive, tenant.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewPostgresService(db)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM tenants ORDER BY").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status", "created_at", "updated_at"}).
			AddRow("tenant-2", "Beta", "active", now, now).
			AddRow("tenant-1", "Acme", "suspended", now, now))

	result, err := service.List()
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "tenant-2", result[0].ID)
	assert.Equal(t, TenantStatusSuspended, result[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
