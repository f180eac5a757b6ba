package tenants

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// PostgresService implements the Service interface using PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

// Exists reports whether a tenant with the given ID exists
func (s *PostgresService) Exists(id string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check tenant: %w", err)
	}
	return exists, nil
}

// Get retrieves a tenant by ID
func (s *PostgresService) Get(id string) (*Tenant, error) {
	query := `SELECT id, name, status, created_at, updated_at FROM tenants WHERE id = $1`
	tenant := &Tenant{}
	err := s.db.QueryRow(query, id).Scan(
		&tenant.ID, &tenant.Name, &tenant.Status, &tenant.CreatedAt, &tenant.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tenant not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return tenant, nil
}

// Create inserts a new tenant
func (s *PostgresService) Create(tenant *Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	if tenant.Status == "" {
		tenant.Status = TenantStatusActive
	}

	query := `
		INSERT INTO tenants (id, name, status)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRow(query, tenant.ID, tenant.Name, tenant.Status).
		Scan(&tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// List lists all tenants, newest first
func (s *PostgresService) List() ([]*Tenant, error) {
	query := `SELECT id, name, status, created_at, updated_at FROM tenants ORDER BY created_at DESC`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var result []*Tenant
	for rows.Next() {
		tenant := &Tenant{}
		if err := rows.Scan(&tenant.ID, &tenant.Name, &tenant.Status,
			&tenant.CreatedAt, &tenant.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		result = append(result, tenant)
	}
	return result, rows.Err()
}
