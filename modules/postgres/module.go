// Package postgres provides a unit that records the configuration as a
// jsonb row in PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/vk/dashboot/internal/config"
	"github.com/vk/dashboot/internal/ctxlog"
	"github.com/vk/dashboot/internal/registry"
)

const defaultTable = "dashboot_configurations"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the postgres unit.
type Input struct {
	DSN         string `hcl:"dsn"`
	Table       string `hcl:"table,optional"`
	CreateTable *bool  `hcl:"create_table,optional"`
}

// Unit inserts the configuration into a table.
type Unit struct {
	connConfig  *pgx.ConnConfig
	table       pgx.Identifier
	createTable bool
}

// NewUnit parses the DSN and table name. No connection is made until Run.
func NewUnit(_ context.Context, input *Input) (*Unit, error) {
	connConfig, err := pgx.ParseConfig(input.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid dsn: %w", err)
	}

	table := input.Table
	if table == "" {
		table = defaultTable
	}

	createTable := true
	if input.CreateTable != nil {
		createTable = *input.CreateTable
	}

	return &Unit{
		connConfig:  connConfig,
		table:       pgx.Identifier(strings.Split(table, ".")),
		createTable: createTable,
	}, nil
}

func (u *Unit) createStatement() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id bigserial PRIMARY KEY,
	received_at timestamptz NOT NULL DEFAULT now(),
	document jsonb NOT NULL
)`, u.table.Sanitize())
}

func (u *Unit) insertStatement() string {
	return fmt.Sprintf(`INSERT INTO %s (document) VALUES ($1) RETURNING id`, u.table.Sanitize())
}

// Run stores cfg and closes the connection.
func (u *Unit) Run(ctx context.Context, cfg *config.Configuration) error {
	logger := ctxlog.FromContext(ctx).With("host", u.connConfig.Host, "database", u.connConfig.Database, "table", u.table.Sanitize())

	conn, err := pgx.ConnectConfig(ctx, u.connConfig)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer conn.Close(context.WithoutCancel(ctx))

	if u.createTable {
		if _, err := conn.Exec(ctx, u.createStatement()); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	var id int64
	if err := conn.QueryRow(ctx, u.insertStatement(), string(cfg.Raw())).Scan(&id); err != nil {
		return fmt.Errorf("insert configuration: %w", err)
	}

	logger.Info("Configuration recorded", "id", id)
	return nil
}

// Register registers the unit with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterUnit("postgres", &registry.Registered{
		Description: "record the configuration as a jsonb row in PostgreSQL",
		NewInput:    func() any { return new(Input) },
		New: func(ctx context.Context, input any) (registry.Unit, error) {
			return NewUnit(ctx, input.(*Input))
		},
	})
}
