package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type configurationRepository struct {
	db *database.DB
}

func NewConfigurationRepository(db *database.DB) payroll.ConfigurationRepository {
	return &configurationRepository{db: db}
}

func (r *configurationRepository) GetActive(ctx context.Context) (payroll.PayConfiguration, error) {
	q := GetQuerier(ctx, r.db)

	var c payroll.PayConfiguration
	err := q.QueryRow(ctx, `
		SELECT id, version, working_days, is_active, created_at
		FROM pay_configurations
		WHERE is_active
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&c.ID, &c.Version, &c.WorkingDays, &c.Active, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayConfiguration{}, payroll.ErrNoActiveConfiguration
		}
		return payroll.PayConfiguration{}, fmt.Errorf("failed to get active configuration: %w", err)
	}

	rows, err := q.Query(ctx, `
		SELECT id, name, kind, is_mandatory, percentage, fixed_amount, position
		FROM pay_items
		WHERE configuration_id = $1
		ORDER BY position, name
	`, c.ID)
	if err != nil {
		return payroll.PayConfiguration{}, fmt.Errorf("failed to list pay items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item        payroll.PayItem
			percentage  decimal.NullDecimal
			fixedAmount decimal.NullDecimal
		)
		if err := rows.Scan(&item.ID, &item.Name, &item.Kind, &item.Mandatory, &percentage, &fixedAmount, &item.Position); err != nil {
			return payroll.PayConfiguration{}, fmt.Errorf("failed to scan pay item: %w", err)
		}
		item.Percentage = nullableDecimal(percentage)
		item.FixedAmount = nullableDecimal(fixedAmount)
		c.Items = append(c.Items, item)
	}
	if err := rows.Err(); err != nil {
		return payroll.PayConfiguration{}, fmt.Errorf("failed to iterate pay items: %w", err)
	}

	return c, nil
}

func nullableDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
