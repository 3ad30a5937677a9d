package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"elt-orchestration-service/internal/core/domain"
	ports "elt-orchestration-service/internal/core/ports/output"
)

type pluginSettingRepo struct {
	pool *pgxpool.Pool
}

// NewPluginSettingRepository creates a new PluginSettingRepository.
func NewPluginSettingRepository(pool *pgxpool.Pool) ports.PluginSettingRepository {
	return &pluginSettingRepo{pool: pool}
}

func (r *pluginSettingRepo) Upsert(ctx context.Context, ref domain.PluginRef, name, value string) error {
	query := `
		INSERT INTO plugin_setting
			(plugin_type, plugin_name, name, value, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (plugin_type, plugin_name, name)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query, ref.Type, ref.Name, name, value)
	if err != nil {
		return fmt.Errorf("upsert plugin setting: %w", err)
	}
	return nil
}

func (r *pluginSettingRepo) Unset(ctx context.Context, ref domain.PluginRef, name string) error {
	query := `
		DELETE FROM plugin_setting
		WHERE plugin_type = $1 AND plugin_name = $2 AND name = $3
	`

	if _, err := r.pool.Exec(ctx, query, ref.Type, ref.Name, name); err != nil {
		return fmt.Errorf("unset plugin setting: %w", err)
	}
	return nil
}

func (r *pluginSettingRepo) GetAll(ctx context.Context, ref domain.PluginRef) (map[string]string, error) {
	query := `
		SELECT name, value
		FROM plugin_setting
		WHERE plugin_type = $1 AND plugin_name = $2
	`

	rows, err := r.pool.Query(ctx, query, ref.Type, ref.Name)
	if err != nil {
		return nil, fmt.Errorf("get plugin settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan plugin setting row: %w", err)
		}
		settings[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plugin setting rows: %w", err)
	}

	return settings, nil
}
