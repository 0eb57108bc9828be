package sos

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"backend-heggeo/internal/db"
	"backend-heggeo/internal/location"
	"backend-heggeo/internal/share"
	"backend-heggeo/internal/shared/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const configColumns = `id, owner_id, name, target_phone, contact_name, user_name, default_situation, is_default, created_at`

type Addresser interface {
	Address(ctx context.Context, p geo.Point) (string, bool)
}

type Service struct {
	db      db.TxQuerier
	address Addresser
	appLink string
}

func NewService(db db.TxQuerier, address Addresser, appLink string) *Service {
	return &Service{db: db, address: address, appLink: appLink}
}

func (s *Service) List(ctx context.Context, owner string) ([]Config, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+configColumns+`
		FROM sos_configs WHERE owner_id=$1
		ORDER BY created_at
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	configs := []Config{}
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

// Create stores a config. The owner's first config becomes the default.
func (s *Service) Create(ctx context.Context, owner string, input Input) (Config, error) {
	in, err := input.normalize()
	if err != nil {
		return Config{}, err
	}
	cfg := configFrom(uuid.NewString(), owner, in)
	err = s.inOwnerTx(ctx, owner, func(q db.Querier) error {
		row := q.QueryRow(ctx, `
			INSERT INTO sos_configs (id, owner_id, name, target_phone, contact_name, user_name, default_situation, is_default)
			VALUES ($1,$2,$3,$4,$5,$6,$7,
				NOT EXISTS (SELECT 1 FROM sos_configs WHERE owner_id=$2 AND is_default))
			RETURNING is_default, created_at
		`, cfg.ID, cfg.OwnerID, cfg.Name, cfg.TargetPhoneNumber, cfg.ContactDisplayName, cfg.UserName, cfg.DefaultSituation)
		if err := row.Scan(&cfg.IsDefault, &cfg.CreatedAt); err != nil {
			return err
		}
		if in.IsDefault && !cfg.IsDefault {
			if err := setDefault(ctx, q, owner, cfg.ID); err != nil {
				return err
			}
			cfg.IsDefault = true
		}
		return nil
	})
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (s *Service) Update(ctx context.Context, owner, id string, input Input) (Config, error) {
	in, err := input.normalize()
	if err != nil {
		return Config{}, err
	}
	cfg := configFrom(id, owner, in)
	err = s.inOwnerTx(ctx, owner, func(q db.Querier) error {
		row := q.QueryRow(ctx, `
			UPDATE sos_configs
			SET name=$3, target_phone=$4, contact_name=$5, user_name=$6, default_situation=$7
			WHERE id=$1 AND owner_id=$2
			RETURNING is_default, created_at
		`, cfg.ID, cfg.OwnerID, cfg.Name, cfg.TargetPhoneNumber, cfg.ContactDisplayName, cfg.UserName, cfg.DefaultSituation)
		if err := row.Scan(&cfg.IsDefault, &cfg.CreatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if in.IsDefault && !cfg.IsDefault {
			if err := setDefault(ctx, q, owner, id); err != nil {
				return err
			}
			cfg.IsDefault = true
		}
		return nil
	})
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Delete removes a config. Removing the default promotes the oldest
// remaining config.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	return s.inOwnerTx(ctx, owner, func(q db.Querier) error {
		var wasDefault bool
		err := q.QueryRow(ctx, `
			DELETE FROM sos_configs WHERE id=$1 AND owner_id=$2
			RETURNING is_default
		`, id, owner).Scan(&wasDefault)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil || !wasDefault {
			return err
		}

		_, err = q.Exec(ctx, `
			UPDATE sos_configs SET is_default=true
			WHERE id = (SELECT id FROM sos_configs WHERE owner_id=$1 ORDER BY created_at LIMIT 1)
		`, owner)
		return err
	})
}

func (s *Service) SetDefault(ctx context.Context, owner, id string) error {
	return s.inOwnerTx(ctx, owner, func(q db.Querier) error {
		return setDefault(ctx, q, owner, id)
	})
}

// setDefault clears the old default before setting the new one so the
// one-default index holds after every statement.
func setDefault(ctx context.Context, q db.Querier, owner, id string) error {
	if _, err := q.Exec(ctx, `UPDATE sos_configs SET is_default=false WHERE owner_id=$1 AND is_default AND id<>$2`, owner, id); err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `UPDATE sos_configs SET is_default=true WHERE owner_id=$1 AND id=$2`, owner, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// inOwnerTx runs fn in a transaction holding the owner's advisory lock, so
// default bookkeeping from concurrent requests never interleaves.
func (s *Service) inOwnerTx(ctx context.Context, owner string, fn func(q db.Querier) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, owner); err != nil {
		return fmt.Errorf("lock owner: %w", err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Service) Default(ctx context.Context, owner string) (Config, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+configColumns+`
		FROM sos_configs WHERE owner_id=$1 AND is_default
		LIMIT 1
	`, owner)
	cfg, err := scanConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Config{}, ErrNoDefault
	}
	return cfg, err
}

// Trigger prepares the default config's message for loc.
func (s *Service) Trigger(ctx context.Context, owner string, loc *geo.Point) (Alert, error) {
	if loc == nil {
		return Alert{}, location.ErrNoLocation
	}
	cfg, err := s.Default(ctx, owner)
	if err != nil {
		return Alert{}, err
	}

	locationText := share.CoordinatesLabel(loc.Latitude, loc.Longitude, 5)
	if s.address != nil {
		if name, ok := s.address.Address(ctx, *loc); ok {
			locationText = name
		}
	}
	msg := Message(cfg, locationText, share.MapsLink(loc.Latitude, loc.Longitude), s.appLink)
	return Alert{
		ConfigName: cfg.Name,
		Message:    msg,
		URL:        share.WhatsAppURL(cfg.TargetPhoneNumber, msg),
	}, nil
}

func Message(cfg Config, locationText, mapsLink, appLink string) string {
	return strings.Join([]string{
		cfg.ContactDisplayName + ",",
		"It Is " + cfg.UserName + ",",
		"I am in " + cfg.DefaultSituation,
		"Find me here: " + locationText + " (" + mapsLink + ")",
		share.Hashtag + " Link: " + appLink,
	}, "\n")
}

func configFrom(id, owner string, in Input) Config {
	return Config{
		ID:                 id,
		OwnerID:            owner,
		Name:               in.Name,
		TargetPhoneNumber:  in.TargetPhoneNumber,
		ContactDisplayName: in.ContactDisplayName,
		UserName:           in.UserName,
		DefaultSituation:   in.DefaultSituation,
	}
}

func scanConfig(row pgx.Row) (Config, error) {
	var c Config
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.TargetPhoneNumber, &c.ContactDisplayName, &c.UserName, &c.DefaultSituation, &c.IsDefault, &c.CreatedAt)
	return c, err
}
