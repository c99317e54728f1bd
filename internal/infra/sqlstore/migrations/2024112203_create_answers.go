package migrations

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

type answer struct {
	bun.BaseModel `bun:"table:answers"`

	UserID    int64     `bun:"user_id,pk"`
	Ordinal   int       `bun:"ordinal,pk"`
	Label     string    `bun:"label,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.NewCreateTable().
				Model((*answer)(nil)).
				ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
				IfNotExists().
				Exec(ctx)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.NewDropTable().Model((*answer)(nil)).IfExists().Exec(ctx)
			return err
		},
	)
}
