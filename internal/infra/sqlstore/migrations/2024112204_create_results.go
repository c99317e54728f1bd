package migrations

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

type result struct {
	bun.BaseModel `bun:"table:results"`

	ID         string    `bun:"id,pk"`
	UserID     int64     `bun:"user_id,notnull"`
	ResultType string    `bun:"result_type,notnull"`
	Answers    string    `bun:"answers,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.NewCreateTable().
				Model((*result)(nil)).
				ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return err
			}
			_, err = db.NewCreateIndex().
				Model((*result)(nil)).
				Index("results_user_id_created_at_idx").
				Column("user_id", "created_at").
				IfNotExists().
				Exec(ctx)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.NewDropTable().Model((*result)(nil)).IfExists().Exec(ctx)
			return err
		},
	)
}
