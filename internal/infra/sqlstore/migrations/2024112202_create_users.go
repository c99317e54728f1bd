package migrations

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

type user struct {
	bun.BaseModel `bun:"table:users"`

	ID        int64     `bun:"id,pk"`
	Username  string    `bun:"username,notnull,default:''"`
	FirstName string    `bun:"first_name,notnull,default:''"`
	LastName  string    `bun:"last_name,notnull,default:''"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.NewCreateTable().Model((*user)(nil)).IfNotExists().Exec(ctx)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.NewDropTable().Model((*user)(nil)).IfExists().Exec(ctx)
			return err
		},
	)
}
