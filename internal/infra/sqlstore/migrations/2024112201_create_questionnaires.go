package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

type questionnaire struct {
	bun.BaseModel `bun:"table:questionnaires"`

	ID   string `bun:"id,pk"`
	Data []byte `bun:"data,type:jsonb,notnull"`
}

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.NewCreateTable().Model((*questionnaire)(nil)).IfNotExists().Exec(ctx)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.NewDropTable().Model((*questionnaire)(nil)).IfExists().Exec(ctx)
			return err
		},
	)
}
