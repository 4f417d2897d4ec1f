package syncdb

import (
	"context"
	"log"

	mghelper "github.com/paketkapinda/genova/pkg/pgutil/migrations"
	"github.com/paketkapinda/genova/pkg/syncstore"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating integrations table...")
		if err := mghelper.CreateSchema(ctx, db, &syncstore.IntegrationDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &syncstore.IntegrationDao{}, "provider,is_active", "user_id")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping integrations table...")
		return mghelper.DropTables(ctx, db, &syncstore.IntegrationDao{})
	})
}
