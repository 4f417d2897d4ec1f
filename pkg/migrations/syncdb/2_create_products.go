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
		log.Println("creating products table...")
		if err := mghelper.CreateSchema(ctx, db, &syncstore.ProductDao{}); err != nil {
			return err
		}
		// lookups by SKU happen once per synced payment
		return mghelper.CreateModelIndexes(ctx, db, &syncstore.ProductDao{}, "skn", "user_id")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping products table...")
		return mghelper.DropTables(ctx, db, &syncstore.ProductDao{})
	})
}
