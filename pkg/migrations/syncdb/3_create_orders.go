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
		log.Println("creating orders table...")
		if err := mghelper.CreateSchema(ctx, db, &syncstore.OrderDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &syncstore.OrderDao{}, "user_id", "product_id")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping orders table...")
		return mghelper.DropTables(ctx, db, &syncstore.OrderDao{})
	})
}
