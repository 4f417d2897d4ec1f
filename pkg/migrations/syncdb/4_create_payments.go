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
		log.Println("creating payments table...")
		if err := mghelper.CreateSchema(ctx, db, &syncstore.PaymentDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &syncstore.PaymentDao{}, "user_id", "order_id")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping payments table...")
		return mghelper.DropTables(ctx, db, &syncstore.PaymentDao{})
	})
}
