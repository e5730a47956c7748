package migrate

import (
	"context"
	"fmt"
	"strings"

	"delegate-portal/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateExtensions       bool // pgcrypto, citext
	CreateChecks           bool // CHECK constraints
	CreateIndexes          bool
	CreateFKsViaSQL        bool
	CreateUpdatedAtTrigger bool
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateExtensions:       true,
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateFKsViaSQL:        true,
		CreateUpdatedAtTrigger: true,
	}
}

type step struct {
	name string
	sql  string
}

func MigratePortalDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("starting portal database migration")
	db = db.WithContext(ctx)

	if opt.CreateExtensions {
		if err := run(db, log, []step{
			{"extension pgcrypto", `CREATE EXTENSION IF NOT EXISTS pgcrypto`},
			{"extension citext", `CREATE EXTENSION IF NOT EXISTS citext`},
		}); err != nil {
			return err
		}
	}

	log.Info("creating tables")
	if err := db.AutoMigrate(
		&models.User{},
		&models.CatalogItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.PaymentRecord{},
		&models.WalletAccount{},
		&models.CreditTransaction{},
	); err != nil {
		log.Error("failed to create tables", zap.Error(err))
		return err
	}

	if opt.CreateUpdatedAtTrigger {
		steps := []step{{"function set_updated_at", `
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;
`}}
		for _, table := range []string{"orders", "wallet_accounts", "users", "catalog_items"} {
			steps = append(steps, step{"trigger updated_at " + table, fmt.Sprintf(`
DROP TRIGGER IF EXISTS trg_%[1]s_updated ON %[1]s;
CREATE TRIGGER trg_%[1]s_updated
BEFORE UPDATE ON %[1]s
FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`, table)})
		}
		if err := run(db, log, steps); err != nil {
			return err
		}
	}

	if opt.CreateChecks {
		if err := run(db, log, []step{
			{"check orders.status", addCheck("orders", "chk_orders_status_allowed", "status IN ("+statusList()+")")},
			{"check orders.total_amount", addCheck("orders", "chk_orders_total_non_negative", "total_amount >= 0")},
			{"check order_items.quantity", addCheck("order_items", "chk_order_items_quantity_gt_zero", "quantity > 0")},
			{"check order_items.price", addCheck("order_items", "chk_order_items_price_non_negative", "price >= 0")},
			{"check order_items.item_code", addCheck("order_items", "chk_order_items_item_code_not_empty", "char_length(item_code) > 0")},
			{"check wallet_accounts.credit", addCheck("wallet_accounts", "chk_wallet_accounts_credit_non_negative", "credit >= 0")},
			{"check credit_transactions.amount", addCheck("credit_transactions", "chk_credit_transactions_amount_positive", "amount > 0")},
			{"check credit_transactions.type", addCheck("credit_transactions", "chk_credit_transactions_type_allowed", "type IN ('purchase','top_up','transfer')")},
			{"check payment_records.gateway", addCheck("payment_records", "chk_payment_records_gateway_allowed", "gateway IN ('payhere','cybersource')")},
			{"check catalog_items.kind", addCheck("catalog_items", "chk_catalog_items_kind_allowed", "kind IN ('item','pack')")},
		}); err != nil {
			return err
		}
	}

	if opt.CreateIndexes {
		if err := run(db, log, []step{
			{"index orders(user_id, created_at)", `CREATE INDEX IF NOT EXISTS ix_orders_user_created ON orders (user_id, created_at DESC)`},
			{"index orders(status, created_at)", `CREATE INDEX IF NOT EXISTS ix_orders_status_created ON orders (status, created_at DESC)`},
			{"index payment_records(order_id, created_at)", `CREATE INDEX IF NOT EXISTS ix_payment_records_order_created ON payment_records (order_id, created_at)`},
			{"index credit_transactions(order_id)", `CREATE INDEX IF NOT EXISTS ix_credit_transactions_order ON credit_transactions (order_id) WHERE order_id IS NOT NULL`},
		}); err != nil {
			return err
		}
	}

	if opt.CreateFKsViaSQL {
		if err := run(db, log, []step{
			{"fk order_items.order_id", `
ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS fk_order_items_order,
  ADD CONSTRAINT fk_order_items_order
    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE;
`},
			{"fk payment_records.order_id", `
ALTER TABLE payment_records
  DROP CONSTRAINT IF EXISTS fk_payment_records_order,
  ADD CONSTRAINT fk_payment_records_order
    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE RESTRICT;
`},
			{"fk credit_transactions.order_id", `
ALTER TABLE credit_transactions
  DROP CONSTRAINT IF EXISTS fk_credit_transactions_order,
  ADD CONSTRAINT fk_credit_transactions_order
    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE RESTRICT;
`},
		}); err != nil {
			return err
		}
	}

	log.Info("portal database migration completed")
	return nil
}

func run(db *gorm.DB, log *zap.Logger, steps []step) error {
	for _, s := range steps {
		if err := db.Exec(s.sql).Error; err != nil {
			log.Error("migration step failed", zap.String("step", s.name), zap.Error(err))
			return fmt.Errorf("%s: %w", s.name, err)
		}
		log.Debug("migration step applied", zap.String("step", s.name))
	}
	return nil
}

func addCheck(table, name, expr string) string {
	return fmt.Sprintf(`
ALTER TABLE %[1]s DROP CONSTRAINT IF EXISTS %[2]s;
ALTER TABLE %[1]s ADD CONSTRAINT %[2]s CHECK (%[3]s);
`, table, name, expr)
}

func statusList() string {
	quoted := make([]string, 0, len(models.AllOrderStatuses))
	for _, s := range models.AllOrderStatuses {
		quoted = append(quoted, "'"+string(s)+"'")
	}
	return strings.Join(quoted, ",")
}
