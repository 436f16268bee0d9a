package migrate_test

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/pennyekart/pennyekart-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	fsys := migrate.Migrations()
	matches, err := fs.Glob(fsys, "*_"+suffix+".sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := fs.ReadFile(fsys, matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestGodownStockMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_godown_stock"), []string{
		"CREATE TABLE IF NOT EXISTS godown_stock",
		"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE",
		"CHECK (quantity >= 0)",
		"DROP TABLE IF EXISTS godown_stock",
	})
}

func TestGodownMigrationRestrictsTypes(t *testing.T) {
	assertContains(t, readMigration(t, "create_godowns"), []string{
		"CHECK (godown_type IN ('micro', 'local', 'area'))",
		"UNIQUE (godown_id, local_body_id)",
		"UNIQUE (godown_id, local_body_id, ward_number)",
	})
}

func TestOrdersMigrationGuardsTransitions(t *testing.T) {
	assertContains(t, readMigration(t, "create_orders"), []string{
		"UNIQUE (user_id, idempotency_key)",
		"CONSTRAINT ux_order_transitions_target UNIQUE (order_id, to_status)",
		"CONSTRAINT ux_order_transitions_key UNIQUE (idempotency_key)",
	})
}

func TestWalletMigrationHasNoStoredBalance(t *testing.T) {
	content := readMigration(t, "create_delivery_staff")
	assertContains(t, content, []string{
		"CONSTRAINT ux_wallet_txn_idempotency UNIQUE (idempotency_key)",
		"CONSTRAINT chk_wallet_txn_amount CHECK (amount > 0)",
	})
	if strings.Contains(content, "balance") {
		t.Fatalf("wallet balance must be derived from transactions, not stored")
	}
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := migrate.ValidateFS(migrate.Migrations()); err != nil {
		t.Fatalf("expected embedded migrations to validate: %v", err)
	}
}

func TestEmbeddedMatchesSourceDir(t *testing.T) {
	embedded, err := fs.Glob(migrate.Migrations(), "*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	onDisk, err := fs.Glob(migrate.Source("migrations"), "*.sql")
	if err != nil {
		t.Fatalf("glob dir: %v", err)
	}
	if strings.Join(embedded, ",") != strings.Join(onDisk, ",") {
		t.Fatalf("embedded set %v differs from dir %v", embedded, onDisk)
	}
}
