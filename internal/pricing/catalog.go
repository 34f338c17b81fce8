package pricing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/orders/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

var ErrProductNotFound = errors.New("product not found")

// CatalogGateway prices checkouts from a local SQLite catalog.
type CatalogGateway struct {
	db *sql.DB
}

var _ domain.PricingGateway = (*CatalogGateway)(nil)

func NewCatalogGateway(dsn string) (*CatalogGateway, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	return &CatalogGateway{db: db}, nil
}

func (g *CatalogGateway) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(g.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (g *CatalogGateway) ProductPrice(ctx context.Context, productID domain.ProductID) (domain.Money, error) {
	var amount, currency string
	err := g.db.QueryRowContext(ctx,
		`SELECT price_amount, currency FROM products WHERE product_id = ?`,
		productID.String(),
	).Scan(&amount, &currency)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Money{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	if err != nil {
		return domain.Money{}, fmt.Errorf("query product price: %w", err)
	}
	return domain.ParseMoney(amount, currency)
}

// ProductDiscount returns the largest discount whose minimum quantity is met,
// capped at the line's gross amount. Zero when nothing applies.
func (g *CatalogGateway) ProductDiscount(ctx context.Context, productID domain.ProductID, customerID domain.CustomerID, quantity domain.Quantity) (domain.Money, error) {
	price, err := g.ProductPrice(ctx, productID)
	if err != nil {
		return domain.Money{}, err
	}

	best, err := g.bestAmount(ctx,
		`SELECT discount_amount FROM product_discounts
		 WHERE product_id = ? AND (customer_id IS NULL OR customer_id = ?) AND min_quantity <= ?`,
		productID.String(), customerID.String(), quantity.Int(),
	)
	if err != nil {
		return domain.Money{}, fmt.Errorf("query product discounts: %w", err)
	}

	gross := price.Multiply(quantity).Amount()
	return domain.NewMoney(decimal.Min(best, gross), price.Currency())
}

// OrderDiscount returns the largest order-level discount whose minimum total is
// met, capped at the order total.
func (g *CatalogGateway) OrderDiscount(ctx context.Context, customerID domain.CustomerID, orderTotal domain.Money) (domain.Money, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT min_total_amount, discount_amount FROM order_discounts
		 WHERE currency = ? AND (customer_id IS NULL OR customer_id = ?)`,
		orderTotal.Currency(), customerID.String(),
	)
	if err != nil {
		return domain.Money{}, fmt.Errorf("query order discounts: %w", err)
	}
	defer rows.Close()

	best := decimal.Zero
	for rows.Next() {
		var minTotal, discount string
		if err := rows.Scan(&minTotal, &discount); err != nil {
			return domain.Money{}, fmt.Errorf("scan order discount: %w", err)
		}
		threshold, err := decimal.NewFromString(minTotal)
		if err != nil {
			return domain.Money{}, fmt.Errorf("order discount threshold %q: %w", minTotal, err)
		}
		amount, err := decimal.NewFromString(discount)
		if err != nil {
			return domain.Money{}, fmt.Errorf("order discount amount %q: %w", discount, err)
		}
		if orderTotal.Amount().GreaterThanOrEqual(threshold) && amount.GreaterThan(best) {
			best = amount
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Money{}, fmt.Errorf("row iteration error: %w", err)
	}

	return domain.NewMoney(decimal.Min(best, decimal.Max(orderTotal.Amount(), decimal.Zero)), orderTotal.Currency())
}

func (g *CatalogGateway) bestAmount(ctx context.Context, query string, args ...any) (decimal.Decimal, error) {
	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	best := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, err
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("discount amount %q: %w", raw, err)
		}
		if amount.GreaterThan(best) {
			best = amount
		}
	}
	return best, rows.Err()
}

func (g *CatalogGateway) Close() error {
	return g.db.Close()
}
