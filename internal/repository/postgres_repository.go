package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/orders/internal/domain"
	"github.com/fjod/go_cart/orders/pkg/logger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type PostgresRepository struct {
	db     *sql.DB
	logger *zap.Logger
	tracer trace.Tracer
}

func NewPostgresRepository(cred *Credentials, l *zap.Logger) (*PostgresRepository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)

	r := NewPostgresRepositoryFromDB(db, l)
	r.logger.Info("connected to postgres", zap.String("host", cred.Host), zap.String("db", cred.DBName))
	return r, nil
}

func NewPostgresRepositoryFromDB(db *sql.DB, l *zap.Logger) *PostgresRepository {
	if l == nil {
		l = zap.NewNop()
	}
	return &PostgresRepository{
		db:     db,
		logger: l.Named("order_repository"),
		tracer: otel.Tracer("order_repository"),
	}
}

func (r *PostgresRepository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// Save upserts the order in one transaction. The existing order row is locked
// first so concurrent saves of the same order run one after the other; items
// are deleted and re-inserted on every update.
func (r *PostgresRepository) Save(ctx context.Context, order *domain.Order) (err error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Save")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", order.ID().String()),
		attribute.String("order.status", order.Status().String()),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	orderRow, addressRow, itemRows := ToPersistence(order)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logger.Error(ctx, r.logger, "rollback failed",
					zap.String("order_id", orderRow.OrderID), zap.Error(rbErr))
			}
		}
	}()

	var (
		addressID     int64
		storedStatus  string
		storedPayment sql.NullString
	)
	err = tx.QueryRowContext(ctx,
		`SELECT shipping_address_id, status, payment_id FROM orders WHERE order_id = $1 FOR UPDATE`,
		orderRow.OrderID,
	).Scan(&addressID, &storedStatus, &storedPayment)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = r.insertOrder(ctx, tx, &orderRow, addressRow)
	case err != nil:
		err = fmt.Errorf("lock order: %w", err)
	case storedStatus == domain.Paid().String() && orderRow.PaymentID != storedPayment:
		// a stored payment is never reverted or replaced
		err = fmt.Errorf("%w: order %s is already paid with %s", ErrOrderConflict, orderRow.OrderID, storedPayment.String)
	default:
		orderRow.ShippingAddressID = addressID
		addressRow.ID = addressID
		err = r.updateOrder(ctx, tx, orderRow, addressRow)
	}
	if err != nil {
		return err
	}

	if err = insertItems(ctx, tx, itemRows); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	logger.Debug(ctx, r.logger, "order saved",
		zap.String("order_id", orderRow.OrderID),
		zap.String("status", orderRow.Status),
		zap.Int("items", len(itemRows)))
	return nil
}

func (r *PostgresRepository) insertOrder(ctx context.Context, q queryer, row *OrderRow, addr ShippingAddressRow) error {
	err := q.QueryRowContext(ctx,
		`INSERT INTO shipping_addresses (street, address_line2, city, state_or_province, postal_code, country, delivery_instructions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		addr.Street,
		addr.AddressLine2,
		addr.City,
		addr.StateOrProvince,
		addr.PostalCode,
		addr.Country,
		addr.DeliveryInstructions,
	).Scan(&row.ShippingAddressID)
	if err != nil {
		return fmt.Errorf("insert shipping address: %w", err)
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO orders (order_id, cart_id, customer_id, status, payment_id, global_discount_amount, global_discount_currency, shipping_address_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`,
		row.OrderID,
		row.CartID,
		row.CustomerID,
		row.Status,
		row.PaymentID,
		row.GlobalDiscountAmount,
		row.GlobalDiscountCurrency,
		row.ShippingAddressID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrOrderConflict, pqErr.Constraint)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *PostgresRepository) updateOrder(ctx context.Context, q queryer, row OrderRow, addr ShippingAddressRow) error {
	_, err := q.ExecContext(ctx,
		`UPDATE shipping_addresses
		 SET street = $2, address_line2 = $3, city = $4, state_or_province = $5, postal_code = $6, country = $7, delivery_instructions = $8
		 WHERE id = $1`,
		addr.ID,
		addr.Street,
		addr.AddressLine2,
		addr.City,
		addr.StateOrProvince,
		addr.PostalCode,
		addr.Country,
		addr.DeliveryInstructions,
	)
	if err != nil {
		return fmt.Errorf("update shipping address: %w", err)
	}

	_, err = q.ExecContext(ctx,
		`UPDATE orders
		 SET status = $2, payment_id = $3, global_discount_amount = $4, global_discount_currency = $5, updated_at = NOW()
		 WHERE order_id = $1`,
		row.OrderID,
		row.Status,
		row.PaymentID,
		row.GlobalDiscountAmount,
		row.GlobalDiscountCurrency,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	if _, err = q.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, row.OrderID); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	return nil
}

func insertItems(ctx context.Context, q queryer, rows []OrderItemRow) error {
	for _, item := range rows {
		_, err := q.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, unit_price_amount, unit_price_currency, item_discount_amount, item_discount_currency)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.OrderID,
			item.ProductID,
			item.Quantity,
			item.UnitPriceAmount,
			item.UnitPriceCurrency,
			item.ItemDiscountAmount,
			item.ItemDiscountCurrency,
		)
		if err != nil {
			return fmt.Errorf("insert order item %s: %w", item.ProductID, err)
		}
	}
	return nil
}

const selectOrder = `SELECT order_id, cart_id, customer_id, status, payment_id, global_discount_amount, global_discount_currency, shipping_address_id, created_at, updated_at
	FROM orders`

func (r *PostgresRepository) FindByID(ctx context.Context, id domain.OrderID) (*domain.Order, bool, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.FindByID")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id.String()))

	order, found, err := r.load(ctx, selectOrder+` WHERE order_id = $1`, id.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return order, found, err
}

func (r *PostgresRepository) FindByCartID(ctx context.Context, cartID domain.CartID) (*domain.Order, bool, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.FindByCartID")
	defer span.End()
	span.SetAttributes(attribute.String("cart.id", cartID.String()))

	order, found, err := r.load(ctx, selectOrder+` WHERE cart_id = $1`, cartID.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return order, found, err
}

// load reads the order row, its address row and its item rows from one
// read-only snapshot before mapping them.
func (r *PostgresRepository) load(ctx context.Context, query string, arg string) (order *domain.Order, found bool, err error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var row OrderRow
	err = tx.QueryRowContext(ctx, query, arg).Scan(
		&row.OrderID,
		&row.CartID,
		&row.CustomerID,
		&row.Status,
		&row.PaymentID,
		&row.GlobalDiscountAmount,
		&row.GlobalDiscountCurrency,
		&row.ShippingAddressID,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		if err = tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("commit: %w", err)
		}
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query order: %w", err)
	}

	address, err := loadAddress(ctx, tx, row.ShippingAddressID)
	if err != nil {
		return nil, false, err
	}

	items, err := loadItems(ctx, tx, row.OrderID)
	if err != nil {
		return nil, false, err
	}

	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}

	order, err = ToDomain(row, items, address)
	if err != nil {
		logger.Error(ctx, r.logger, "corrupt order in storage", zap.String("order_id", row.OrderID), zap.Error(err))
		return nil, false, err
	}
	return order, true, nil
}

// loadAddress returns nil without error when the row is missing so the mapper
// can report the integrity failure.
func loadAddress(ctx context.Context, q queryer, id int64) (*ShippingAddressRow, error) {
	var a ShippingAddressRow
	err := q.QueryRowContext(ctx,
		`SELECT id, street, address_line2, city, state_or_province, postal_code, country, delivery_instructions
		 FROM shipping_addresses WHERE id = $1`, id,
	).Scan(
		&a.ID,
		&a.Street,
		&a.AddressLine2,
		&a.City,
		&a.StateOrProvince,
		&a.PostalCode,
		&a.Country,
		&a.DeliveryInstructions,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query shipping address: %w", err)
	}
	return &a, nil
}

func loadItems(ctx context.Context, q queryer, orderID string) ([]OrderItemRow, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, order_id, product_id, quantity, unit_price_amount, unit_price_currency, item_discount_amount, item_discount_currency
		 FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItemRow
	for rows.Next() {
		var it OrderItemRow
		if err := rows.Scan(
			&it.ID,
			&it.OrderID,
			&it.ProductID,
			&it.Quantity,
			&it.UnitPriceAmount,
			&it.UnitPriceCurrency,
			&it.ItemDiscountAmount,
			&it.ItemDiscountCurrency,
		); err != nil {
			return nil, fmt.Errorf("scan order item row: %w", err)
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
