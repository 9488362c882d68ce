package order

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("order not found")
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListRecent(ctx context.Context, limit, offset int) ([]Order, error)
	// UpdateStatus persists a lifecycle transition. Terminal orders are
	// guarded at the SQL level as well; concurrent operator edits are
	// last-write-wins beyond that.
	UpdateStatus(ctx context.Context, id string, next Status) error
	// ConfirmPayment reconciles a gateway callback: moves the order from
	// paid_pending_confirmation to processing and records the receipt.
	// Returns the order ID.
	ConfirmPayment(ctx context.Context, checkoutRequestID, receipt string) (string, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, o *Order) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	customer, err := json.Marshal(o.Customer)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
    INSERT INTO orders
      (id, invoice_number, customer, total_amount, status,
       payment_request_id, subscriber_phone, payment_outcome,
       mpesa_checkout_id, mpesa_receipt, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
  `, o.ID, o.InvoiceNumber, customer, o.TotalAmount.String(), o.Status,
		o.Payment.RequestID, o.Payment.SubscriberPhone, o.Payment.Outcome,
		o.Payment.GatewayRef, o.Payment.Receipt, o.CreatedAt); err != nil {
		return err
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
      INSERT INTO order_items (order_id, product_id, name, unit_price, quantity, line_total)
      VALUES ($1,$2,$3,$4,$5,$6)
    `, o.ID, it.ProductID, it.Name, it.UnitPrice.String(), it.Quantity, it.LineTotal.String()); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		o        Order
		customer []byte
		total    string
	)
	err := r.db.QueryRow(ctx, `
    SELECT id, invoice_number, customer, total_amount::text, status,
           payment_request_id, subscriber_phone, payment_outcome,
           COALESCE(mpesa_checkout_id,''), COALESCE(mpesa_receipt,''), created_at
    FROM orders WHERE id=$1
  `, id).Scan(&o.ID, &o.InvoiceNumber, &customer, &total, &o.Status,
		&o.Payment.RequestID, &o.Payment.SubscriberPhone, &o.Payment.Outcome,
		&o.Payment.GatewayRef, &o.Payment.Receipt, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(customer, &o.Customer); err != nil {
		return nil, err
	}
	if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, err
	}
	// The payment amount always equals the order total; not stored twice.
	o.Payment.Amount = o.TotalAmount

	rows, err := r.db.Query(ctx, `
    SELECT product_id, name, unit_price::text, quantity, line_total::text
    FROM order_items WHERE order_id=$1
    ORDER BY id
  `, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			it             Item
			price, lineStr string
		)
		if err := rows.Scan(&it.ProductID, &it.Name, &price, &it.Quantity, &lineStr); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		if it.LineTotal, err = decimal.NewFromString(lineStr); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return &o, rows.Err()
}

func (r *PGRepo) ListRecent(ctx context.Context, limit, offset int) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx, `
    SELECT id, invoice_number, customer, total_amount::text, status, created_at
    FROM orders
    ORDER BY created_at DESC LIMIT $1 OFFSET $2
  `, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var (
			o        Order
			customer []byte
			total    string
		)
		if err := rows.Scan(&o.ID, &o.InvoiceNumber, &customer, &total, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(customer, &o.Customer); err != nil {
			return nil, err
		}
		if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpdateStatus(ctx context.Context, id string, next Status) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if !next.Valid() {
		return ErrUnknownStatus
	}

	tag, err := r.db.Exec(ctx, `
    UPDATE orders SET status = $2
    WHERE id = $1 AND status NOT IN ($3, $4)
  `, id, next, StatusDelivered, StatusCancelled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing updated: the order is either missing or terminal.
	var current Status
	err = r.db.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrInvalidTransition
}

func (r *PGRepo) ConfirmPayment(ctx context.Context, checkoutRequestID, receipt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var id string
	err := r.db.QueryRow(ctx, `
    UPDATE orders
    SET status = $3, mpesa_receipt = $2
    WHERE mpesa_checkout_id = $1 AND status = $4
    RETURNING id
  `, checkoutRequestID, receipt, StatusProcessing, StatusPaidPendingConfirmation).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return id, nil
}
