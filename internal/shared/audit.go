package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Audit actions recorded by the POS modules.
const (
	AuditSaleCreated       = "sale.created"
	AuditPurchaseRecorded  = "purchase.recorded"
	AuditStockAdjusted     = "stock.adjusted"
	AuditProductCreated    = "product.created"
	AuditProductUpdated    = "product.updated"
	AuditProductDeleted    = "product.deleted"
	AuditProductReactivate = "product.reactivated"
	AuditUserCreated       = "user.created"
	AuditUserUpdated       = "user.updated"
	AuditUserDeleted       = "user.deleted"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry. When log.ActorID is zero the actor is taken
// from context, so handlers can pass only action and entity.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	if log.ActorID == 0 {
		if actor := ActorFromContext(ctx); actor != nil {
			log.ActorID = actor.UserID
		}
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`, log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, at)
	return err
}
