package domain

import (
	"context"

	"freshledger/internal/core/id"
)

// Event types written to the outbox.
const (
	EventOrderOpened         = "OrderOpened"
	EventOrderConfirmed      = "OrderConfirmed"
	EventChargeCreated       = "ChargeCreated"
	EventPurchaseRecorded    = "PurchaseRecorded"
	EventInventoryLotCreated = "InventoryLotCreated"
	EventPaymentRecorded     = "PaymentRecorded"
)

// Event is a fact published after a committed state change.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// EventPublisher records events inside the caller's transaction.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Audit actions.
const (
	AuditCreate  = "create"
	AuditUpdate  = "update"
	AuditDelete  = "delete"
	AuditProject = "project"
)

// AuditRecorder stores a change record for an entity.
type AuditRecorder interface {
	RecordChange(ctx context.Context, entityType string, entityID id.ID, action string, changes map[string]any) error
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// NopAuditor discards audit records.
type NopAuditor struct{}

func (NopAuditor) RecordChange(context.Context, string, id.ID, string, map[string]any) error {
	return nil
}
