// File: models/audit.go
package models

import "time"

// AuditAction is the closed set of ledger mutations recorded in the audit log.
type AuditAction string

const (
	ActionFeeStructureCreated     AuditAction = "fee_structure_created"
	ActionFeeStructureUpdated     AuditAction = "fee_structure_updated"
	ActionFeeStructureDeactivated AuditAction = "fee_structure_deactivated"
	ActionInvoiceGenerated        AuditAction = "invoice_generated"
	ActionInvoiceBulkGenerated    AuditAction = "invoice_bulk_generated"
	ActionInvoiceUpdated          AuditAction = "invoice_updated"
	ActionInvoiceCancelled        AuditAction = "invoice_cancelled"
	ActionLateFeeApplied          AuditAction = "late_fee_applied"
	ActionPaymentCollected        AuditAction = "payment_collected"
	ActionPaymentUpdated          AuditAction = "payment_updated"
	ActionPaymentConfirmed        AuditAction = "payment_confirmed"
	ActionPaymentReversed         AuditAction = "payment_reversed"
	ActionBalanceUpdated          AuditAction = "balance_updated"
	ActionBalanceCarriedForward   AuditAction = "balance_carried_forward"
)

// EntityKind is the closed set of entities an audit entry can point at.
type EntityKind string

const (
	EntityFeeStructure   EntityKind = "FeeStructure"
	EntityInvoice        EntityKind = "Invoice"
	EntityPayment        EntityKind = "Payment"
	EntityStudentBalance EntityKind = "StudentBalance"
)

// ParseEntityKind accepts the kind names used in URLs.
func ParseEntityKind(raw string) (EntityKind, bool) {
	switch raw {
	case "FeeStructure", "fee-structure", "structure", "structures":
		return EntityFeeStructure, true
	case "Invoice", "invoice", "invoices":
		return EntityInvoice, true
	case "Payment", "payment", "payments":
		return EntityPayment, true
	case "StudentBalance", "balance", "balances":
		return EntityStudentBalance, true
	}
	return "", false
}

// EntityRef is a typed reference to an audited entity. Build it with the
// constructors below rather than by hand.
type EntityRef struct {
	Kind EntityKind
	ID   string
}

func FeeStructureRef(fs *FeeStructure) EntityRef { return EntityRef{Kind: EntityFeeStructure, ID: fs.ID} }
func InvoiceRef(inv *Invoice) EntityRef          { return EntityRef{Kind: EntityInvoice, ID: inv.ID} }
func PaymentRef(p *Payment) EntityRef            { return EntityRef{Kind: EntityPayment, ID: p.ID} }

// BulkInvoiceRef points at a bulk generation run for a class.
func BulkInvoiceRef(classID, session string) EntityRef {
	return EntityRef{Kind: EntityInvoice, ID: "bulk:" + classID + ":" + session}
}

// StudentBalanceRef points at a student's balance for a session.
func StudentBalanceRef(studentID, session string) EntityRef {
	return EntityRef{Kind: EntityStudentBalance, ID: studentID + ":" + session}
}

// AuditLog is a write-once record of a ledger mutation.
type AuditLog struct {
	ID         string         `bson:"id" json:"id"`
	TenantID   string         `bson:"tenantId" json:"tenantId"`
	Timestamp  time.Time      `bson:"timestamp" json:"timestamp"`
	Action     AuditAction    `bson:"action" json:"action"`
	EntityType EntityKind     `bson:"entityType" json:"entityType"`
	EntityID   string         `bson:"entityId" json:"entityId"`
	UserID     string         `bson:"userId" json:"userId"`
	UserName   string         `bson:"userName,omitempty" json:"userName,omitempty"`
	UserRole   string         `bson:"userRole,omitempty" json:"userRole,omitempty"`
	Details    map[string]any `bson:"details,omitempty" json:"details,omitempty"`
	IPAddress  string         `bson:"ipAddress,omitempty" json:"ipAddress,omitempty"`
	UserAgent  string         `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
}

// AuditQuery filters a user's activity. Zero values mean "no filter".
type AuditQuery struct {
	StartDate time.Time
	EndDate   time.Time
	Action    AuditAction
	Limit     int
}
