package handlers

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	FeeStructures *FeeStructureHandler
	Invoices      *InvoiceHandler
	Payments      *PaymentHandler
	Balances      *BalanceHandler
	Audit         *AuditHandler
	Health        *HealthHandler
}
