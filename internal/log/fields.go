package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldUserID      = "user_id"
	FieldMonth       = "month"
	FieldAmountCents = "amount_cents"
	FieldCategory    = "category"
	FieldGoalID      = "goal_id"
	FieldBudgetID    = "budget_id"
	FieldEventID     = "event_id"
	FieldPlan        = "plan"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentStorage   = "storage"
	ComponentAuth      = "auth"
	ComponentLedger    = "ledger"
	ComponentBudget    = "budget"
	ComponentGoal      = "goal"
	ComponentBilling   = "billing"
	ComponentAMQP      = "amqp"
	ComponentMail      = "mail"
	ComponentWorker    = "worker"
	ComponentRecurring = "recurring"
	ComponentCache     = "cache"
)
