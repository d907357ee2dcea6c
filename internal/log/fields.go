package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldChatID      = "chat_id"
	FieldUserID      = "user_id"
	FieldTelegramID  = "telegram_id"
	FieldCategory    = "category"
	FieldAccount     = "account"
	FieldAmount      = "amount"
	FieldType        = "type"
	FieldBudgetID    = "budget_id"
	FieldPeriod      = "period"
	FieldEventID     = "event_id"
	FieldTxID        = "transaction_id"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldSheetsRef   = "sheets_ref"
	FieldDuration    = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentBot     = "bot"
	ComponentParser  = "parser"
	ComponentBudget  = "budget"
	ComponentReport  = "report"
	ComponentStorage = "storage"
	ComponentEvents  = "events"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentCache   = "cache"
)

// Operations defines standard operation names
const (
	OpParse    = "parse"
	OpSave     = "save"
	OpEvaluate = "evaluate"
	OpReport   = "report"
	OpSummary  = "summary"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpMirror   = "mirror"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
