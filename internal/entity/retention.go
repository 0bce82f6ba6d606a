package entity

// HistoryMode selects which ledger entries are in scope.
type HistoryMode string

const (
	HistoryAll     HistoryMode = "all"
	HistorySession HistoryMode = "session"
	HistoryCustom  HistoryMode = "custom"
)

// RetentionConfig is derived from Settings.HistoryMode/CustomRetentionTime.
type RetentionConfig struct {
	Mode       HistoryMode
	CustomDays int
}
