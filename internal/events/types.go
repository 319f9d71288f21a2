// Package events provides event management functionality.
package events

// EventType identifies what happened
type EventType string

const (
	// AccountRegistered is emitted after a new account is durably created
	AccountRegistered EventType = "ACCOUNT_REGISTERED"
	// TradeExecuted is emitted after a buy or sell is durably saved
	TradeExecuted EventType = "TRADE_EXECUTED"
	// PortfolioLiquidated is emitted after a liquidation is durably saved
	PortfolioLiquidated EventType = "PORTFOLIO_LIQUIDATED"
	// BackupCompleted is emitted after a ledger backup has been uploaded
	BackupCompleted EventType = "BACKUP_COMPLETED"
	// ErrorOccurred is emitted when a background job fails
	ErrorOccurred EventType = "ERROR_OCCURRED"
)

// AllEventTypes lists every event type, in the order clients see them documented
var AllEventTypes = []EventType{
	AccountRegistered,
	TradeExecuted,
	PortfolioLiquidated,
	BackupCompleted,
	ErrorOccurred,
}

// ParseEventType returns the known event type named s
func ParseEventType(s string) (EventType, bool) {
	for _, t := range AllEventTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}
