package events

import (
	"encoding/json"
)

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// AccountRegisteredData contains data for AccountRegistered events
type AccountRegisteredData struct {
	UserID         string `json:"user_id"`
	DisplayName    string `json:"display_name"`
	InitialBalance string `json:"initial_balance"`
}

// EventType returns the event type for AccountRegisteredData
func (d *AccountRegisteredData) EventType() EventType {
	return AccountRegistered
}

// TradeExecutedData contains data for TradeExecuted events.
// Decimal values are carried as strings.
type TradeExecutedData struct {
	TradeID     string `json:"trade_id"`
	UserID      string `json:"user_id"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	Action      string `json:"action"`
	Quantity    string `json:"quantity"`
	Price       string `json:"price"`
	CashDelta   string `json:"cash_delta"`
	CashBalance string `json:"cash_balance"`
}

// EventType returns the event type for TradeExecutedData
func (d *TradeExecutedData) EventType() EventType {
	return TradeExecuted
}

// PortfolioLiquidatedData contains data for PortfolioLiquidated events
type PortfolioLiquidatedData struct {
	UserID      string   `json:"user_id"`
	Closed      int      `json:"closed"`
	Failed      []string `json:"failed,omitempty"` // symbols left open
	Proceeds    string   `json:"proceeds"`
	CashBalance string   `json:"cash_balance"`
}

// EventType returns the event type for PortfolioLiquidatedData
func (d *PortfolioLiquidatedData) EventType() EventType {
	return PortfolioLiquidated
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Key       string `json:"key"`
	SizeBytes int64  `json:"size_bytes"`
	Pruned    int    `json:"pruned"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// newEventData returns an empty typed payload for t, or nil for unknown types
func newEventData(t EventType) EventData {
	switch t {
	case AccountRegistered:
		return &AccountRegisteredData{}
	case TradeExecuted:
		return &TradeExecutedData{}
	case PortfolioLiquidated:
		return &PortfolioLiquidatedData{}
	case BackupCompleted:
		return &BackupCompletedData{}
	case ErrorOccurred:
		return &ErrorEventData{}
	}
	return nil
}

// convertMapToStruct converts a map[string]interface{} to a struct
func convertMapToStruct(m map[string]interface{}, v interface{}) error {
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonBytes, v)
}

// convertEventDataToMap flattens typed EventData into the map carried on the bus
func convertEventDataToMap(data EventData) map[string]interface{} {
	if data == nil {
		return nil
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil
	}
	return result
}
