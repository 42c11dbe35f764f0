package storage

import (
	"fmt"

	json "github.com/goccy/go-json"

	"matchwatch/internal/matchlog"
)

// encodeState marshals a state in the on-disk record format:
// {"URL": ..., "logs": [...], "Completed": ...}
func encodeState(state *matchlog.State) ([]byte, error) {
	if state == nil {
		return nil, fmt.Errorf("cannot encode nil state")
	}
	record := *state
	if record.Logs == nil {
		record.Logs = []matchlog.LogEntry{}
	}
	data, err := json.Marshal(&record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	return data, nil
}

func decodeState(data []byte) (*matchlog.State, error) {
	var state matchlog.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

func encodeLogs(logs []matchlog.LogEntry) ([]byte, error) {
	if logs == nil {
		logs = []matchlog.LogEntry{}
	}
	data, err := json.Marshal(logs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal logs: %w", err)
	}
	return data, nil
}

func decodeLogs(data []byte) ([]matchlog.LogEntry, error) {
	var logs []matchlog.LogEntry
	if err := json.Unmarshal(data, &logs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal logs: %w", err)
	}
	return logs, nil
}
