// Package message builds the fuel status payload published to the broker.
package message

import (
	"encoding/json"
	"fmt"
)

// DefaultLimit is the tank capacity used when none is configured.
const DefaultLimit = 210

// Status is the published record. Field order is kept as limit, left, amount.
type Status struct {
	Limit  float64 `json:"limit"`
	Left   float64 `json:"left"`
	Amount float64 `json:"amount"`
}

// Build returns the status for amount against limit.
func Build(limit, amount float64) Status {
	return Status{
		Limit:  limit,
		Left:   limit - amount,
		Amount: amount,
	}
}

// Encode serializes s as compact JSON.
func Encode(s Status) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("could not encode status: %w", err)
	}
	return data, nil
}

// Decode parses a payload produced by Encode.
func Decode(data []byte) (Status, error) {
	var s Status
	if err := json.Unmarshal(data, &s); err != nil {
		return Status{}, fmt.Errorf("could not decode status: %w", err)
	}
	return s, nil
}
