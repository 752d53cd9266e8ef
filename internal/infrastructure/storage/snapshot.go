package storage

import (
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"brokerage_tracker/internal/domain/entity"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type snapshotDocument struct {
	Version         int                `json:"version"`
	Accounts        []entity.Account   `json:"accounts"`
	Positions       []entity.Position  `json:"positions"`
	Prices          map[string]float64 `json:"prices"`
	PricesUpdatedAt *time.Time         `json:"pricesUpdatedAt,omitempty"`
}

// EncodeSnapshot writes the state in the portable JSON snapshot format.
func EncodeSnapshot(state entity.StoreState) ([]byte, error) {
	doc := snapshotDocument{
		Version:   entity.StoreVersion,
		Accounts:  state.Accounts,
		Positions: state.Positions,
		Prices:    make(map[string]float64, len(state.Prices)),
	}
	if doc.Accounts == nil {
		doc.Accounts = []entity.Account{}
	}
	if doc.Positions == nil {
		doc.Positions = []entity.Position{}
	}
	for sym, price := range state.Prices {
		doc.Prices[sym.String()] = price
	}
	if !state.PricesUpdatedAt.IsZero() {
		t := state.PricesUpdatedAt.UTC()
		doc.PricesUpdatedAt = &t
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot reads a JSON snapshot tolerantly. A document that is not a
// JSON object yields an empty state together with an error; sections of the
// wrong shape are replaced by empty ones, and unreadable entries are skipped.
// Price keys are normalized and unusable prices dropped.
func DecodeSnapshot(data []byte) (entity.StoreState, error) {
	state := entity.EmptyStoreState()

	var root map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return state, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if root == nil {
		return state, errors.New("failed to decode snapshot: not an object")
	}

	var accounts []jsoniter.RawMessage
	if json.Unmarshal(root["accounts"], &accounts) == nil {
		for _, raw := range accounts {
			var a entity.Account
			if json.Unmarshal(raw, &a) == nil && a.ID != "" {
				state.Accounts = append(state.Accounts, a)
			}
		}
	}

	var positions []jsoniter.RawMessage
	if json.Unmarshal(root["positions"], &positions) == nil {
		for _, raw := range positions {
			var p entity.Position
			if json.Unmarshal(raw, &p) == nil && p.ID != "" {
				state.Positions = append(state.Positions, p)
			}
		}
	}

	var prices map[string]any
	if json.Unmarshal(root["prices"], &prices) == nil {
		for key, v := range prices {
			price, ok := v.(float64)
			if !ok {
				continue
			}
			if sym, ok := entity.NormalizeSymbol(key); ok {
				state.Prices.Set(sym, price)
			}
		}
	}

	var updatedAt time.Time
	if raw, ok := root["pricesUpdatedAt"]; ok && json.Unmarshal(raw, &updatedAt) == nil {
		state.PricesUpdatedAt = updatedAt
	}
	return state, nil
}
