package market

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// CNStockResolver fixes up CN-Stock (name, code) pairs against a static
// name-to-code mapping, grounded on market_manager.py's fix_symbol_code /
// get_total_namechange (the original reads a cached namechange_data.json of
// historical/ST name changes; this repo takes the same file shape).
type CNStockResolver struct {
	nameToCode map[string]string
	codeToName map[string]string
}

// LoadCNStockResolver reads a JSON file shaped as {"name": "code", ...}
// (current names plus any historical aliases) into a CNStockResolver.
func LoadCNStockResolver(path string) (*CNStockResolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CN-Stock name mapping %s: %w", path, err)
	}
	var nameToCode map[string]string
	if err := json.Unmarshal(data, &nameToCode); err != nil {
		return nil, fmt.Errorf("parse CN-Stock name mapping %s: %w", path, err)
	}
	return NewCNStockResolver(nameToCode), nil
}

// NewCNStockResolver builds a CNStockResolver from an in-memory mapping.
func NewCNStockResolver(nameToCode map[string]string) *CNStockResolver {
	codeToName := make(map[string]string, len(nameToCode))
	for name, code := range nameToCode {
		codeToName[code] = name
	}
	return &CNStockResolver{nameToCode: nameToCode, codeToName: codeToName}
}

// Resolve mirrors fix_symbol_code: if symbolName maps to a different code
// than given, prefer the mapped code; if symbolCode maps to a name that is
// a substring match of symbolName (e.g. an ST-prefixed variant), prefer the
// mapped name.
func (r *CNStockResolver) Resolve(_ context.Context, _, symbolName, symbolCode string) (string, string, error) {
	name, code := symbolName, symbolCode
	if mappedCode, ok := r.nameToCode[name]; ok && mappedCode != code {
		code = mappedCode
	}
	if mappedName, ok := r.codeToName[code]; ok && mappedName != name && strings.Contains(name, mappedName) {
		name = mappedName
	}
	return name, code, nil
}
