package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Param is one named argument of a pallet call
type Param struct {
	Name  string
	Value any
}

// Params keeps call arguments in declaration order, which is the order the
// runtime expects them in
type Params []Param

// Get returns the value of the named parameter
func (p Params) Get(name string) (any, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return nil, false
}

// Names returns the parameter names in order
func (p Params) Names() []string {
	names := make([]string, len(p))
	for i, param := range p {
		names[i] = param.Name
	}
	return names
}

// MarshalJSON writes an object whose keys keep the declaration order
func (p Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, param := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(param.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(param.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode parameter %s: %w", param.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object back in key order. Values stay raw JSON since
// the argument types depend on the pallet.
func (p *Params) UnmarshalJSON(b []byte) error {
	if string(bytes.TrimSpace(b)) == "null" {
		*p = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("call parameters must be an object")
	}
	out := Params{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("failed to decode parameter %s: %w", name, err)
		}
		out = append(out, Param{Name: name, Value: value})
	}
	*p = out
	return nil
}

// SerializedCall is an inert description of a pallet call
type SerializedCall struct {
	Module     string `json:"module"`  // e.g. "PolkadotXcm"
	Section    string `json:"section"` // e.g. "limited_reserve_transfer_assets"
	Parameters Params `json:"parameters"`
}

func (c *SerializedCall) String() string {
	return c.Module + "." + c.Section
}

// Transaction is a call bound to a live chain connection and ready for signing
type Transaction struct {
	ChainID     string          `json:"chain_id"`
	GenesisHash string          `json:"genesis_hash,omitempty"`
	SpecName    string          `json:"spec_name,omitempty"`
	Call        *SerializedCall `json:"call"`
}
