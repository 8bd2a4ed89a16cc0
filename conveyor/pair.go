package conveyor

import (
	"encoding/json"
)

// Pair is the stdout/stderr byte pair that flows between stages.
//
// The zero Pair is absent, not empty. A stage that returns an absent Pair
// breaks the pipeline contract. Use NewPair or Empty to build one.
type Pair struct {
	Stdout []byte
	Stderr []byte

	present bool
}

// NewPair returns a present pair. nil buffers are normalized to empty.
func NewPair(stdout, stderr []byte) Pair {
	if stdout == nil {
		stdout = []byte{}
	}
	if stderr == nil {
		stderr = []byte{}
	}
	return Pair{Stdout: stdout, Stderr: stderr, present: true}
}

// FromStrings returns a present pair holding the given text.
func FromStrings(stdout, stderr string) Pair {
	return NewPair([]byte(stdout), []byte(stderr))
}

// Empty returns a present pair of two empty buffers, the default conveyor input.
func Empty() Pair {
	return NewPair(nil, nil)
}

// Valid reports whether p was produced by NewPair, FromStrings, Empty or
// decoded from JSON.
func (p Pair) Valid() bool { return p.present }

// StdoutString returns stdout as text.
func (p Pair) StdoutString() string { return string(p.Stdout) }

// StderrString returns stderr as text.
func (p Pair) StderrString() string { return string(p.Stderr) }

// Clone returns a present pair with copies of both buffers.
func (p Pair) Clone() Pair {
	return NewPair(append([]byte{}, p.Stdout...), append([]byte{}, p.Stderr...))
}

type pairJSON struct {
	Stdout []byte `json:"stdout"`
	Stderr []byte `json:"stderr"`
}

// MarshalJSON encodes both buffers as base64 strings.
func (p Pair) MarshalJSON() ([]byte, error) {
	if !p.present {
		return []byte("null"), nil
	}
	return json.Marshal(pairJSON{Stdout: p.Stdout, Stderr: p.Stderr})
}

// UnmarshalJSON decodes a pair written by MarshalJSON. null leaves p absent.
func (p *Pair) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Pair{}
		return nil
	}
	var raw pairJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = NewPair(raw.Stdout, raw.Stderr)
	return nil
}
