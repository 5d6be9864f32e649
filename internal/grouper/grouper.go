// internal/grouper/grouper.go
package grouper

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/tamzrod/modbus-gateway/internal/request"
	"github.com/tamzrod/modbus-gateway/internal/variable"
)

var (
	ErrNilVariable     = errors.New("grouper: nil variable")
	ErrVariableTooLong = errors.New("grouper: variable exceeds max request length")
)

// Grouper packs variables into the fewest contiguous requests a single
// left-to-right pass can produce. It holds no state between calls.
type Grouper struct {
	driver    request.Driver
	maxLength int
}

// New creates a grouper. maxLength <= 0 selects request.DefaultMaxLength.
func New(driver request.Driver, maxLength int) (*Grouper, error) {
	if driver == nil {
		return nil, request.ErrMissingDriver
	}
	if maxLength <= 0 {
		maxLength = request.DefaultMaxLength
	}
	return &Grouper{driver: driver, maxLength: maxLength}, nil
}

func (g *Grouper) MaxLength() int { return g.maxLength }

// partition is unit id -> function code -> variables in input order.
type partition map[uint8]map[variable.FunctionCode][]*variable.Variable

// ConvertVariablesToRequests partitions vars by unit id and function code,
// sorts each partition by offset and greedily packs it. Partitions are emitted
// in ascending unit id, then ascending function code.
func (g *Grouper) ConvertVariablesToRequests(vars []*variable.Variable) ([]*request.Request, error) {
	parts := make(partition)
	seen := make(map[uuid.UUID]struct{}, len(vars))

	for _, v := range vars {
		if v == nil {
			return nil, ErrNilVariable
		}
		if v.Length() > g.maxLength {
			return nil, fmt.Errorf("%w: %s is %d words, limit %d", ErrVariableTooLong, v, v.Length(), g.maxLength)
		}
		if _, dup := seen[v.ID()]; dup {
			continue
		}
		seen[v.ID()] = struct{}{}

		byFC, ok := parts[v.UnitID()]
		if !ok {
			byFC = make(map[variable.FunctionCode][]*variable.Variable)
			parts[v.UnitID()] = byFC
		}
		byFC[v.FunctionCode()] = append(byFC[v.FunctionCode()], v)
	}

	var out []*request.Request
	for _, unitID := range sortedUnits(parts) {
		byFC := parts[unitID]
		for _, fc := range sortedCodes(byFC) {
			reqs, err := g.pack(unitID, fc, byFC[fc])
			if err != nil {
				return nil, err
			}
			out = append(out, reqs...)
		}
	}
	return out, nil
}

// pack runs the greedy scan over one (unit, fc) partition.
func (g *Grouper) pack(unitID uint8, fc variable.FunctionCode, vars []*variable.Variable) ([]*request.Request, error) {
	sorted := make([]*variable.Variable, len(vars))
	copy(sorted, vars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Offset() < sorted[j].Offset()
	})

	var (
		out     []*request.Request
		current *request.Request
	)

	for _, v := range sorted {
		if current != nil && current.CanAbsorb(v) {
			if err := current.Absorb(v); err != nil {
				return nil, err
			}
			continue
		}

		next, err := request.New(g.driver, request.Config{
			FunctionCode: fc,
			UnitID:       &unitID,
			MaxLength:    g.maxLength,
		})
		if err != nil {
			return nil, err
		}
		if err := next.Absorb(v); err != nil {
			return nil, err
		}
		current = next
		out = append(out, current)
	}
	return out, nil
}

func sortedUnits(p partition) []uint8 {
	keys := make([]uint8, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedCodes(m map[variable.FunctionCode][]*variable.Variable) []variable.FunctionCode {
	keys := make([]variable.FunctionCode, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
