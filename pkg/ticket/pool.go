package ticket

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/advatar/zk-llm-gateway-go/pkg/gwerrs"
	"github.com/advatar/zk-llm-gateway-go/pkg/tokenclass"
)

// rawEntry mirrors one element of the ticket file's JSON array, tolerating
// either spelling of each aliased field.
type rawEntry struct {
	Nullifier         string `json:"nullifier"`
	NullifierB64      string `json:"nullifier_b64"`
	CommitmentRoot    string `json:"commitment_root"`
	CommitmentRootB64 string `json:"commitment_root_b64"`
	Proof             string `json:"proof"`
	ProofB64          string `json:"proof_b64"`
	TokenClass        string `json:"token_class"`
}

// poolEntry is the normalized, in-memory form of one pool slot.
type poolEntry struct {
	ticket              Ticket
	hasDeclaredClass    bool // the raw entry had a non-empty token_class field
	declaredClassValid  bool // token_class parsed to a known variant
	declaredClass       tokenclass.Class
	loadErr             error // set when the entry is structurally malformed (e.g. missing nullifier)
}

// PoolSource is a file-backed ticket Source. It is loaded eagerly from a
// JSON array and mutates in place as tickets are consumed: each NextTicket
// call that selects an entry removes exactly that entry, so a ticket is never
// handed out twice. A call that finds no matching entry removes nothing.
type PoolSource struct {
	mu      sync.Mutex
	entries []*poolEntry
}

// LoadPool reads and normalizes a JSON ticket file. Non-object array
// entries are dropped at load time, per the external ticket-file contract.
func LoadPool(path string) (*PoolSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ticket file: %w", err)
	}
	return ParsePool(data)
}

// ParsePool normalizes a JSON ticket file already held in memory.
func ParsePool(data []byte) (*PoolSource, error) {
	var rawEntries []json.RawMessage
	if err := json.Unmarshal(data, &rawEntries); err != nil {
		return nil, fmt.Errorf("parse ticket file: %w", err)
	}

	pool := &PoolSource{}
	for _, rm := range rawEntries {
		// Drop non-object entries (numbers, strings, arrays, null) silently.
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(rm, &probe); err != nil || probe == nil {
			continue
		}

		var re rawEntry
		if err := json.Unmarshal(rm, &re); err != nil {
			continue
		}

		pool.entries = append(pool.entries, normalize(re))
	}

	return pool, nil
}

func normalize(re rawEntry) *poolEntry {
	entry := &poolEntry{}

	nullifier := re.Nullifier
	if nullifier == "" {
		nullifier = re.NullifierB64
	}
	if nullifier == "" {
		entry.loadErr = fmt.Errorf("missing nullifier")
	}

	commitmentRoot := re.CommitmentRoot
	if commitmentRoot == "" {
		commitmentRoot = re.CommitmentRootB64
	}
	if commitmentRoot == "" {
		commitmentRoot = zeroCommitmentRootB64
	}

	proof := re.Proof
	if proof == "" {
		proof = re.ProofB64
	}

	entry.ticket = Ticket{
		Nullifier:      nullifier,
		CommitmentRoot: commitmentRoot,
		Proof:          proof,
		TokenClass:     re.TokenClass,
	}

	if re.TokenClass != "" {
		entry.hasDeclaredClass = true
		if class, err := tokenclass.Parse(re.TokenClass); err == nil {
			entry.declaredClassValid = true
			entry.declaredClass = class
		}
	}

	return entry
}

// NextTicket returns the first remaining entry whose declared class equals
// the requested class; failing that, the first untyped (wildcard) entry,
// stamped with the requested class; failing that, TicketExhausted. Entries
// that declare a class but fail to normalize to a known variant are never
// matched by either rule.
func (p *PoolSource) NextTicket(_ context.Context, class tokenclass.Class) (Ticket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i, ok := p.findFirst(func(e *poolEntry) bool {
		return e.hasDeclaredClass && e.declaredClassValid && e.declaredClass.Equal(class)
	}); ok {
		return p.take(i, class, false)
	}

	if i, ok := p.findFirst(func(e *poolEntry) bool {
		return !e.hasDeclaredClass
	}); ok {
		return p.take(i, class, true)
	}

	return Ticket{}, gwerrs.TicketExhausted(fmt.Sprintf("no ticket available for class %s", class))
}

func (p *PoolSource) findFirst(pred func(*poolEntry) bool) (int, bool) {
	for i, e := range p.entries {
		if pred(e) {
			return i, true
		}
	}
	return 0, false
}

// take removes the entry at index i and returns its ticket, stamping the
// requested class onto it if it was selected as a wildcard.
func (p *PoolSource) take(i int, class tokenclass.Class, stampClass bool) (Ticket, error) {
	entry := p.entries[i]
	p.entries = append(p.entries[:i], p.entries[i+1:]...)

	if entry.loadErr != nil {
		return Ticket{}, gwerrs.TicketExhausted(entry.loadErr.Error())
	}

	t := entry.ticket
	if stampClass {
		t.TokenClass = class.String()
	}
	return t, nil
}

// Len returns the number of tickets still held in the pool.
func (p *PoolSource) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Remaining reports how many entries could satisfy a request for class:
// entries declaring exactly that class, plus untyped wildcard entries.
func (p *PoolSource) Remaining(class tokenclass.Class) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, e := range p.entries {
		if !e.hasDeclaredClass {
			n++
			continue
		}
		if e.declaredClassValid && e.declaredClass.Equal(class) {
			n++
		}
	}
	return n
}

var _ Source = (*PoolSource)(nil)
var _ Source = (*DummySource)(nil)
