package ticket

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/advatar/zk-llm-gateway-go/pkg/tokenclass"
)

// DummySource issues a fresh random ticket for every request. It performs
// no real authorization and exists only for development/testing against a
// gateway running in dev mode.
type DummySource struct{}

// NewDummySource constructs a DummySource.
func NewDummySource() *DummySource { return &DummySource{} }

// NextTicket always succeeds, generating a random 32-byte nullifier, a
// zero-filled commitment root, and an empty proof.
func (d *DummySource) NextTicket(_ context.Context, class tokenclass.Class) (Ticket, error) {
	nullifier := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, nullifier); err != nil {
		return Ticket{}, fmt.Errorf("generate nullifier: %w", err)
	}

	return Ticket{
		Nullifier:      base64.StdEncoding.EncodeToString(nullifier),
		CommitmentRoot: zeroCommitmentRootB64,
		TokenClass:     class.String(),
		Proof:          "",
	}, nil
}
