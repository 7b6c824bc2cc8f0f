// Package ticket provides the pluggable authorization-ticket source the
// orchestrator draws from before every gateway call. A ticket is opaque,
// single-use, and declares the size class it was issued for.
package ticket

import (
	"context"
	"encoding/base64"

	"github.com/advatar/zk-llm-gateway-go/pkg/gwerrs"
	"github.com/advatar/zk-llm-gateway-go/pkg/tokenclass"
)

// zeroCommitmentRootB64 is the base64 encoding of the 32 zero bytes used when
// a ticket carries no real commitment root.
var zeroCommitmentRootB64 = base64.StdEncoding.EncodeToString(make([]byte, 32))

// Ticket is an opaque authorization record presented with a request. It is
// single-use: a Source must never hand out the same ticket twice.
type Ticket struct {
	Nullifier      string `json:"nullifier"`
	CommitmentRoot string `json:"commitment_root"`
	TokenClass     string `json:"token_class"`
	Proof          string `json:"proof"`
}

// Class parses the ticket's declared token class.
func (t Ticket) Class() (tokenclass.Class, error) {
	return tokenclass.Parse(t.TokenClass)
}

// Source produces single-use authorization tickets for a requested size
// class. Implementations must serialize concurrent access themselves: two
// concurrent calls for the same class must never return the same ticket.
type Source interface {
	NextTicket(ctx context.Context, class tokenclass.Class) (Ticket, error)
}
