package ticket

import (
	"context"
	"testing"

	"github.com/advatar/zk-llm-gateway-go/pkg/gwerrs"
	"github.com/advatar/zk-llm-gateway-go/pkg/tokenclass"
)

func TestDummySourceAlwaysSucceeds(t *testing.T) {
	src := NewDummySource()
	ctx := context.Background()

	tk1, err := src.NextTicket(ctx, tokenclass.C512)
	if err != nil {
		t.Fatalf("NextTicket error = %v", err)
	}
	tk2, err := src.NextTicket(ctx, tokenclass.C512)
	if err != nil {
		t.Fatalf("NextTicket error = %v", err)
	}

	if tk1.Nullifier == tk2.Nullifier {
		t.Error("expected distinct nullifiers across calls")
	}
	if tk1.TokenClass != "c512" {
		t.Errorf("TokenClass = %q, want c512", tk1.TokenClass)
	}
}

func TestPoolSingleUse(t *testing.T) {
	data := []byte(`[{"nullifier":"AA==","token_class":"c2048","proof":""}]`)
	pool, err := ParsePool(data)
	if err != nil {
		t.Fatalf("ParsePool error = %v", err)
	}

	if pool.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", pool.Len())
	}

	tk, err := pool.NextTicket(context.Background(), tokenclass.C2048)
	if err != nil {
		t.Fatalf("NextTicket error = %v", err)
	}
	if tk.TokenClass != "c2048" {
		t.Errorf("TokenClass = %q, want c2048", tk.TokenClass)
	}
	if pool.Len() != 0 {
		t.Fatalf("Len() after consume = %d, want 0", pool.Len())
	}

	_, err = pool.NextTicket(context.Background(), tokenclass.C2048)
	if !gwerrs.Is(err, gwerrs.KindTicketExhausted) {
		t.Fatalf("expected KindTicketExhausted, got %v", err)
	}
}

func TestPoolClassSelectionPrefersExactMatch(t *testing.T) {
	data := []byte(`[
		{"nullifier":"AQ==","token_class":"c1024"},
		{"nullifier":"Ag==","token_class":"c2048"}
	]`)
	pool, err := ParsePool(data)
	if err != nil {
		t.Fatal(err)
	}

	tk, err := pool.NextTicket(context.Background(), tokenclass.C2048)
	if err != nil {
		t.Fatal(err)
	}
	if tk.Nullifier != "Ag==" {
		t.Errorf("Nullifier = %q, want Ag== (the c2048 entry)", tk.Nullifier)
	}
	if pool.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", pool.Len())
	}
}

func TestPoolFallsBackToWildcard(t *testing.T) {
	data := []byte(`[
		{"nullifier":"AQ==","token_class":"c1024"},
		{"nullifier":"Ag=="}
	]`)
	pool, err := ParsePool(data)
	if err != nil {
		t.Fatal(err)
	}

	tk, err := pool.NextTicket(context.Background(), tokenclass.C4096)
	if err != nil {
		t.Fatal(err)
	}
	if tk.Nullifier != "Ag==" {
		t.Errorf("Nullifier = %q, want Ag== (the wildcard entry)", tk.Nullifier)
	}
	if tk.TokenClass != "c4096" {
		t.Errorf("TokenClass = %q, want c4096 (stamped)", tk.TokenClass)
	}
}

func TestPoolDropsNonObjectEntries(t *testing.T) {
	data := []byte(`[42, "oops", null, {"nullifier":"AQ=="}]`)
	pool, err := ParsePool(data)
	if err != nil {
		t.Fatal(err)
	}
	if pool.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", pool.Len())
	}
}

func TestPoolMalformedEntryYieldsTicketExhausted(t *testing.T) {
	data := []byte(`[{"token_class":"c512"}]`)
	pool, err := ParsePool(data)
	if err != nil {
		t.Fatal(err)
	}

	_, err = pool.NextTicket(context.Background(), tokenclass.C512)
	if !gwerrs.Is(err, gwerrs.KindTicketExhausted) {
		t.Fatalf("expected KindTicketExhausted for missing nullifier, got %v", err)
	}
	if pool.Len() != 0 {
		t.Fatalf("Len() after consuming malformed entry = %d, want 0", pool.Len())
	}
}

func TestPoolRejectsUnparsableDeclaredClass(t *testing.T) {
	data := []byte(`[{"nullifier":"AQ==","token_class":"c9999"}]`)
	pool, err := ParsePool(data)
	if err != nil {
		t.Fatal(err)
	}

	_, err = pool.NextTicket(context.Background(), tokenclass.C512)
	if !gwerrs.Is(err, gwerrs.KindTicketExhausted) {
		t.Fatalf("expected KindTicketExhausted, got %v", err)
	}
	// The entry is still there (never matched), just unreachable.
	if pool.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (unreachable entry retained)", pool.Len())
	}
}

func TestRemaining(t *testing.T) {
	data := []byte(`[
		{"nullifier":"AQ==","token_class":"c1024"},
		{"nullifier":"Ag=="}
	]`)
	pool, err := ParsePool(data)
	if err != nil {
		t.Fatal(err)
	}

	if got := pool.Remaining(tokenclass.C1024); got != 2 {
		t.Errorf("Remaining(c1024) = %d, want 2 (exact + wildcard)", got)
	}
	if got := pool.Remaining(tokenclass.C4096); got != 1 {
		t.Errorf("Remaining(c4096) = %d, want 1 (wildcard only)", got)
	}
}
