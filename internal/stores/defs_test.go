package stores

import (
	"context"
	"strings"
	"testing"

	"github.com/MrEthical07/goAuthFlow/autherr"
	"github.com/MrEthical07/goAuthFlow/internal"
)

func TestSeedRejectsUnknownChallengeType(t *testing.T) {
	ts := newTestStores(t)

	err := ts.defs.Seed(context.Background(), "c1", 1, "Telepathy", nil)
	if !autherr.IsInvalidArg(err) {
		t.Fatalf("expected InvalidArgError, got %v", err)
	}
}

func TestSeedIdenticalDefIsNoOp(t *testing.T) {
	ts := newTestStores(t)
	ctx := context.Background()

	params := []byte(`{"fields":["password"]}`)
	if err := ts.defs.Seed(ctx, "c1", 1, internal.TypePassword, params); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := ts.defs.Seed(ctx, "c1", 1, internal.TypePassword, params); err != nil {
		t.Fatalf("identical re-seed should be a no-op, got %v", err)
	}

	defs, err := ts.defs.ListByAccountVersion(ctx, 1)
	if err != nil {
		t.Fatalf("list defs: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("expected 1 def after re-seed, got %d", len(defs))
	}
}

func TestSeedConflictingRedefinitionRejected(t *testing.T) {
	ts := newTestStores(t)
	ctx := context.Background()

	if err := ts.defs.Seed(ctx, "c1", 1, internal.TypePassword, nil); err != nil {
		t.Fatalf("first seed: %v", err)
	}

	err := ts.defs.Seed(ctx, "c1", 1, internal.TypeDigitalSignature, nil)
	if !autherr.IsAuth(err) {
		t.Fatalf("expected AuthError for redefined type, got %v", err)
	}
	if !strings.Contains(err.Error(), "already declared") {
		t.Fatalf("unexpected error message: %v", err)
	}

	err = ts.defs.Seed(ctx, "c1", 1, internal.TypePassword, []byte(`{"fields":["pin"]}`))
	if !autherr.IsAuth(err) {
		t.Fatalf("expected AuthError for redefined parameters, got %v", err)
	}

	// The original declaration survives untouched.
	def, err := ts.defs.Get(ctx, "c1", 1)
	if err != nil {
		t.Fatalf("get def: %v", err)
	}
	if def.ChallengeType != internal.TypePassword || string(def.Parameters) != "{}" {
		t.Fatalf("def mutated by rejected redefinition: %s %s", def.ChallengeType, def.Parameters)
	}

	// A different account version is an independent declaration.
	if err := ts.defs.Seed(ctx, "c1", 2, internal.TypeDigitalSignature, nil); err != nil {
		t.Fatalf("seed at new version: %v", err)
	}
}
