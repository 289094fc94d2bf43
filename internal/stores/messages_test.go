package stores

import (
	"context"
	"strings"
	"testing"

	"github.com/MrEthical07/goAuthFlow/autherr"
	"github.com/MrEthical07/goAuthFlow/internal"
)

func TestValidStatusMsg(t *testing.T) {
	valid := []string{"Ok", "Error:InvalidPassword", "Error: spaced reason"}
	for _, s := range valid {
		if !ValidStatusMsg(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	invalid := []string{"", "ok", "OK", "Error:", "Error", "Done", "Ok "}
	for _, s := range invalid {
		if ValidStatusMsg(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

// newSignatureChallenge seeds a two-message challenge and returns its ids.
func newSignatureChallenge(t *testing.T, ts *testStores) (string, string) {
	t.Helper()

	ts.seedSession(t, "s1", "sig", internal.TypeDigitalSignature)
	if _, err := ts.challenges.Create(context.Background(), "s1", "sig"); err != nil {
		t.Fatalf("create challenge: %v", err)
	}
	return "s1", "sig"
}

func TestMessageCreateEnforcesSequence(t *testing.T) {
	ts := newTestStores(t)
	ctx := context.Background()
	sessionID, challengeID := newSignatureChallenge(t, ts)

	// SignNonce cannot be drafted before SelectKey.
	_, err := ts.messages.Create(ctx, sessionID, challengeID, internal.MsgSignNonce, []byte(`{}`), []byte(`{}`), nil)
	if !autherr.IsAuth(err) || !strings.Contains(err.Error(), `expected message "SelectKey" next`) {
		t.Fatalf("expected sequence AuthError, got %v", err)
	}

	// An undeclared name is a caller bug, not a state condition.
	_, err = ts.messages.Create(ctx, sessionID, challengeID, "GetOtp", []byte(`{}`), []byte(`{}`), nil)
	if !autherr.IsInvalidArg(err) || !strings.Contains(err.Error(), "is not appropriate for the challenge") {
		t.Fatalf("expected not-appropriate InvalidArgError, got %v", err)
	}

	created, err := ts.messages.Create(ctx, sessionID, challengeID, internal.MsgSelectKey, []byte(`{}`), []byte(`{"publicKey":"k"}`), nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Resolved() {
		t.Fatal("fresh message must be pending")
	}

	// Only one pending message at a time.
	_, err = ts.messages.Create(ctx, sessionID, challengeID, internal.MsgSignNonce, []byte(`{}`), []byte(`{}`), nil)
	if !autherr.IsAuth(err) || !strings.Contains(err.Error(), "is still pending") {
		t.Fatalf("expected still-pending AuthError, got %v", err)
	}
}

func TestMessageStatusIsWriteOnce(t *testing.T) {
	ts := newTestStores(t)
	ctx := context.Background()
	sessionID, challengeID := newSignatureChallenge(t, ts)

	if _, err := ts.messages.Create(ctx, sessionID, challengeID, internal.MsgSelectKey, []byte(`{}`), []byte(`{}`), nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	err := ts.messages.UpdateResponseAndStatus(ctx, sessionID, challengeID, internal.MsgSelectKey, []byte(`{}`), "Done")
	if !autherr.IsInvalidArg(err) || !strings.Contains(err.Error(), "statusMsg is malformed") {
		t.Fatalf("expected malformed InvalidArgError, got %v", err)
	}

	if err := ts.messages.UpdateResponseAndStatus(ctx, sessionID, challengeID, internal.MsgSelectKey, []byte(`{"publicKey":"k"}`), StatusOk); err != nil {
		t.Fatalf("UpdateResponseAndStatus failed: %v", err)
	}

	err = ts.messages.UpdateResponseAndStatus(ctx, sessionID, challengeID, internal.MsgSelectKey, []byte(`{}`), StatusOk)
	if !autherr.IsAuth(err) || !strings.Contains(err.Error(), "is already resolved") {
		t.Fatalf("expected already-resolved AuthError, got %v", err)
	}

	messages, err := ts.messages.All(ctx, sessionID, challengeID)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(messages) != 1 || string(messages[0].Response) != `{"publicKey":"k"}` {
		t.Fatalf("first write must win: %+v", messages)
	}
}

func TestMessageUpdateMissingRowNotFound(t *testing.T) {
	ts := newTestStores(t)
	ctx := context.Background()
	sessionID, challengeID := newSignatureChallenge(t, ts)

	err := ts.messages.UpdateResponseAndStatus(ctx, sessionID, challengeID, internal.MsgSelectKey, nil, StatusOk)
	if !autherr.IsNotFound(err) {
		t.Fatalf("expected EntityNotFoundError, got %v", err)
	}
}

func TestMessageErrorStatusCascadesAbort(t *testing.T) {
	ts := newTestStores(t)
	ctx := context.Background()
	sessionID, challengeID := newSignatureChallenge(t, ts)

	if _, err := ts.messages.Create(ctx, sessionID, challengeID, internal.MsgSelectKey, []byte(`{}`), []byte(`{}`), nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := ts.messages.UpdateResponseAndStatus(ctx, sessionID, challengeID, internal.MsgSelectKey, []byte(`{}`), "Error:PublicKeyMismatch"); err != nil {
		t.Fatalf("UpdateResponseAndStatus failed: %v", err)
	}

	challenge, err := ts.challenges.Get(ctx, sessionID, challengeID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if challenge.Outcome != OutcomeAborted {
		t.Fatalf("expected cascading abort, got %s", challenge.Outcome)
	}

	// No further drafting after a failed message.
	_, err = ts.messages.Create(ctx, sessionID, challengeID, internal.MsgSignNonce, []byte(`{}`), []byte(`{}`), nil)
	if !autherr.IsAuth(err) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestMessageUpdateBlockedByTerminalAncestry(t *testing.T) {
	ts := newTestStores(t)
	ctx := context.Background()
	sessionID, challengeID := newSignatureChallenge(t, ts)

	if _, err := ts.messages.Create(ctx, sessionID, challengeID, internal.MsgSelectKey, []byte(`{}`), []byte(`{}`), nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := ts.db.exec(ctx, ts.db.sql,
		`UPDATE auth_session SET outcome = ? WHERE session_id = ?`, OutcomeAborted, sessionID); err != nil {
		t.Fatalf("force outcome: %v", err)
	}

	err := ts.messages.UpdateResponseAndStatus(ctx, sessionID, challengeID, internal.MsgSelectKey, nil, StatusOk)
	if !autherr.IsAuth(err) || !strings.Contains(err.Error(), "is not pending") {
		t.Fatalf("expected ancestry AuthError, got %v", err)
	}
}

func TestMessagesOrderedBySeq(t *testing.T) {
	ts := newTestStores(t)
	ctx := context.Background()
	sessionID, challengeID := newSignatureChallenge(t, ts)

	if _, err := ts.messages.Create(ctx, sessionID, challengeID, internal.MsgSelectKey, []byte(`{}`), []byte(`{}`), nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := ts.messages.UpdateResponseAndStatus(ctx, sessionID, challengeID, internal.MsgSelectKey, []byte(`{}`), StatusOk); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := ts.messages.Create(ctx, sessionID, challengeID, internal.MsgSignNonce, []byte(`{}`), []byte(`{}`), nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	messages, err := ts.messages.All(ctx, sessionID, challengeID)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Name != internal.MsgSelectKey || messages[1].Name != internal.MsgSignNonce {
		t.Fatalf("unexpected order: %s, %s", messages[0].Name, messages[1].Name)
	}
	if !messages[0].Ok() || messages[1].Resolved() {
		t.Fatalf("unexpected statuses: %+v", messages)
	}
}
