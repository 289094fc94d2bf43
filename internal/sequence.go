package internal

// Challenge type names as persisted in account_def_auth_challenge.
const (
	TypePassword             = "Password"
	TypeSecureRemotePassword = "SecureRemotePassword"
	TypeDigitalSignature     = "DigitalSignature"
	TypeOffChannelOtp        = "OffChannelOtp"
)

// Message names, grouped by the challenge type that declares them.
const (
	MsgGetPasswordFields = "GetPasswordFields"

	MsgSelectSecurePassword = "SelectSecurePassword"
	MsgExchangePublicKeys   = "ExchangePublicKeys"
	MsgComputeClientProof   = "ComputeClientProof"
	MsgVerifyServerProof    = "VerifyServerProof"

	MsgSelectKey = "SelectKey"
	MsgSignNonce = "SignNonce"

	MsgGetOtp = "GetOtp"
)

var messageSequences = map[string][]string{
	TypePassword:             {MsgGetPasswordFields},
	TypeSecureRemotePassword: {MsgSelectSecurePassword, MsgExchangePublicKeys, MsgComputeClientProof, MsgVerifyServerProof},
	TypeDigitalSignature:     {MsgSelectKey, MsgSignNonce},
	TypeOffChannelOtp:        {MsgGetOtp},
}

// MessageSequence returns the ordered message-name sequence a challenge type
// declares, or nil for an unknown type. Callers must not mutate the result.
func MessageSequence(challengeType string) []string {
	return messageSequences[challengeType]
}

// KnownChallengeType reports whether challengeType declares a message sequence.
func KnownChallengeType(challengeType string) bool {
	_, ok := messageSequences[challengeType]
	return ok
}
