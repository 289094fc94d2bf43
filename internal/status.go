package internal

import "regexp"

// statusMsgPattern is the only accepted shape for a resolved status.
var statusMsgPattern = regexp.MustCompile(`^(Ok|Error:.+)$`)

// ValidStatusMsg reports whether statusMsg is "Ok" or "Error:<reason>".
func ValidStatusMsg(statusMsg string) bool {
	return statusMsgPattern.MatchString(statusMsg)
}
