package media

import (
	"github.com/tidwall/gjson"
)

// StatusRule says where a vendor keeps the job state in a poll response.
type StatusRule struct {
	// StatePath is a gjson path to the state value, e.g. "status" or "done".
	StatePath string

	// States maps the vendor's state values to ours. Unlisted values on a
	// 2xx response count as pending.
	States map[string]State

	// ErrorPath marks the job failed when present, whatever the state says.
	ErrorPath string

	// MessagePaths are tried in order for the failure message.
	MessagePaths []string
}

// ParseStatus reads a poll response. A non-2xx response without a
// recognizable state is failed, so a broken job cannot poll forever.
func ParseStatus(code int, body []byte, rule StatusRule) Status {
	var st Status
	if gjson.ValidBytes(body) {
		if v := gjson.GetBytes(body, rule.StatePath); v.Exists() {
			st.State = rule.States[v.String()]
		}
		if e := gjson.GetBytes(body, rule.ErrorPath); rule.ErrorPath != "" && e.Exists() && e.Type != gjson.Null {
			st.State = StateFailed
		}
	}
	if st.State == "" {
		if code < 200 || code > 299 {
			st.State = StateFailed
		} else {
			st.State = StatePending
		}
	}
	if st.State == StateFailed || st.State == StateExpired {
		st.Message = failureMessage(body, rule.MessagePaths)
	}
	return st
}

func failureMessage(body []byte, paths []string) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, p := range paths {
		if v := gjson.GetBytes(body, p); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}
