package agent

import "fmt"

// ProtocolError reports that a model turn ended with a stop reason the agent
// cannot continue from. It carries the offending reason and the logical
// endpoint for diagnostics.
type ProtocolError struct {
	Agent      string // "suggest" or "web_search"
	Endpoint   string
	StopReason string
	Message    string
}

func (e *ProtocolError) Error() string {
	if e.StopReason != "" {
		return fmt.Sprintf("%s agent error at %s: %s (stop reason %q)", e.Agent, e.Endpoint, e.Message, e.StopReason)
	}
	return fmt.Sprintf("%s agent error at %s: %s", e.Agent, e.Endpoint, e.Message)
}

// ValidationError reports that the model's final text did not satisfy the
// suggestion payload schema. Fatal for the request; never retried.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("suggestion payload validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// TurnLimitError reports that the suggestion loop hit its iteration bound
// without the model producing a final answer.
type TurnLimitError struct {
	Limit int
}

func (e *TurnLimitError) Error() string {
	return fmt.Sprintf("suggestion loop exceeded %d turns without a final answer", e.Limit)
}
