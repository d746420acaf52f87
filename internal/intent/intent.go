// Package intent classifies normalized messages into a closed intent set
// using cheap rule-based quick paths with an LLM fallback.
package intent

// Intent is one tag from the closed intent set.
type Intent string

const (
	Identity       Intent = "identity"
	CreateForm     Intent = "create_form"
	UpdateForm     Intent = "update_form"
	CheckSchedule  Intent = "check_schedule"
	CheckResponses Intent = "check_responses"
	ShareForm      Intent = "share_form"
	Acknowledgment Intent = "acknowledgment"
	Clarification  Intent = "clarification"
	GeneralQA      Intent = "general_qa"
	Unknown        Intent = "unknown"
)
