package tools

import (
	"github.com/clarahexa/clarabot/internal/intent"
)

// Registry maps intents to tools. Constructed once at startup and passed by
// reference; immutable afterwards.
type Registry struct {
	tools map[intent.Intent]Tool
}

// NewRegistry wires the standard intent-to-tool mapping. The conversational
// tool answers identity, general QA, and unknown alike.
func NewRegistry(creator, updater, contributor, analytics, schedule, conversational Tool) *Registry {
	return &Registry{tools: map[intent.Intent]Tool{
		intent.CreateForm:     creator,
		intent.UpdateForm:     updater,
		intent.ShareForm:      contributor,
		intent.CheckResponses: analytics,
		intent.CheckSchedule:  schedule,
		intent.GeneralQA:      conversational,
		intent.Identity:       conversational,
		intent.Unknown:        conversational,
	}}
}

// Get returns the tool registered for the intent.
func (r *Registry) Get(tag intent.Intent) (Tool, bool) {
	t, ok := r.tools[tag]
	return t, ok
}
