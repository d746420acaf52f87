package session_test

import (
	"reflect"
	"testing"

	"github.com/clarahexa/clarabot/internal/session"
)

func TestMerge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		existing map[string]any
		delta    map[string]any
		expected map[string]any
	}{
		{
			name:     "scalar overwrite",
			existing: map[string]any{"lastFormId": "a", "lastFormTitle": "Old"},
			delta:    map[string]any{"lastFormId": "b"},
			expected: map[string]any{"lastFormId": "b", "lastFormTitle": "Old"},
		},
		{
			name:     "new keys are added",
			existing: map[string]any{},
			delta:    map[string]any{"lastFormUrl": "https://tinyurl.com/x"},
			expected: map[string]any{"lastFormUrl": "https://tinyurl.com/x"},
		},
		{
			name: "createdForms concatenates",
			existing: map[string]any{
				"createdForms": []any{map[string]any{"id": "1", "title": "A"}},
			},
			delta: map[string]any{
				"createdForms": []any{map[string]any{"id": "2", "title": "B"}},
			},
			expected: map[string]any{
				"createdForms": []any{
					map[string]any{"id": "1", "title": "A"},
					map[string]any{"id": "2", "title": "B"},
				},
			},
		},
		{
			name:     "createdForms with no prior list is set",
			existing: map[string]any{},
			delta:    map[string]any{"createdForms": []any{map[string]any{"id": "1"}}},
			expected: map[string]any{"createdForms": []any{map[string]any{"id": "1"}}},
		},
		{
			name: "conversationHistory is replaced wholesale",
			existing: map[string]any{
				"conversationHistory": []any{
					map[string]any{"user": "old", "bot": "old"},
				},
			},
			delta: map[string]any{
				"conversationHistory": []any{
					map[string]any{"user": "new", "bot": "new"},
				},
			},
			expected: map[string]any{
				"conversationHistory": []any{
					map[string]any{"user": "new", "bot": "new"},
				},
			},
		},
		{
			name:     "non-list delta on a list key overwrites",
			existing: map[string]any{"createdForms": []any{map[string]any{"id": "1"}}},
			delta:    map[string]any{"createdForms": "corrupt"},
			expected: map[string]any{"createdForms": "corrupt"},
		},
		{
			name: "nested object overwrites shallowly",
			existing: map[string]any{
				"metadata": map[string]any{"botName": "Clarahexa", "other": true},
			},
			delta: map[string]any{
				"metadata": map[string]any{"botName": "Ren"},
			},
			expected: map[string]any{
				"metadata": map[string]any{"botName": "Ren"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := session.Merge(tt.existing, tt.delta)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Merge() = %#v, want %#v", got, tt.expected)
			}
		})
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	existing := map[string]any{"createdForms": []any{"a"}}
	delta := map[string]any{"createdForms": []any{"b"}}

	_ = session.Merge(existing, delta)

	if len(existing["createdForms"].([]any)) != 1 {
		t.Error("Merge() mutated the existing map")
	}
	if len(delta["createdForms"].([]any)) != 1 {
		t.Error("Merge() mutated the delta map")
	}
}
