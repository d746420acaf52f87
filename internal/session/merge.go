package session

// listMergeKeys is the declared merge-strategy table: state keys listed here
// hold running lists whose delta values are concatenated onto the existing
// value. Every other key is a shallow overwrite, including
// conversationHistory, which tools trim and replace wholesale. The strategy
// is declared per key rather than inferred from the JSON value's type so
// that a tool replacing a list-shaped scalar cannot silently wipe the
// running created-forms list.
var listMergeKeys = map[string]struct{}{
	"createdForms": {},
}

// Merge combines a state delta into the existing session state and returns
// the merged document. Neither input map is modified.
func Merge(existing, delta map[string]any) map[string]any {
	merged := make(map[string]any, len(existing)+len(delta))
	for k, v := range existing {
		merged[k] = v
	}

	for k, v := range delta {
		if _, isList := listMergeKeys[k]; isList {
			prev, prevOK := existing[k].([]any)
			next, nextOK := v.([]any)
			if prevOK && nextOK {
				combined := make([]any, 0, len(prev)+len(next))
				combined = append(combined, prev...)
				combined = append(combined, next...)
				merged[k] = combined
				continue
			}
		}
		merged[k] = v
	}

	return merged
}
