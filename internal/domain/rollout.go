package domain

// IndexRolloutResult reports one blue-green rollout. OldIndex is empty
// when the alias did not exist before.
type IndexRolloutResult struct {
	OldIndex     string `json:"oldIndex,omitempty"`
	NewIndex     string `json:"newIndex"`
	IndexedCount int    `json:"indexedCount"`
}
