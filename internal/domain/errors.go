package domain

import "errors"

// Step-specific failures. Engine I/O errors wrap one of these.
var (
	ErrSearch              = errors.New("search failed")
	ErrAliasLookup         = errors.New("alias lookup failed")
	ErrIndexCreation       = errors.New("index creation failed")
	ErrBulkIndex           = errors.New("bulk indexing failed")
	ErrAliasSwap           = errors.New("alias swap failed")
	ErrIndexCleanup        = errors.New("index cleanup failed")
	ErrSynonymUpdate       = errors.New("synonym set update failed")
	ErrAnalyzerReload      = errors.New("search analyzer reload failed")
	ErrRolloutInProgress   = errors.New("index rollout already in progress")
	ErrInvalidRuleDocument = errors.New("category boost rule document has no version")
	ErrEmbedding           = errors.New("embedding failed")
)
