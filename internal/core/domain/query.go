package domain

// QueryIntent is the coarse question category used to pick the answer
// prompt and to trigger numeric prioritization.
type QueryIntent string

const (
	IntentIdentitySheet QueryIntent = "identity_sheet"
	IntentNumeric       QueryIntent = "numeric_question"
	IntentInventory     QueryIntent = "document_inventory"
	IntentOther         QueryIntent = "other"
)

// RouterResult is what the query router extracted from the question text.
type RouterResult struct {
	Filters    SearchFilter
	Confidence float64
}

// AnswerRequest is the inbound contract of the answer shell.
type AnswerRequest struct {
	Question string
	Service  string
	Role     string
	// ExplicitRAG overrides inline question markers when non-nil.
	ExplicitRAG *bool
}
