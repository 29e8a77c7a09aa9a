package domain

// SearchFilter carries the equality filters both retrieval backends accept.
// Zero values mean "no filter on this field".
type SearchFilter struct {
	Service    string
	Role       string
	TenderID   string
	PhaseCode  string
	PhaseLabel string
	DocCode    string
	Commune    string
	Signed     bool
}

// FilterField is one metadata predicate in backend-neutral form.
type FilterField struct {
	Key   string
	Value string
}

// Fields returns the non-empty predicates in a fixed order so both
// backends build identical filter clauses for the same query.
func (f SearchFilter) Fields() []FilterField {
	out := make([]FilterField, 0, 8)
	add := func(key, value string) {
		if value != "" {
			out = append(out, FilterField{Key: key, Value: value})
		}
	}
	add("service", f.Service)
	add("role", f.Role)
	add("ao_id", f.TenderID)
	add("ao_phase_code", f.PhaseCode)
	add("ao_phase_label", f.PhaseLabel)
	add("ao_doc_code", f.DocCode)
	add("ao_commune", f.Commune)
	if f.Signed {
		add("ao_signed", "true")
	}
	return out
}

// IsZero reports whether no predicate is set.
func (f SearchFilter) IsZero() bool {
	return len(f.Fields()) == 0
}

// Merge fills empty fields of f from other. Fields already set on f win.
func (f SearchFilter) Merge(other SearchFilter) SearchFilter {
	out := f
	if out.Service == "" {
		out.Service = other.Service
	}
	if out.Role == "" {
		out.Role = other.Role
	}
	if out.TenderID == "" {
		out.TenderID = other.TenderID
	}
	if out.PhaseCode == "" {
		out.PhaseCode = other.PhaseCode
	}
	if out.PhaseLabel == "" {
		out.PhaseLabel = other.PhaseLabel
	}
	if out.DocCode == "" {
		out.DocCode = other.DocCode
	}
	if out.Commune == "" {
		out.Commune = other.Commune
	}
	out.Signed = out.Signed || other.Signed
	return out
}

// RetrievalCandidate is one passage surfaced by a retrieval backend.
// The same passage carries the same ID in both backends.
type RetrievalCandidate struct {
	ID         string
	Source     string
	Text       string
	Metadata   map[string]string
	RawScore   float64
	OriginRank int
}

// FusedCandidate is a retrieval candidate after rank fusion. RerankScore is
// only meaningful when Reranked is true.
type FusedCandidate struct {
	RetrievalCandidate
	FusedScore  float64
	RerankScore float64
	Reranked    bool
}

// RelevanceScore is the score the relevance gate filters on: the rerank
// score when the reranker ran, the fused score otherwise.
func (c FusedCandidate) RelevanceScore() float64 {
	if c.Reranked {
		return c.RerankScore
	}
	return c.FusedScore
}

// Hit is the raw summary returned when the caller asks for hits only.
type Hit struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Source   string            `json:"source"`
	Metadata map[string]string `json:"metadata"`
	Snippet  string            `json:"snippet"`
}

// CitationRecord ties a context passage back to its source document.
// Records sharing a source share the same number.
type CitationRecord struct {
	Source   string `json:"source"`
	ChunkKey string `json:"chunk"`
	Number   int    `json:"number"`
	Snippet  string `json:"snippet"`
}

// SearchOutcome distinguishes the terminal shapes of one search execution.
type SearchOutcome string

const (
	OutcomeAnswerable     SearchOutcome = "answerable"
	OutcomeVagueQuestion  SearchOutcome = "vague_question"
	OutcomeRAGDisabled    SearchOutcome = "rag_disabled"
	OutcomeEmptyRetrieval SearchOutcome = "empty_retrieval"
	OutcomeNotRelevant    SearchOutcome = "insufficient_relevance"
)

// SearchRequest is the inbound contract of the retrieval core.
type SearchRequest struct {
	Question       string
	Filters        SearchFilter
	UseHybrid      bool
	ReturnHitsOnly bool
	// ExplicitRAG overrides inline question markers and the process default
	// when non-nil.
	ExplicitRAG *bool
}

// SearchResult is what one search execution hands back to the caller.
// Context and Citations are only populated for OutcomeAnswerable; Message
// carries the fixed user-facing copy of the terminal outcomes.
type SearchResult struct {
	Outcome   SearchOutcome
	Question  string
	Intent    QueryIntent
	Filters   SearchFilter
	Context   string
	Citations []CitationRecord
	Hits      []Hit
	Message   string
}

// Answer is the final user-facing result of the gateway.
type Answer struct {
	Text      string           `json:"answer"`
	Citations []CitationRecord `json:"citations"`
}

// InventoryRecord is one row of the per-project document inventory.
type InventoryRecord struct {
	Project      string
	Folder       string
	Filename     string
	RelativePath string
	DocType      string
}

// InsightRecord is one precomputed estimate total.
type InsightRecord struct {
	SourcePath string
	Label      string
	Value      float64
	Unit       string
}
