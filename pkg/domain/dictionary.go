package domain

// StageLedger is the ordered, configurable list of lifecycle stage names.
// Order defines funnel semantics; the ledger makes no cardinality assumptions
// beyond being non-empty for funnel computation to be meaningful.
type StageLedger []string

// IndexOf returns the position of the stage in the ledger, or -1 when the
// stage is absent. The -1 sentinel is how dangling references are excluded
// from funnel buckets without crashing.
func (l StageLedger) IndexOf(stage string) int {
	for i, s := range l {
		if s == stage {
			return i
		}
	}
	return -1
}

// Contains reports whether the stage is a member of the ledger.
func (l StageLedger) Contains(stage string) bool { return l.IndexOf(stage) >= 0 }

// Dictionaries holds the process-wide configuration sequences shared by the
// stores. They are passed explicitly; nothing in the pipeline reads them from
// ambient state.
type Dictionaries struct {
	BusinessUnits []string    `json:"business_units"`
	Stages        StageLedger `json:"stages"`
	ProductLines  []string    `json:"product_lines"`
}

// DictionaryKind selects one of the three dictionary sequences.
type DictionaryKind string

// Dictionary kinds addressable by add/remove operations.
const (
	DictBusinessUnit DictionaryKind = "business_unit"
	DictStage        DictionaryKind = "stage"
	DictProductLine  DictionaryKind = "product_line"
)

// Clone returns a deep copy of the dictionaries.
func (d Dictionaries) Clone() Dictionaries {
	return Dictionaries{
		BusinessUnits: append([]string(nil), d.BusinessUnits...),
		Stages:        append(StageLedger(nil), d.Stages...),
		ProductLines:  append([]string(nil), d.ProductLines...),
	}
}
