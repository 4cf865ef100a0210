package scoring

// CostLedger accumulates billable cost and token usage across pipeline
// stages. Each stage returns its own entry; the pipeline compiler merges
// them, so cost is auditable per stage instead of hidden in shared state.
type CostLedger struct {
	Entries []CostEntry
}

// CostEntry records one generation call's usage.
type CostEntry struct {
	Stage            string
	PromptTokens     int
	CompletionTokens int
	CostUnits        float64
}

// Add appends a stage's usage to the ledger.
func (l *CostLedger) Add(entry CostEntry) {
	l.Entries = append(l.Entries, entry)
}

// Merge appends all of another ledger's entries.
func (l *CostLedger) Merge(other CostLedger) {
	l.Entries = append(l.Entries, other.Entries...)
}

// TotalCostUnits sums cost units across all entries.
func (l *CostLedger) TotalCostUnits() float64 {
	var total float64
	for _, e := range l.Entries {
		total += e.CostUnits
	}
	return total
}

// TotalTokens sums prompt and completion tokens across all entries.
func (l *CostLedger) TotalTokens() int {
	var total int
	for _, e := range l.Entries {
		total += e.PromptTokens + e.CompletionTokens
	}
	return total
}
