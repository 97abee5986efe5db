package listsync

// Decision is the outcome for one live list.
type Decision int

const (
	// DecisionNew marks a list without an index entry.
	DecisionNew Decision = iota
	// DecisionSkip marks a list whose change stamp matches the index.
	DecisionSkip
	// DecisionRefresh marks a list whose change stamp differs from the index.
	DecisionRefresh
)

func (d Decision) String() string {
	switch d {
	case DecisionNew:
		return "new"
	case DecisionSkip:
		return "skip"
	case DecisionRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Classify decides what to do with a live list given its stored entry.
func Classify(stored Entry, known bool, lastChanged string) Decision {
	if !known {
		return DecisionNew
	}
	if stored.LastChanged == lastChanged {
		return DecisionSkip
	}
	return DecisionRefresh
}

// Orphans returns the entries of index whose ids are not live, ordered by id.
// A live list is never an orphan, even when a pass cannot refresh it.
func Orphans(index Index, live []int64) []Entry {
	pending := index.Clone()
	for _, id := range live {
		delete(pending, id)
	}
	orphans := make([]Entry, 0, len(pending))
	for _, id := range pending.IDs() {
		entry := pending[id]
		entry.ID = id
		orphans = append(orphans, entry)
	}
	return orphans
}
