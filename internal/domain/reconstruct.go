package domain

// Reconstruct rebuilds the continuation context that ends at parentID from an
// unordered pool of records. The record whose ID equals parentID is the most
// recent turn; the walk continues with that record's ParentMessageID until no
// record matches. When several records share an ID the first one in input
// order wins. A revisited ID ends the walk, so malformed histories with
// cycles still terminate.
func Reconstruct(records []MessageRecord, parentID string) ContinuationContext {
	chain := ContinuationContext{}
	if parentID == "" {
		return chain
	}

	visited := make(map[string]struct{}, len(records))
	for parentID != "" {
		if _, seen := visited[parentID]; seen {
			break
		}
		visited[parentID] = struct{}{}

		record, found := findRecord(records, parentID)
		if !found {
			break
		}

		chain = append(chain, Turn{Prompt: record.Prompt, Response: record.Response})
		parentID = record.ParentMessageID
	}

	return chain
}

func findRecord(records []MessageRecord, id string) (MessageRecord, bool) {
	for _, record := range records {
		if record.ID == id {
			return record, true
		}
	}
	return MessageRecord{}, false
}

// Chronological returns the turns ordered from the root to the most recent.
func (c ContinuationContext) Chronological() []Turn {
	turns := make([]Turn, len(c))
	for i, turn := range c {
		turns[len(c)-1-i] = turn
	}
	return turns
}

// Limit keeps at most maxTurns of the most recent turns. Zero or negative
// keeps everything.
func (c ContinuationContext) Limit(maxTurns int) ContinuationContext {
	if maxTurns <= 0 || len(c) <= maxTurns {
		return c
	}
	return c[:maxTurns]
}
