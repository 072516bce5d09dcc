package workspace

// Completion is always re-derived from current child state, never read from
// a cached flag.

// documentComplete reports whether a document with the given signatures is
// fully signed. A document with no signatures is never complete.
func documentComplete(sigs []Signature) bool {
	if len(sigs) == 0 {
		return false
	}
	for _, s := range sigs {
		if s.Status != SignatureSigned {
			return false
		}
	}
	return true
}

// workspaceComplete reports whether every document is completed. A workspace
// with no documents is never complete.
func workspaceComplete(docs []Document) bool {
	if len(docs) == 0 {
		return false
	}
	for _, d := range docs {
		if d.Status != DocumentCompleted {
			return false
		}
	}
	return true
}

// contractComplete reports whether every document referencing a contract is
// completed, across all workspaces. No documents means not complete.
func contractComplete(docs []Document) bool {
	return workspaceComplete(docs)
}

// signedParticipantIDs returns the distinct participants holding a SIGNED
// signature, in signature order.
func signedParticipantIDs(sigs []Signature) []string {
	seen := make(map[string]bool, len(sigs))
	var out []string
	for _, s := range sigs {
		if s.Status != SignatureSigned || seen[s.ParticipantID] {
			continue
		}
		seen[s.ParticipantID] = true
		out = append(out, s.ParticipantID)
	}
	return out
}
