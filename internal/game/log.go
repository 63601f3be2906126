package game

// EntryKind tags a ground-truth log entry with the kind of event it records.
type EntryKind string

const (
	// EntryNarrative is prose spoken by the director or a player agent.
	EntryNarrative EntryKind = "narrative"
	// EntryDice records a resolved dice roll.
	EntryDice EntryKind = "dice"
	// EntrySecretReveal records a whisper being revealed to the table.
	EntrySecretReveal EntryKind = "secret_reveal"
	// EntrySheetChange records a character sheet delta.
	EntrySheetChange EntryKind = "sheet_change"
)

// LogEntry is one entry in the shared ground-truth log. Entries are only
// ever appended, never reordered or edited.
type LogEntry struct {
	Kind    EntryKind
	Turn    int
	Speaker string
	Content string
}
