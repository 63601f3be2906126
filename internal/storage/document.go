package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wrenfold/roundtable/internal/game"
)

// documentVersion is bumped whenever the document shape changes in a way
// old readers cannot decode.
const documentVersion = 1

var (
	// ErrEmptyDocument indicates a document with no content.
	ErrEmptyDocument = errors.New("session document is empty")
	// ErrUnsupportedVersion indicates a document written by an
	// incompatible codec version.
	ErrUnsupportedVersion = errors.New("unsupported document version")
)

type stateDoc struct {
	Version      int                     `json:"version"`
	ID           string                  `json:"id"`
	Name         string                  `json:"name"`
	TurnQueue    []string                `json:"turn_queue"`
	TurnCount    int                     `json:"turn_count"`
	Cursor       int                     `json:"cursor"`
	Log          []logEntryDoc           `json:"ground_truth_log"`
	Party        map[string]string       `json:"party"`
	Sheets       map[string]sheetDoc     `json:"character_sheets"`
	Secrets      map[string][]whisperDoc `json:"agent_secrets,omitempty"`
	Combat       *combatDoc              `json:"combat_state,omitempty"`
	TacticalMode bool                    `json:"tactical_mode,omitempty"`
	ParentID     string                  `json:"parent_id,omitempty"`
	OriginID     string                  `json:"origin_id,omitempty"`
	ForkedAtTurn int                     `json:"forked_at_turn,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

type logEntryDoc struct {
	Kind    string `json:"kind"`
	Turn    int    `json:"turn"`
	Speaker string `json:"speaker"`
	Content string `json:"content"`
}

type sheetDoc struct {
	Name          string           `json:"name"`
	Class         string           `json:"class,omitempty"`
	Level         int              `json:"level,omitempty"`
	Abilities     abilityDoc       `json:"abilities"`
	HPCurrent     int              `json:"hp_current"`
	HPMax         int              `json:"hp_max"`
	ArmorClass    int              `json:"armor_class,omitempty"`
	InitiativeMod int              `json:"initiative_mod,omitempty"`
	Proficiencies []string         `json:"proficiencies,omitempty"`
	Equipment     []string         `json:"equipment,omitempty"`
	Conditions    []string         `json:"conditions,omitempty"`
	Spellcasting  *spellcastingDoc `json:"spellcasting,omitempty"`
}

type abilityDoc struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

type spellcastingDoc struct {
	Ability string      `json:"ability"`
	Slots   map[int]int `json:"slots,omitempty"`
	Known   []string    `json:"known,omitempty"`
}

type whisperDoc struct {
	ID           string `json:"id"`
	FromAgent    string `json:"from_agent"`
	ToAgent      string `json:"to_agent"`
	Content      string `json:"content"`
	TurnCreated  int    `json:"turn_created"`
	Revealed     bool   `json:"revealed,omitempty"`
	TurnRevealed *int   `json:"turn_revealed,omitempty"`
}

type combatDoc struct {
	Active            bool              `json:"active"`
	RoundNumber       int               `json:"round_number"`
	InitiativeOrder   []string          `json:"initiative_order,omitempty"`
	InitiativeRolls   map[string]int    `json:"initiative_rolls,omitempty"`
	OriginalTurnQueue []string          `json:"original_turn_queue,omitempty"`
	NpcProfiles       map[string]npcDoc `json:"npc_profiles,omitempty"`
}

type npcDoc struct {
	Name          string   `json:"name"`
	InitiativeMod int      `json:"initiative_mod,omitempty"`
	HPMax         int      `json:"hp_max"`
	HPCurrent     int      `json:"hp_current"`
	ArmorClass    int      `json:"armor_class,omitempty"`
	Personality   string   `json:"personality,omitempty"`
	Tactics       string   `json:"tactics,omitempty"`
	Secret        string   `json:"secret,omitempty"`
	Conditions    []string `json:"conditions,omitempty"`
}

// EncodeState serializes a state into its versioned document form.
func EncodeState(state game.GameState) ([]byte, error) {
	doc := stateDoc{
		Version:      documentVersion,
		ID:           state.ID,
		Name:         state.Name,
		TurnQueue:    state.TurnQueue,
		TurnCount:    state.TurnCount,
		Cursor:       state.Cursor,
		Log:          make([]logEntryDoc, len(state.Log)),
		Party:        state.Party,
		Sheets:       make(map[string]sheetDoc, len(state.Sheets)),
		TacticalMode: state.TacticalMode,
		ParentID:     state.ParentID,
		OriginID:     state.OriginID,
		ForkedAtTurn: state.ForkedAtTurn,
		CreatedAt:    state.CreatedAt.UTC(),
		UpdatedAt:    state.UpdatedAt.UTC(),
	}

	for i, entry := range state.Log {
		doc.Log[i] = logEntryDoc{
			Kind:    string(entry.Kind),
			Turn:    entry.Turn,
			Speaker: entry.Speaker,
			Content: entry.Content,
		}
	}
	for name, sheet := range state.Sheets {
		doc.Sheets[name] = encodeSheet(sheet)
	}
	if len(state.Secrets) > 0 {
		doc.Secrets = make(map[string][]whisperDoc, len(state.Secrets))
		for agent, whispers := range state.Secrets {
			list := make([]whisperDoc, len(whispers))
			for i, w := range whispers {
				list[i] = whisperDoc(w)
			}
			doc.Secrets[agent] = list
		}
	}
	if state.Combat.Active {
		combat := encodeCombat(state.Combat)
		doc.Combat = &combat
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode session document: %w", err)
	}
	return encoded, nil
}

// DecodeState reconstructs a state from its document form. Absent optional
// fields fall back to their documented defaults: no combat_state means
// combat is inactive, no agent_secrets means no whispers, no fork metadata
// means a root timeline. Malformed documents fail as a whole; a partially
// decoded state is never returned.
func DecodeState(data []byte) (game.GameState, error) {
	if len(data) == 0 {
		return game.GameState{}, ErrEmptyDocument
	}

	var doc stateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return game.GameState{}, fmt.Errorf("decode session document: %w", err)
	}
	if doc.Version != documentVersion {
		return game.GameState{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	if strings.TrimSpace(doc.ID) == "" {
		return game.GameState{}, errors.New("session document missing id")
	}
	if strings.TrimSpace(doc.Name) == "" {
		return game.GameState{}, errors.New("session document missing name")
	}

	state := game.GameState{
		ID:           doc.ID,
		Name:         doc.Name,
		TurnQueue:    doc.TurnQueue,
		TurnCount:    doc.TurnCount,
		Cursor:       doc.Cursor,
		Log:          make([]game.LogEntry, len(doc.Log)),
		Party:        doc.Party,
		Sheets:       make(map[string]game.CharacterSheet, len(doc.Sheets)),
		Secrets:      make(map[string][]game.Whisper, len(doc.Secrets)),
		TacticalMode: doc.TacticalMode,
		ParentID:     doc.ParentID,
		OriginID:     doc.OriginID,
		ForkedAtTurn: doc.ForkedAtTurn,
		CreatedAt:    doc.CreatedAt.UTC(),
		UpdatedAt:    doc.UpdatedAt.UTC(),
	}
	if state.Party == nil {
		state.Party = map[string]string{}
	}
	if state.OriginID == "" {
		state.OriginID = doc.ID
	}

	for i, entry := range doc.Log {
		kind, err := parseEntryKind(entry.Kind)
		if err != nil {
			return game.GameState{}, fmt.Errorf("log entry %d: %w", i, err)
		}
		state.Log[i] = game.LogEntry{
			Kind:    kind,
			Turn:    entry.Turn,
			Speaker: entry.Speaker,
			Content: entry.Content,
		}
	}
	for name, sheet := range doc.Sheets {
		decoded := decodeSheet(sheet)
		if err := game.ValidateSheet(decoded); err != nil {
			return game.GameState{}, fmt.Errorf("sheet %q: %w", name, err)
		}
		state.Sheets[name] = decoded
	}
	for agent, whispers := range doc.Secrets {
		list := make([]game.Whisper, len(whispers))
		for i, w := range whispers {
			list[i] = game.Whisper(w)
		}
		state.Secrets[agent] = list
	}
	if doc.Combat != nil {
		combat, err := decodeCombat(*doc.Combat)
		if err != nil {
			return game.GameState{}, err
		}
		state.Combat = combat
	}

	return state, nil
}

func encodeSheet(sheet game.CharacterSheet) sheetDoc {
	doc := sheetDoc{
		Name:          sheet.Name,
		Class:         sheet.Class,
		Level:         sheet.Level,
		Abilities:     abilityDoc(sheet.Abilities),
		HPCurrent:     sheet.HPCurrent,
		HPMax:         sheet.HPMax,
		ArmorClass:    sheet.ArmorClass,
		InitiativeMod: sheet.InitiativeMod,
		Proficiencies: sheet.Proficiencies,
		Equipment:     sheet.Equipment,
		Conditions:    sheet.Conditions,
	}
	if sheet.Spellcasting != nil {
		doc.Spellcasting = &spellcastingDoc{
			Ability: sheet.Spellcasting.Ability,
			Slots:   sheet.Spellcasting.SlotsByLevel,
			Known:   sheet.Spellcasting.Known,
		}
	}
	return doc
}

func decodeSheet(doc sheetDoc) game.CharacterSheet {
	sheet := game.CharacterSheet{
		Name:          doc.Name,
		Class:         doc.Class,
		Level:         doc.Level,
		Abilities:     game.AbilityScores(doc.Abilities),
		HPCurrent:     doc.HPCurrent,
		HPMax:         doc.HPMax,
		ArmorClass:    doc.ArmorClass,
		InitiativeMod: doc.InitiativeMod,
		Proficiencies: doc.Proficiencies,
		Equipment:     doc.Equipment,
		Conditions:    doc.Conditions,
	}
	if doc.Spellcasting != nil {
		sheet.Spellcasting = &game.Spellcasting{
			Ability:      doc.Spellcasting.Ability,
			SlotsByLevel: doc.Spellcasting.Slots,
			Known:        doc.Spellcasting.Known,
		}
	}
	return sheet
}

func encodeCombat(combat game.CombatState) combatDoc {
	doc := combatDoc{
		Active:            combat.Active,
		RoundNumber:       combat.RoundNumber,
		InitiativeOrder:   combat.InitiativeOrder,
		InitiativeRolls:   combat.InitiativeRolls,
		OriginalTurnQueue: combat.OriginalTurnQueue,
	}
	if len(combat.NpcProfiles) > 0 {
		doc.NpcProfiles = make(map[string]npcDoc, len(combat.NpcProfiles))
		for key, profile := range combat.NpcProfiles {
			doc.NpcProfiles[key] = npcDoc(profile)
		}
	}
	return doc
}

func decodeCombat(doc combatDoc) (game.CombatState, error) {
	combat := game.CombatState{
		Active:            doc.Active,
		RoundNumber:       doc.RoundNumber,
		InitiativeOrder:   doc.InitiativeOrder,
		InitiativeRolls:   doc.InitiativeRolls,
		OriginalTurnQueue: doc.OriginalTurnQueue,
	}
	if len(doc.NpcProfiles) > 0 {
		combat.NpcProfiles = make(map[string]game.NpcProfile, len(doc.NpcProfiles))
		for key, profile := range doc.NpcProfiles {
			decoded := game.NpcProfile(profile)
			if err := game.ValidateNpcProfile(decoded); err != nil {
				return game.CombatState{}, fmt.Errorf("npc %q: %w", key, err)
			}
			combat.NpcProfiles[key] = decoded
		}
	}
	return combat, nil
}

func parseEntryKind(value string) (game.EntryKind, error) {
	switch game.EntryKind(value) {
	case game.EntryNarrative, game.EntryDice, game.EntrySecretReveal, game.EntrySheetChange:
		return game.EntryKind(value), nil
	default:
		return "", fmt.Errorf("unknown log entry kind: %q", value)
	}
}
