// Package scenario loads the YAML setup documents that new sessions are
// created from: the session name, the party and their sheets, the NPC
// roster the director may field, and the opening scene.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wrenfold/roundtable/internal/game"
)

var (
	// ErrEmptyDocument indicates a setup file with no content.
	ErrEmptyDocument = errors.New("scenario document is empty")
	// ErrDuplicateNpcKey indicates two roster entries normalizing to the
	// same key.
	ErrDuplicateNpcKey = errors.New("duplicate npc key")
)

// Document is the parsed setup file for one session.
type Document struct {
	Session      string   `yaml:"session"`
	TacticalMode bool     `yaml:"tactical_mode"`
	Opening      string   `yaml:"opening"`
	Party        []Member `yaml:"party"`
	Npcs         []Npc    `yaml:"npcs"`
}

// Member binds one player agent to its character sheet.
type Member struct {
	Agent string `yaml:"agent"`
	Sheet Sheet  `yaml:"sheet"`
}

// Sheet mirrors the character sheet fields in setup-file form. HPCurrent
// defaults to HPMax when omitted.
type Sheet struct {
	Name          string        `yaml:"name"`
	Class         string        `yaml:"class"`
	Level         int           `yaml:"level"`
	HPMax         int           `yaml:"hp_max"`
	HPCurrent     int           `yaml:"hp_current"`
	ArmorClass    int           `yaml:"armor_class"`
	InitiativeMod int           `yaml:"initiative_mod"`
	Abilities     Abilities     `yaml:"abilities"`
	Proficiencies []string      `yaml:"proficiencies"`
	Equipment     []string      `yaml:"equipment"`
	Conditions    []string      `yaml:"conditions"`
	Spellcasting  *Spellcasting `yaml:"spellcasting"`
}

// Abilities holds the six ability scores.
type Abilities struct {
	Strength     int `yaml:"strength"`
	Dexterity    int `yaml:"dexterity"`
	Constitution int `yaml:"constitution"`
	Intelligence int `yaml:"intelligence"`
	Wisdom       int `yaml:"wisdom"`
	Charisma     int `yaml:"charisma"`
}

// Spellcasting holds casting data for party members that cast.
type Spellcasting struct {
	Ability string      `yaml:"ability"`
	Slots   map[int]int `yaml:"slots"`
	Known   []string    `yaml:"known"`
}

// Npc is one roster entry the director may bring into combat. HPCurrent
// defaults to HPMax when omitted.
type Npc struct {
	Key           string `yaml:"key"`
	Name          string `yaml:"name"`
	HPMax         int    `yaml:"hp_max"`
	HPCurrent     int    `yaml:"hp_current"`
	ArmorClass    int    `yaml:"armor_class"`
	InitiativeMod int    `yaml:"initiative_mod"`
	Personality   string `yaml:"personality"`
	Tactics       string `yaml:"tactics"`
	Secret        string `yaml:"secret"`
}

// Load reads and parses the setup file at path.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read scenario %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return Document{}, fmt.Errorf("scenario %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a setup document. Unknown fields are rejected so a typo in
// a setup file fails loudly instead of silently dropping a character.
func Parse(data []byte) (Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Document{}, ErrEmptyDocument
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var doc Document
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, ErrEmptyDocument
		}
		return Document{}, fmt.Errorf("decode: %w", err)
	}

	doc.Session = strings.TrimSpace(doc.Session)
	doc.Opening = strings.TrimSpace(doc.Opening)

	if _, err := game.NormalizeCreateStateInput(doc.CreateInput()); err != nil {
		return Document{}, err
	}

	seen := make(map[string]int, len(doc.Npcs))
	for i, npc := range doc.Npcs {
		if err := game.ValidateNpcProfile(npc.Profile()); err != nil {
			return Document{}, fmt.Errorf("npc %d: %w", i, err)
		}
		key := game.NormalizeNpcKey(npc.Key, npc.Name)
		if at, dup := seen[key]; dup {
			return Document{}, fmt.Errorf("%w: entries %d and %d both normalize to %q", ErrDuplicateNpcKey, at, i, key)
		}
		seen[key] = i
	}

	return doc, nil
}

// CreateInput converts the document into session creation input.
func (d Document) CreateInput() game.CreateStateInput {
	players := make([]game.PlayerInput, len(d.Party))
	for i, member := range d.Party {
		players[i] = game.PlayerInput{
			Agent: member.Agent,
			Sheet: member.Sheet.sheet(),
		}
	}
	return game.CreateStateInput{
		Name:         d.Session,
		TacticalMode: d.TacticalMode,
		Players:      players,
	}
}

// Roster returns the NPC profiles keyed the same way start-combat keys
// its participants.
func (d Document) Roster() map[string]game.NpcProfile {
	if len(d.Npcs) == 0 {
		return nil
	}
	roster := make(map[string]game.NpcProfile, len(d.Npcs))
	for _, npc := range d.Npcs {
		roster[game.NormalizeNpcKey(npc.Key, npc.Name)] = npc.Profile()
	}
	return roster
}

func (s Sheet) sheet() game.CharacterSheet {
	current := s.HPCurrent
	if current == 0 {
		current = s.HPMax
	}

	sheet := game.CharacterSheet{
		Name:          strings.TrimSpace(s.Name),
		Class:         strings.TrimSpace(s.Class),
		Level:         s.Level,
		Abilities:     s.Abilities.scores(),
		HPCurrent:     current,
		HPMax:         s.HPMax,
		ArmorClass:    s.ArmorClass,
		InitiativeMod: s.InitiativeMod,
		Proficiencies: append([]string(nil), s.Proficiencies...),
		Equipment:     append([]string(nil), s.Equipment...),
		Conditions:    append([]string(nil), s.Conditions...),
	}
	if s.Spellcasting != nil {
		slots := make(map[int]int, len(s.Spellcasting.Slots))
		for level, count := range s.Spellcasting.Slots {
			slots[level] = count
		}
		sheet.Spellcasting = &game.Spellcasting{
			Ability:      strings.TrimSpace(s.Spellcasting.Ability),
			SlotsByLevel: slots,
			Known:        append([]string(nil), s.Spellcasting.Known...),
		}
	}
	return sheet
}

func (a Abilities) scores() game.AbilityScores {
	return game.AbilityScores{
		Strength:     a.Strength,
		Dexterity:    a.Dexterity,
		Constitution: a.Constitution,
		Intelligence: a.Intelligence,
		Wisdom:       a.Wisdom,
		Charisma:     a.Charisma,
	}
}

// Profile converts a roster entry into the combat profile shape.
func (n Npc) Profile() game.NpcProfile {
	current := n.HPCurrent
	if current == 0 {
		current = n.HPMax
	}
	return game.NpcProfile{
		Name:          strings.TrimSpace(n.Name),
		InitiativeMod: n.InitiativeMod,
		HPMax:         n.HPMax,
		HPCurrent:     current,
		ArmorClass:    n.ArmorClass,
		Personality:   strings.TrimSpace(n.Personality),
		Tactics:       strings.TrimSpace(n.Tactics),
		Secret:        strings.TrimSpace(n.Secret),
	}
}
