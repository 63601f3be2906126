package game

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyCharacterName indicates a missing character name.
	ErrEmptyCharacterName = errors.New("character name is required")
	// ErrInvalidHitPoints indicates hit points outside 0..max.
	ErrInvalidHitPoints = errors.New("hit points must satisfy 0 <= current <= max")
)

// AbilityScores holds the six core ability scores.
type AbilityScores struct {
	Strength     int
	Dexterity    int
	Constitution int
	Intelligence int
	Wisdom       int
	Charisma     int
}

// Spellcasting holds casting data for characters that cast spells.
type Spellcasting struct {
	Ability      string
	SlotsByLevel map[int]int
	Known        []string
}

// CharacterSheet describes one character's full sheet. Sheets are keyed in
// GameState by Name, the character's proper display name.
type CharacterSheet struct {
	Name          string
	Class         string
	Level         int
	Abilities     AbilityScores
	HPCurrent     int
	HPMax         int
	ArmorClass    int
	InitiativeMod int
	Proficiencies []string
	Equipment     []string
	Conditions    []string
	Spellcasting  *Spellcasting
}

// ValidateSheet checks sheet invariants. Current hit points may be 0 for an
// incapacitated character but never negative or above the maximum.
func ValidateSheet(sheet CharacterSheet) error {
	if strings.TrimSpace(sheet.Name) == "" {
		return ErrEmptyCharacterName
	}
	if sheet.HPMax < 0 || sheet.HPCurrent < 0 || sheet.HPCurrent > sheet.HPMax {
		return fmt.Errorf("%w: current %d, max %d", ErrInvalidHitPoints, sheet.HPCurrent, sheet.HPMax)
	}
	return nil
}

// ClampHP forces a current hit point value into [0, max].
func ClampHP(current, max int) int {
	if current < 0 {
		return 0
	}
	if current > max {
		return max
	}
	return current
}

// cloneSheet deep-copies a sheet so a patched copy never aliases the
// original's slices.
func cloneSheet(sheet CharacterSheet) CharacterSheet {
	out := sheet
	out.Proficiencies = cloneStrings(sheet.Proficiencies)
	out.Equipment = cloneStrings(sheet.Equipment)
	out.Conditions = cloneStrings(sheet.Conditions)
	if sheet.Spellcasting != nil {
		casting := Spellcasting{
			Ability: sheet.Spellcasting.Ability,
			Known:   cloneStrings(sheet.Spellcasting.Known),
		}
		if sheet.Spellcasting.SlotsByLevel != nil {
			casting.SlotsByLevel = make(map[int]int, len(sheet.Spellcasting.SlotsByLevel))
			for level, slots := range sheet.Spellcasting.SlotsByLevel {
				casting.SlotsByLevel[level] = slots
			}
		}
		out.Spellcasting = &casting
	}
	return out
}

// SheetPatch describes a field-level delta applied by the update-sheet
// action. Nil and empty fields leave the sheet untouched.
type SheetPatch struct {
	HPSet            *int
	HPDelta          *int
	AddEquipment     []string
	RemoveEquipment  []string
	AddConditions    []string
	RemoveConditions []string
}

// IsZero reports whether the patch changes nothing.
func (p SheetPatch) IsZero() bool {
	return p.HPSet == nil && p.HPDelta == nil &&
		len(p.AddEquipment) == 0 && len(p.RemoveEquipment) == 0 &&
		len(p.AddConditions) == 0 && len(p.RemoveConditions) == 0
}

// SheetChange summarizes an applied patch for the shared log.
type SheetChange struct {
	Name              string
	HPChanged         bool
	HPBefore          int
	HPAfter           int
	AddedEquipment    []string
	RemovedEquipment  []string
	AddedConditions   []string
	RemovedConditions []string
}

// ApplySheetPatch applies a delta to a sheet and reports what changed.
//
// Hit points are resolved as an absolute set first, then a delta, and the
// final value is always clamped into [0, HPMax] regardless of how far the
// requested change would overflow or underflow it. Equipment and condition
// removals match case-insensitively and drop every occurrence; additions
// skip items already present.
func ApplySheetPatch(sheet CharacterSheet, patch SheetPatch) (CharacterSheet, SheetChange) {
	result := cloneSheet(sheet)
	change := SheetChange{Name: sheet.Name, HPBefore: sheet.HPCurrent, HPAfter: sheet.HPCurrent}

	if patch.HPSet != nil || patch.HPDelta != nil {
		hp := sheet.HPCurrent
		if patch.HPSet != nil {
			hp = *patch.HPSet
		}
		if patch.HPDelta != nil {
			hp += *patch.HPDelta
		}
		result.HPCurrent = ClampHP(hp, sheet.HPMax)
		change.HPAfter = result.HPCurrent
		change.HPChanged = result.HPCurrent != sheet.HPCurrent
	}

	result.Equipment, change.AddedEquipment, change.RemovedEquipment =
		applyListDelta(result.Equipment, patch.AddEquipment, patch.RemoveEquipment)
	result.Conditions, change.AddedConditions, change.RemovedConditions =
		applyListDelta(result.Conditions, patch.AddConditions, patch.RemoveConditions)

	return result, change
}

// applyListDelta removes then adds items on a copy of list, reporting what
// actually changed.
func applyListDelta(list, add, remove []string) (result, added, removed []string) {
	result = list

	for _, item := range remove {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		kept := result[:0:0]
		found := false
		for _, existing := range result {
			if strings.EqualFold(existing, trimmed) {
				found = true
				continue
			}
			kept = append(kept, existing)
		}
		if found {
			result = kept
			removed = append(removed, trimmed)
		}
	}

	for _, item := range add {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		present := false
		for _, existing := range result {
			if strings.EqualFold(existing, trimmed) {
				present = true
				break
			}
		}
		if present {
			continue
		}
		result = append(result, trimmed)
		added = append(added, trimmed)
	}

	return result, added, removed
}

// Summary renders the change for a sheet-change log entry, for example
// "Thorin: 52 → 35 (-17); +poisoned; -rope".
func (c SheetChange) Summary() string {
	parts := make([]string, 0, 4)
	if c.HPChanged {
		parts = append(parts, fmt.Sprintf("%d → %d (%+d)", c.HPBefore, c.HPAfter, c.HPAfter-c.HPBefore))
	}
	for _, item := range c.AddedEquipment {
		parts = append(parts, "+"+item)
	}
	for _, item := range c.RemovedEquipment {
		parts = append(parts, "-"+item)
	}
	for _, item := range c.AddedConditions {
		parts = append(parts, "+"+item)
	}
	for _, item := range c.RemovedConditions {
		parts = append(parts, "-"+item)
	}
	if len(parts) == 0 {
		parts = append(parts, "no change")
	}
	return fmt.Sprintf("%s: %s", c.Name, strings.Join(parts, "; "))
}
