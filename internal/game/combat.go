package game

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyNpcName indicates a missing NPC name.
	ErrEmptyNpcName = errors.New("npc name is required")
	// ErrInvalidNpcHitPoints indicates NPC hit points outside their bounds.
	ErrInvalidNpcHitPoints = errors.New("npc hit points must satisfy max >= 1 and current >= 0")
)

// CombatState tracks tactical-mode turn data while a fight is active. The
// zero value is the inactive default that every session starts with and
// that end-combat resets to.
type CombatState struct {
	Active            bool
	RoundNumber       int
	InitiativeOrder   []string
	InitiativeRolls   map[string]int
	OriginalTurnQueue []string
	NpcProfiles       map[string]NpcProfile
}

// Clone returns a deep copy of the combat record.
func (c CombatState) Clone() CombatState {
	out := c
	out.InitiativeOrder = cloneStrings(c.InitiativeOrder)
	out.OriginalTurnQueue = cloneStrings(c.OriginalTurnQueue)
	if c.InitiativeRolls != nil {
		out.InitiativeRolls = make(map[string]int, len(c.InitiativeRolls))
		for key, total := range c.InitiativeRolls {
			out.InitiativeRolls[key] = total
		}
	}
	if c.NpcProfiles != nil {
		out.NpcProfiles = make(map[string]NpcProfile, len(c.NpcProfiles))
		for key, profile := range c.NpcProfiles {
			out.NpcProfiles[key] = cloneNpcProfile(profile)
		}
	}
	return out
}

// NormalizeNpcKey derives a stable lowercase profile key, falling back to
// the display name when no key was supplied.
func NormalizeNpcKey(key, name string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		key = name
	}
	key = strings.ToLower(key)
	return strings.ReplaceAll(key, " ", "-")
}

// NpcProfile describes a director-controlled combatant: its tactical stats
// plus the free-text hints the director roleplays from.
type NpcProfile struct {
	Name          string
	InitiativeMod int
	HPMax         int
	HPCurrent     int
	ArmorClass    int
	Personality   string
	Tactics       string
	Secret        string
	Conditions    []string
}

// ValidateNpcProfile checks profile invariants.
func ValidateNpcProfile(profile NpcProfile) error {
	if strings.TrimSpace(profile.Name) == "" {
		return ErrEmptyNpcName
	}
	if profile.HPMax < 1 || profile.HPCurrent < 0 {
		return fmt.Errorf("%w: current %d, max %d", ErrInvalidNpcHitPoints, profile.HPCurrent, profile.HPMax)
	}
	return nil
}

// ApplyNpcPatch applies the hit point and condition fields of a sheet
// patch to an NPC profile. Equipment deltas do not apply to NPCs and are
// ignored. Hit points clamp into [0, HPMax] like PC sheets.
func ApplyNpcPatch(profile NpcProfile, patch SheetPatch) (NpcProfile, SheetChange) {
	result := cloneNpcProfile(profile)
	change := SheetChange{Name: profile.Name, HPBefore: profile.HPCurrent, HPAfter: profile.HPCurrent}

	if patch.HPSet != nil || patch.HPDelta != nil {
		hp := profile.HPCurrent
		if patch.HPSet != nil {
			hp = *patch.HPSet
		}
		if patch.HPDelta != nil {
			hp += *patch.HPDelta
		}
		result.HPCurrent = ClampHP(hp, profile.HPMax)
		change.HPChanged = result.HPCurrent != profile.HPCurrent
		change.HPAfter = result.HPCurrent
	}

	result.Conditions, change.AddedConditions, change.RemovedConditions =
		applyListDelta(result.Conditions, patch.AddConditions, patch.RemoveConditions)

	return result, change
}

func cloneNpcProfile(profile NpcProfile) NpcProfile {
	out := profile
	out.Conditions = cloneStrings(profile.Conditions)
	return out
}
