package projection

import (
	"fmt"
	"strings"

	"github.com/wrenfold/roundtable/internal/game"
)

// recentLogLimit bounds how many log entries a prompt replays. Older
// entries are summarized by an elision line.
const recentLogLimit = 40

// SystemPrompt renders the standing instructions for this actor's role.
func (c ActorContext) SystemPrompt() string {
	if c.Role == RoleDirector {
		if c.NpcFocus != nil {
			return fmt.Sprintf(directorNpcSystemPrompt, c.SessionName, c.NpcFocus.Name)
		}
		return fmt.Sprintf(directorSystemPrompt, c.SessionName)
	}
	name := c.ActorID
	if len(c.Sheets) > 0 {
		name = c.Sheets[0].Name
	}
	return fmt.Sprintf(playerSystemPrompt, name, c.SessionName)
}

// UserPrompt renders the actor's view of the table for this turn.
func (c ActorContext) UserPrompt() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "TURN %d\n\n", c.TurnNumber)

	if c.Combat.Active {
		fmt.Fprintf(&sb, "COMBAT ROUND %d\n", c.Combat.RoundNumber)
		sb.WriteString("Initiative order: ")
		sb.WriteString(formatInitiative(c.Combat))
		sb.WriteString("\n\n")
	}

	if c.NpcFocus != nil {
		sb.WriteString("ACTING AS NPC:\n")
		writeNpcFocus(&sb, *c.NpcFocus)
		sb.WriteString("\n")
	}

	if len(c.Sheets) > 0 {
		if c.Role == RoleDirector {
			sb.WriteString("PARTY SHEETS:\n")
		} else {
			sb.WriteString("YOUR SHEET:\n")
		}
		for _, sheet := range c.Sheets {
			writeSheet(&sb, sheet)
		}
		sb.WriteString("\n")
	}

	if len(c.Secrets) > 0 {
		if c.Role == RoleDirector {
			sb.WriteString("ACTIVE SECRETS (unrevealed, per agent):\n")
		} else {
			sb.WriteString("SECRETS ONLY YOU KNOW:\n")
		}
		for _, group := range c.Secrets {
			for _, w := range group.Whispers {
				fmt.Fprintf(&sb, "- [%s] to %s (turn %d): %s\n", w.ID, group.Agent, w.TurnCreated, w.Content)
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString("STORY SO FAR:\n")
	if len(c.Log) == 0 {
		sb.WriteString("(nothing has happened yet)\n")
	} else {
		start := 0
		if len(c.Log) > recentLogLimit {
			start = len(c.Log) - recentLogLimit
			fmt.Fprintf(&sb, "(%d earlier entries omitted)\n", start)
		}
		for _, entry := range c.Log[start:] {
			writeLogEntry(&sb, entry)
		}
	}

	sb.WriteString("\nIt is your turn.")
	return sb.String()
}

func formatInitiative(view CombatView) string {
	parts := make([]string, 0, len(view.InitiativeOrder))
	for _, key := range view.InitiativeOrder {
		if total, ok := view.InitiativeRolls[key]; ok {
			parts = append(parts, fmt.Sprintf("%s (%d)", key, total))
			continue
		}
		parts = append(parts, key)
	}
	return strings.Join(parts, ", ")
}

func writeSheet(sb *strings.Builder, sheet game.CharacterSheet) {
	fmt.Fprintf(sb, "%s, level %d %s. HP %d/%d, AC %d, initiative %+d.\n",
		sheet.Name, sheet.Level, sheet.Class,
		sheet.HPCurrent, sheet.HPMax, sheet.ArmorClass, sheet.InitiativeMod)
	fmt.Fprintf(sb, "  STR %d DEX %d CON %d INT %d WIS %d CHA %d\n",
		sheet.Abilities.Strength, sheet.Abilities.Dexterity, sheet.Abilities.Constitution,
		sheet.Abilities.Intelligence, sheet.Abilities.Wisdom, sheet.Abilities.Charisma)
	if len(sheet.Equipment) > 0 {
		fmt.Fprintf(sb, "  Equipment: %s\n", strings.Join(sheet.Equipment, ", "))
	}
	if len(sheet.Conditions) > 0 {
		fmt.Fprintf(sb, "  Conditions: %s\n", strings.Join(sheet.Conditions, ", "))
	}
	if sheet.Spellcasting != nil {
		fmt.Fprintf(sb, "  Spells (%s): %s\n", sheet.Spellcasting.Ability, strings.Join(sheet.Spellcasting.Known, ", "))
	}
}

func writeNpcFocus(sb *strings.Builder, profile game.NpcProfile) {
	fmt.Fprintf(sb, "%s. HP %d/%d, AC %d, initiative %+d.\n",
		profile.Name, profile.HPCurrent, profile.HPMax, profile.ArmorClass, profile.InitiativeMod)
	if profile.Personality != "" {
		fmt.Fprintf(sb, "  Personality: %s\n", profile.Personality)
	}
	if profile.Tactics != "" {
		fmt.Fprintf(sb, "  Tactics: %s\n", profile.Tactics)
	}
	if profile.Secret != "" {
		fmt.Fprintf(sb, "  Secret: %s\n", profile.Secret)
	}
	if len(profile.Conditions) > 0 {
		fmt.Fprintf(sb, "  Conditions: %s\n", strings.Join(profile.Conditions, ", "))
	}
}

func writeLogEntry(sb *strings.Builder, entry game.LogEntry) {
	switch entry.Kind {
	case game.EntryDice:
		fmt.Fprintf(sb, "[turn %d] %s rolled %s\n", entry.Turn, entry.Speaker, entry.Content)
	case game.EntrySheetChange:
		fmt.Fprintf(sb, "[turn %d] [SHEET] %s\n", entry.Turn, entry.Content)
	case game.EntrySecretReveal:
		fmt.Fprintf(sb, "[turn %d] [REVEALED] %s\n", entry.Turn, entry.Content)
	default:
		fmt.Fprintf(sb, "[turn %d] %s: %s\n", entry.Turn, entry.Speaker, entry.Content)
	}
}

const directorSystemPrompt = `You are the director of "%s", a collaborative tabletop story. You control the world, every non-player character, and the flow of scenes.

Each turn, narrate what happens next in second person plural toward the party, then stop. Keep narration to a few paragraphs. Use your tools to roll dice, adjust sheets, send private whispers, reveal secrets, and manage combat. Say out loud only what the whole table may hear; anything meant for one player goes through a whisper.`

const directorNpcSystemPrompt = `You are the director of "%s", currently acting as the NPC %s on its combat turn. Play the NPC according to its personality and tactics, narrate its action toward the table, and use your tools for any rolls or sheet changes. Do not reveal the NPC's secret unless the fiction demands it.`

const playerSystemPrompt = `You are %s, a player character in "%s", a collaborative tabletop story. Stay in character.

Each turn, describe what %[1]s says and does, in first person, reacting to the story so far. A few sentences is enough. You may request dice rolls with your tools when the outcome is uncertain. You only know what your character knows.`
