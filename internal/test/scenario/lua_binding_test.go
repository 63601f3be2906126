//go:build scenario

package scenario

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
)

const scriptTypeName = "table_script"

// Script is a table session described by a Lua file: a name plus the ordered
// steps the runner plays through the engine.
type Script struct {
	Name  string
	Steps []Step
}

// Step is one scripted step: an action to apply, a turn to hand out, or an
// expectation over the resulting state.
type Step struct {
	Kind string
	Args map[string]any
}

func (s *Script) append(kind string, args map[string]any) {
	if s == nil {
		return
	}
	if args == nil {
		args = map[string]any{}
	}
	s.Steps = append(s.Steps, Step{Kind: kind, Args: args})
}

func loadScript(path string) (*Script, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	registerTableDSL(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("run lua: %w", err)
	}

	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, fmt.Errorf("script must return the Table it built")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	script, ok := ud.(*Script)
	if !ok || script == nil {
		return nil, fmt.Errorf("script returned an invalid Table")
	}
	if strings.TrimSpace(script.Name) == "" {
		script.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return script, nil
}

func registerTableDSL(state *lua.State) {
	lua.NewMetaTable(state, scriptTypeName)
	state.NewTable()
	lua.SetFunctions(state, scriptMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)

	state.NewTable()
	lua.SetFunctions(state, tableConstructor, 0)
	state.SetGlobal("Table")
}

var tableConstructor = []lua.RegistryFunction{
	{Name: "new", Function: scriptNew},
}

func scriptNew(state *lua.State) int {
	name := lua.OptString(state, 1, "")
	script := &Script{Name: name}
	state.PushUserData(script)
	lua.SetMetaTableNamed(state, scriptTypeName)
	return 1
}

// Steps come in three shapes: a single named argument plus options, a pair
// of named arguments plus options, or options alone. Each method appends one
// step; the runner owns the semantics.
var scriptMethods = []lua.RegistryFunction{
	{Name: "pc", Function: stringStep("pc", "agent")},
	{Name: "tactical", Function: tableStep("tactical")},
	{Name: "roll", Function: stringStep("roll", "expr")},
	{Name: "update_sheet", Function: stringStep("update_sheet", "character")},
	{Name: "whisper", Function: pairStep("whisper", "to", "content")},
	{Name: "reveal", Function: pairStep("reveal", "agent", "secret")},
	{Name: "start_combat", Function: tableStep("start_combat")},
	{Name: "end_combat", Function: tableStep("end_combat")},
	{Name: "take_turn", Function: tableStep("take_turn")},
	{Name: "fork", Function: tableStep("fork")},
	{Name: "expect_combat", Function: tableStep("expect_combat")},
	{Name: "expect_secrets", Function: stringStep("expect_secrets", "agent")},
	{Name: "expect_log", Function: tableStep("expect_log")},
	{Name: "expect_lineage", Function: tableStep("expect_lineage")},
	{Name: "expect_events", Function: tableStep("expect_events")},
}

func tableStep(kind string) lua.Function {
	return func(state *lua.State) int {
		script := checkScript(state)
		script.append(kind, optionalTable(state, 2))
		return 0
	}
}

func stringStep(kind, key string) lua.Function {
	return func(state *lua.State) int {
		script := checkScript(state)
		value := lua.CheckString(state, 2)
		args := optionalTable(state, 3)
		args[key] = value
		script.append(kind, args)
		return 0
	}
}

func pairStep(kind, firstKey, secondKey string) lua.Function {
	return func(state *lua.State) int {
		script := checkScript(state)
		first := lua.CheckString(state, 2)
		second := lua.CheckString(state, 3)
		args := optionalTable(state, 4)
		args[firstKey] = first
		args[secondKey] = second
		script.append(kind, args)
		return 0
	}
}

func checkScript(state *lua.State) *Script {
	ud := lua.CheckUserData(state, 1, scriptTypeName)
	if script, ok := ud.(*Script); ok && script != nil {
		return script
	}
	lua.ArgumentError(state, 1, "table script expected")
	return nil
}

func optionalTable(state *lua.State, index int) map[string]any {
	if state.IsNoneOrNil(index) || state.TypeOf(index) != lua.TypeTable {
		return map[string]any{}
	}
	return decodeTable(state, index)
}

func decodeTable(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = decodeValue(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func decodeValue(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return foldNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return decodeNested(state, index)
	default:
		return nil
	}
}

// decodeNested returns a []any for sequence tables and a map[string]any for
// everything else. Sequences are detected by contiguous positive integer
// keys, which is what the engine's argument decoder expects for lists.
func decodeNested(state *lua.State, index int) any {
	index = state.AbsIndex(index)

	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, decodeValue(state, -1))
			state.Pop(1)
		}
		return result
	}

	return decodeTable(state, index)
}

func foldNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}
