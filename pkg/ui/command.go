package ui

import (
	"eepromkv/pkg/eeprom"
	"eepromkv/pkg/primitives"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Command is one parsed console line.
type Command struct {
	Verb  string
	ID    primitives.VariableID
	Value uint32
}

// Result is what a command prints: an optional table plus a message.
type Result struct {
	Columns []string
	Rows    [][]string
	Message string
}

// ParseID accepts a number in any strconv base prefix or the name of a
// default variable.
func ParseID(s string) (primitives.VariableID, error) {
	switch strings.ToLower(s) {
	case "param1":
		return eeprom.Param1, nil
	case "param2":
		return eeprom.Param2, nil
	}
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return primitives.VariableID(v), nil
}

// ParseValue parses a 32-bit value in decimal or with a base prefix.
func ParseValue(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %w", s, err)
	}
	return uint32(v), nil
}

// ParseCommand parses "read <id>", "write <id> <value>", "values",
// "stats", "pages" or "format".
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}

	cmd := Command{Verb: strings.ToLower(fields[0])}
	args := fields[1:]

	switch cmd.Verb {
	case "read":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("usage: read <id>")
		}
		id, err := ParseID(args[0])
		if err != nil {
			return Command{}, err
		}
		cmd.ID = id

	case "write":
		if len(args) != 2 {
			return Command{}, fmt.Errorf("usage: write <id> <value>")
		}
		id, err := ParseID(args[0])
		if err != nil {
			return Command{}, err
		}
		value, err := ParseValue(args[1])
		if err != nil {
			return Command{}, err
		}
		cmd.ID, cmd.Value = id, value

	case "values", "stats", "pages", "format":
		if len(args) != 0 {
			return Command{}, fmt.Errorf("usage: %s", cmd.Verb)
		}

	default:
		return Command{}, fmt.Errorf("unknown command %q", cmd.Verb)
	}
	return cmd, nil
}

// Execute runs cmd against an initialised store.
func Execute(store *eeprom.Store, cmd Command) (Result, error) {
	switch cmd.Verb {
	case "read":
		v, err := store.Read(cmd.ID)
		if err != nil {
			return Result{}, err
		}
		return Result{
			Columns: []string{"id", "value", "hex"},
			Rows:    [][]string{{cmd.ID.String(), strconv.FormatUint(uint64(v), 10), fmt.Sprintf("0x%08X", v)}},
		}, nil

	case "write":
		if err := store.Write(cmd.ID, cmd.Value); err != nil {
			return Result{}, err
		}
		return Result{Message: fmt.Sprintf("%s ← %d", cmd.ID, cmd.Value)}, nil

	case "format":
		if err := store.Format(); err != nil {
			return Result{}, err
		}
		return Result{Message: "both pages erased, page0 ACTIVE"}, nil

	case "values":
		values, err := store.Values()
		if err != nil {
			return Result{}, err
		}
		return valuesResult(store.Schema(), values), nil

	case "stats":
		st := store.Stats()
		return Result{
			Columns: []string{"metric", "value"},
			Rows: [][]string{
				{"appends", strconv.FormatUint(st.Appends, 10)},
				{"transfers", strconv.FormatUint(st.Transfers, 10)},
				{"formats", strconv.FormatUint(st.Formats, 10)},
				{"replays", strconv.FormatUint(st.Replays, 10)},
				{"last recovery", st.LastRecovery},
			},
		}, nil

	case "pages":
		pages, err := store.Snapshot()
		if err != nil {
			return Result{}, err
		}
		rows := make([][]string, 0, len(pages))
		for _, p := range pages {
			rows = append(rows, []string{
				p.Index.String(),
				p.Base.String(),
				p.State.String(),
				fmt.Sprintf("%d/%d", len(p.Records), p.Capacity),
			})
		}
		return Result{Columns: []string{"page", "base", "state", "records"}, Rows: rows}, nil

	default:
		return Result{}, fmt.Errorf("unknown command %q", cmd.Verb)
	}
}

func valuesResult(schema eeprom.Schema, values map[primitives.VariableID]uint32) Result {
	ids := schema.IDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		v, ok := values[id]
		if !ok {
			rows = append(rows, []string{id.String(), "-", "never written"})
			continue
		}
		rows = append(rows, []string{id.String(), strconv.FormatUint(uint64(v), 10), fmt.Sprintf("0x%08X", v)})
	}
	return Result{Columns: []string{"id", "value", "hex"}, Rows: rows}
}
