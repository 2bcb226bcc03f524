package main

import (
	"eepromkv/pkg/device"
	"eepromkv/pkg/eeprom"
	"eepromkv/pkg/logging"
	"eepromkv/pkg/primitives"
	"eepromkv/pkg/ui"
	"errors"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type Configuration struct {
	ImagePath string
	LogLevel  string
	LogFormat string
	LogFile   string
	Command   string
	Args      []string
}

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8"))
)

const usage = `usage: eepromkv [flags] <command> [args]

commands:
  init                  run recovery and report the action taken
  read <id>             print the value of a variable
  write <id> <value>    store a value
  format                erase both pages
  dump                  show markers and records of both pages
  demo                  write a burst of values to force page transfers
  console               open the interactive console

ids and values accept decimal or 0x-prefixed hex; param1 and param2 name
the default variables.
`

func main() {
	config := parseArguments()

	if err := logging.Init(logging.Config{
		Level:      logging.ParseLevel(config.LogLevel),
		Format:     config.LogFormat,
		OutputPath: config.LogFile,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Close()

	if err := run(config); err != nil {
		logging.WithError(err).Debug("command failed", "command", config.Command)
		fmt.Fprintln(os.Stderr, warnStyle.Render("✗ "+err.Error()))
		logging.Close()
		os.Exit(1)
	}
}

// parseArguments processes command-line flags
func parseArguments() Configuration {
	var config Configuration

	flag.StringVar(&config.ImagePath, "image", "./data/eeprom.img", "Flash image file")
	flag.StringVar(&config.LogLevel, "log-level", "WARN", "Log level (DEBUG, INFO, WARN, ERROR)")
	flag.StringVar(&config.LogFormat, "log-format", "text", "Log format (text or json)")
	flag.StringVar(&config.LogFile, "log-file", "", "Log file (default stderr)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage+"\nflags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	config.Command = flag.Arg(0)
	config.Args = flag.Args()[1:]

	return config
}

func run(config Configuration) error {
	store, dev, err := openStore(primitives.Filepath(config.ImagePath))
	if err != nil {
		return err
	}
	defer dev.Close()

	switch config.Command {
	case "format":
		if err := store.Format(); err != nil {
			return err
		}
		fmt.Println(okStyle.Render("✓ formatted"), mutedStyle.Render(config.ImagePath))
		return nil
	case "dump":
		// A dump must show the image as found, before recovery rewrites it.
		return dump(store, dev)
	}

	if err := store.Init(); err != nil {
		return fmt.Errorf("recovery failed: %w", err)
	}

	switch config.Command {
	case "init":
		fmt.Println(okStyle.Render("✓ ready"), mutedStyle.Render("recovery: "+store.Stats().LastRecovery))
		return nil

	case "read":
		if len(config.Args) != 1 {
			return errors.New("read expects <id>")
		}
		id, err := ui.ParseID(config.Args[0])
		if err != nil {
			return err
		}
		value, err := store.Read(id)
		if err != nil {
			return err
		}
		fmt.Printf("%s = %d (0x%08X)\n", accentStyle.Render(id.String()), value, value)
		return nil

	case "write":
		if len(config.Args) != 2 {
			return errors.New("write expects <id> <value>")
		}
		id, err := ui.ParseID(config.Args[0])
		if err != nil {
			return err
		}
		value, err := ui.ParseValue(config.Args[1])
		if err != nil {
			return err
		}
		if err := store.Write(id, value); err != nil {
			logging.WithVariable(id).Error("write failed", "value", value)
			return err
		}
		fmt.Println(okStyle.Render("✓"), fmt.Sprintf("%s ← %d", id, value))
		return nil

	case "demo":
		return runDemoMode(store, dev)

	case "console":
		return startInteractiveMode(store, config.ImagePath)

	default:
		return fmt.Errorf("unknown command %q", config.Command)
	}
}

// openStore opens the image file, creating an erased one on first use.
func openStore(image primitives.Filepath) (*eeprom.Store, *device.FileFlash, error) {
	if err := image.MkdirAll(0o750); err != nil {
		return nil, nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	cfg := eeprom.DefaultConfig()
	region, err := cfg.Geometry.Region()
	if err != nil {
		return nil, nil, err
	}

	dev, err := device.OpenFileFlash(image, region)
	if err != nil {
		return nil, nil, err
	}

	store, err := eeprom.New(dev, cfg)
	if err != nil {
		dev.Close()
		return nil, nil, err
	}
	return store, dev, nil
}

func dump(store *eeprom.Store, dev *device.FileFlash) error {
	pages, err := store.Snapshot()
	if err != nil {
		return err
	}

	fmt.Println(accentStyle.Render("image " + dev.Path().String()))
	for _, p := range pages {
		fmt.Printf("\n%s at %s  marker 0x%08X  %s  %d/%d records\n",
			accentStyle.Render(p.Index.String()), p.Base, uint32(p.Marker),
			stateLabel(p.State), len(p.Records), p.Capacity)

		if p.State == eeprom.StateUnknown {
			logging.WithPage(p.Index).Warn("unrecognised marker", "marker", fmt.Sprintf("0x%08X", uint32(p.Marker)))
		}
		for i, r := range p.Records {
			fmt.Printf("  %3d  %s  %s = %d\n", i, mutedStyle.Render(r.Address.String()), r.ID, r.Value)
		}
	}
	return nil
}

func stateLabel(s eeprom.PageState) string {
	switch s {
	case eeprom.StateActive:
		return okStyle.Render(s.String())
	case eeprom.StateReceiving, eeprom.StateUnknown:
		return warnStyle.Render(s.String())
	default:
		return mutedStyle.Render(s.String())
	}
}

// runDemoMode writes enough values to roll the active page over several
// times, then reads them back.
func runDemoMode(store *eeprom.Store, dev *device.FileFlash) error {
	fmt.Println(accentStyle.Render("🎮 Running demo mode"))

	ids := store.Schema().IDs()
	writes := store.Geometry().Capacity() * 3
	before := store.Stats().Transfers

	for i := 0; i < writes; i++ {
		id := ids[i%len(ids)]
		if err := store.Write(id, uint32(i)); err != nil {
			return fmt.Errorf("demo write %d failed: %w", i, err)
		}
		if (i+1)%32 == 0 || i == writes-1 {
			fmt.Printf("\r📊 Progress: %.0f%% ", float64(i+1)/float64(writes)*100)
		}
	}
	fmt.Println()

	values, err := store.Values()
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Printf("  %s = %d\n", id, values[id])
	}

	erases := dev.EraseCounts()
	fmt.Println(okStyle.Render(fmt.Sprintf("✓ %d writes, %d transfers, erases per page %v",
		writes, store.Stats().Transfers-before, erases)))
	return nil
}

// startInteractiveMode launches the Bubble Tea console
func startInteractiveMode(store *eeprom.Store, name string) error {
	p := tea.NewProgram(
		ui.NewModel(store, name),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %v", err)
	}
	return nil
}
