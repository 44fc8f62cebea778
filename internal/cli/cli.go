package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Command string

const (
	CommandRun     Command = "run"
	CommandStatus  Command = "status"
	CommandSpeak   Command = "speak"
	CommandPick    Command = "pick"
	CommandClear   Command = "clear"
	CommandVoice   Command = "voice"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

// argRule bounds the positional arguments a command accepts. max < 0 means unbounded.
type argRule struct {
	min, max int
}

var validCommands = map[Command]argRule{
	CommandRun:     {},
	CommandStatus:  {},
	CommandSpeak:   {min: 0, max: -1},
	CommandPick:    {min: 1, max: 1},
	CommandClear:   {},
	CommandVoice:   {},
	CommandDevices: {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

type Parsed struct {
	Command    Command
	Args       []string
	ConfigPath string
	Headless   bool
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--headless":
			parsed.Headless = true
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			rule, ok := validCommands[cmd]
			if !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			rest := args[i+1:]
			if err := checkArgs(cmd, rule, rest); err != nil {
				return Parsed{}, err
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if len(rest) > 0 {
				parsed.Args = append([]string(nil), rest...)
			}
			return parsed, nil
		}
	}

	return parsed, nil
}

func checkArgs(cmd Command, rule argRule, rest []string) error {
	if rule.max == 0 && len(rest) > 0 {
		return fmt.Errorf("unexpected arguments after command %q", cmd)
	}
	if len(rest) < rule.min {
		return fmt.Errorf("command %q requires %d argument(s)", cmd, rule.min)
	}
	if rule.max > 0 && len(rest) > rule.max {
		return fmt.Errorf("unexpected arguments after command %q", cmd)
	}

	if cmd == CommandPick {
		n, err := strconv.Atoi(rest[0])
		if err != nil || n < 1 {
			return fmt.Errorf("pick requires a suggestion number >= 1, got %q", rest[0])
		}
	}
	return nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--headless] <command> [args]

Commands:
  run          Open the camera and start a signing session
  status       Print the active session transcript and suggestions
  speak [TEXT] Speak TEXT, or the current transcript
  pick N       Append the N-th suggestion to the transcript
  clear        Clear the transcript and suggestions
  voice        Send the voice-change announcement
  devices      List available video capture devices
  doctor       Run configuration and environment checks
  version      Print version information
  help         Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/signcast/config.jsonc)
  --headless      Render session state as plain lines instead of the terminal UI
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
