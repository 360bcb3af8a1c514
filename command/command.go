// Package command implements the Command Parser (C10): the small grammar
// distinguishing chat-control verbs ("/new", "/config set key value", ...)
// from ordinary chat messages. Grounded on
// original_source/crates/forge_domain/src/command.rs's Command/ConfigCommand
// enums and their parse() methods.
package command

import (
	"fmt"
	"strings"
)

// Kind tags which variant of Command is populated.
type Kind int

const (
	// Message is plain chat text, the fallthrough for anything that
	// doesn't start with "/".
	Message Kind = iota
	// New starts a fresh conversation while preserving history.
	New
	// Reload replays the conversation from its original prompt.
	Reload
	// Info requests environment/runtime information.
	Info
	// Exit leaves the application without further action.
	Exit
	// End ends the current session.
	End
	// Models lists the models available from the configured Provider.
	Models
	// Config manages the small runtime configuration map (spec §4.10).
	Config
)

// ConfigKind tags which Config sub-operation was requested.
type ConfigKind int

const (
	// ConfigList lists every configuration key.
	ConfigList ConfigKind = iota
	// ConfigGet reads a single key.
	ConfigGet
	// ConfigSet writes a single key.
	ConfigSet
)

// ConfigCommand is the payload of a Config command.
type ConfigCommand struct {
	Kind  ConfigKind
	Key   string
	Value string
}

// Command is a parsed line of chat input: either a control verb or a plain
// Message. Text carries the Message payload; Config carries the
// ConfigCommand payload; all other Kinds carry no payload.
type Command struct {
	Kind   Kind
	Text   string
	Config ConfigCommand
}

// ParseError reports a malformed command, carrying the usage string shown to
// the user (mirroring the original's Error::CommandParse(String)).
type ParseError struct {
	Usage string
}

func (e *ParseError) Error() string { return e.Usage }

// AvailableCommands lists every recognized command string, for
// autocompletion and help surfaces (spec §4.10 addition: kept even though
// the autocomplete UI itself is out of scope).
func AvailableCommands() []string {
	return []string{
		"/end",
		"/new",
		"/reload",
		"/info",
		"/exit",
		"/config",
		"/config set",
		"/config get",
		"/models",
	}
}

// Parse interprets a single line of chat input. Anything not starting with
// "/" is a Message verbatim (leading/trailing whitespace trimmed).
func Parse(input string) (Command, error) {
	trimmed := strings.TrimSpace(input)

	if strings.HasPrefix(trimmed, "/config") {
		args := strings.Fields(trimmed)[1:]
		cfg, err := parseConfig(args)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: Config, Config: cfg}, nil
	}

	switch trimmed {
	case "/end":
		return Command{Kind: End}, nil
	case "/new":
		return Command{Kind: New}, nil
	case "/reload":
		return Command{Kind: Reload}, nil
	case "/info":
		return Command{Kind: Info}, nil
	case "/exit":
		return Command{Kind: Exit}, nil
	case "/models":
		return Command{Kind: Models}, nil
	default:
		return Command{Kind: Message, Text: trimmed}, nil
	}
}

func parseConfig(args []string) (ConfigCommand, error) {
	if len(args) == 0 {
		return ConfigCommand{Kind: ConfigList}, nil
	}

	switch args[0] {
	case "set":
		if len(args) < 3 {
			return ConfigCommand{}, &ParseError{Usage: "Usage: /config set <key> <value>"}
		}
		return ConfigCommand{Kind: ConfigSet, Key: args[1], Value: strings.Join(args[2:], " ")}, nil
	case "get":
		if len(args) != 2 {
			return ConfigCommand{}, &ParseError{Usage: "Usage: /config get <key>"}
		}
		return ConfigCommand{Kind: ConfigGet, Key: args[1]}, nil
	default:
		return ConfigCommand{}, &ParseError{Usage: fmt.Sprintf(
			"Invalid config subcommand: %s. Use 'set', 'get', or no subcommand to list all options", args[0])}
	}
}
