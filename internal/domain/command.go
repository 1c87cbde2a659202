package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CommandAction is the vocabulary of the external control channel.
type CommandAction string

const (
	CmdStart       CommandAction = "START"
	CmdStop        CommandAction = "STOP"
	CmdPause       CommandAction = "PAUSE"
	CmdBuy         CommandAction = "BUY"
	CmdSell        CommandAction = "SELL"
	CmdCloseAll    CommandAction = "CLOSE_ALL"
	CmdClose       CommandAction = "CLOSE"
	CmdShutdown    CommandAction = "SHUTDOWN"
	CmdSync        CommandAction = "SYNC"
	CmdHealthCheck CommandAction = "HEALTH_CHECK"
)

// Command is one external control message, consumed at most once.
type Command struct {
	Action CommandAction `json:"action"`
	Pair   string        `json:"pair,omitempty"`
	Score  float64       `json:"score,omitempty"`
	Time   time.Time     `json:"time"`
}

var validActions = map[CommandAction]bool{
	CmdStart: true, CmdStop: true, CmdPause: true,
	CmdBuy: true, CmdSell: true,
	CmdCloseAll: true, CmdClose: true,
	CmdShutdown: true, CmdSync: true, CmdHealthCheck: true,
}

// Validate checks the action vocabulary and the CLOSE symbol requirement.
func (c *Command) Validate() error {
	c.Action = CommandAction(strings.ToUpper(string(c.Action)))
	c.Pair = strings.ToUpper(c.Pair)
	if !validActions[c.Action] {
		return fmt.Errorf("unknown action %q", c.Action)
	}
	if c.Action == CmdClose && c.Pair == "" {
		return fmt.Errorf("CLOSE requires a symbol")
	}
	return nil
}

// ParseCommand parses the wire form of a command: either a KEY=VALUE block
//
//	ACTION=BUY
//	PAIR=BTCUSDT
//	SCORE=0.75
//
// or the legacy single-token form ("START", "CLOSE BTCUSDT").
func ParseCommand(raw string) (*Command, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty command")
	}

	cmd := &Command{Time: time.Now()}

	if strings.Contains(raw, "=") {
		for _, line := range strings.Split(raw, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			key, value, found := strings.Cut(line, "=")
			if !found {
				return nil, fmt.Errorf("malformed line %q", line)
			}
			value = strings.TrimSpace(value)
			switch strings.ToUpper(strings.TrimSpace(key)) {
			case "ACTION":
				cmd.Action = CommandAction(strings.ToUpper(value))
			case "PAIR":
				cmd.Pair = strings.ToUpper(value)
			case "SCORE":
				score, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return nil, fmt.Errorf("invalid score %q: %w", value, err)
				}
				cmd.Score = score
			case "TIMESTAMP":
				ts, err := strconv.ParseInt(value, 10, 64)
				if err == nil {
					cmd.Time = time.Unix(ts, 0)
				}
			}
		}
	} else {
		// Legacy form: single token, optionally followed by a symbol.
		parts := strings.Fields(strings.ToUpper(raw))
		cmd.Action = CommandAction(parts[0])
		if len(parts) > 1 {
			cmd.Pair = parts[1]
		}
	}

	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return cmd, nil
}
