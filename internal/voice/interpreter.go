// Package voice maps recognized speech to celebration effects.
package voice

import (
	"strings"

	model "github.com/okian/overlay/internal/domain/model"
)

// Command binds keywords to an effect. Any keyword appearing in a phrase
// selects the command.
type Command struct {
	Keywords []string
	Effect   string
}

// DefaultCommands is the phrase table. Order matters: the first command with a
// matching keyword wins.
var DefaultCommands = []Command{
	{Keywords: []string{"ナイス"}, Effect: model.EffectStar},
	{Keywords: []string{"ありがとう"}, Effect: model.EffectLove},
	{Keywords: []string{"よっしゃ"}, Effect: model.EffectSparkle},
	{Keywords: []string{"やべぇ", "やばい"}, Effect: model.EffectBubble},
}

// Interpreter resolves phrases against an ordered command table.
type Interpreter struct {
	commands []Command
}

// NewInterpreter uses DefaultCommands when commands is empty.
func NewInterpreter(commands ...Command) *Interpreter {
	if len(commands) == 0 {
		commands = DefaultCommands
	}
	return &Interpreter{commands: commands}
}

// Match returns the effect for phrase, if any.
func (in *Interpreter) Match(phrase string) (string, bool) {
	for _, c := range in.commands {
		for _, kw := range c.Keywords {
			if kw != "" && strings.Contains(phrase, kw) {
				return c.Effect, true
			}
		}
	}
	return "", false
}
