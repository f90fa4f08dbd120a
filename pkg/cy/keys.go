package cy

import (
	"fmt"
	"strings"

	"github.com/devicelab-dev/cyrunner/pkg/flow"
)

// specialKeys maps {token} sequences accepted by Type to key names.
var specialKeys = map[string]string{
	"enter":      "Enter",
	"esc":        "Escape",
	"backspace":  "Backspace",
	"del":        "Delete",
	"tab":        "Tab",
	"uparrow":    "ArrowUp",
	"downarrow":  "ArrowDown",
	"leftarrow":  "ArrowLeft",
	"rightarrow": "ArrowRight",
	"home":       "Home",
	"end":        "End",
	"pageup":     "PageUp",
	"pagedown":   "PageDown",
	"selectall":  "Control+A",
	"insert":     "Insert",
}

// typeActions splits text into fills of the literal characters and one
// keyboard press per {token}, in the order they appear. Literals after the
// first one append to the field.
func typeActions(text string) ([]flow.Action, error) {
	if text == "" {
		return nil, invalidArg("type", "empty text")
	}

	var actions []flow.Action
	var literal strings.Builder
	filled := false
	flush := func() {
		if literal.Len() > 0 {
			actions = append(actions, &flow.FillAction{Value: literal.String(), Append: filled})
			literal.Reset()
			filled = true
		}
	}

	for i := 0; i < len(text); {
		if text[i] != '{' {
			literal.WriteByte(text[i])
			i++
			continue
		}
		end := strings.IndexByte(text[i+1:], '}')
		if end < 0 {
			literal.WriteString(text[i:])
			break
		}
		token := text[i+1 : i+1+end]
		i += end + 2
		if token == "{" {
			literal.WriteByte('{')
			continue
		}
		key, ok := specialKeys[strings.ToLower(token)]
		if !ok {
			return nil, invalidArg("type", fmt.Sprintf("unknown key sequence {%s}", token))
		}
		flush()
		actions = append(actions, &flow.KeyboardAction{Key: key})
	}
	flush()
	return actions, nil
}
