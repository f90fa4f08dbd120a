package flow

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/devicelab-dev/cyrunner/pkg/core"
)

// MarshalAction encodes an action as a JSON object with a "type" field
// followed by its payload.
func MarshalAction(a Action) ([]byte, error) {
	if s, ok := a.(*SubjectAction); ok {
		if _, deferred := s.Value.(Deferred); deferred {
			return nil, fmt.Errorf("%s: deferred values cannot be encoded", a.Type())
		}
	}
	body, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Type(), err)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `{"type":%q`, a.Type())
	if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalAction decodes an object produced by MarshalAction.
func UnmarshalAction(data []byte) (Action, error) {
	var head struct {
		Type ActionType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	a, err := New(head.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, a); err != nil {
		return nil, fmt.Errorf("%s: %w", head.Type, err)
	}
	return a, nil
}

// Encode encodes a list of actions as a JSON array.
func Encode(actions []Action) ([]byte, error) {
	items := make([]json.RawMessage, len(actions))
	for i, a := range actions {
		data, err := MarshalAction(a)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		items[i] = data
	}
	return json.Marshal(items)
}

// Decode decodes a JSON array produced by Encode.
func Decode(data []byte) ([]Action, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	actions := make([]Action, len(items))
	for i, item := range items {
		a, err := UnmarshalAction(item)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		actions[i] = a
	}
	return actions, nil
}

// New returns an empty action of type t.
func New(t ActionType) (Action, error) {
	switch t {
	case ActionLocator:
		return &LocatorAction{}, nil
	case ActionAlias:
		return &AliasAction{}, nil
	case ActionSubject:
		return &SubjectAction{}, nil
	case ActionHandle:
		return &HandleAction{}, nil
	case ActionTitle:
		return &TitleAction{}, nil
	case ActionLocation:
		return &LocationAction{}, nil
	case ActionIts:
		return &ItsAction{}, nil
	case ActionNavigate:
		return &NavigateAction{}, nil
	case ActionFill:
		return &FillAction{}, nil
	case ActionClear:
		return &ClearAction{}, nil
	case ActionCheck:
		return &CheckAction{}, nil
	case ActionClick:
		return &ClickAction{}, nil
	case ActionKeyboard:
		return &KeyboardAction{}, nil
	case ActionSelect:
		return &SelectAction{}, nil
	case ActionScrollIntoView:
		return &ScrollIntoViewAction{}, nil
	case ActionScrollTo:
		return &ScrollToAction{}, nil
	case ActionDispatchEvent:
		return &DispatchEventAction{}, nil
	case ActionBlur:
		return &BlurAction{}, nil
	case ActionFocus:
		return &FocusAction{}, nil
	case ActionCookieClear:
		return &CookieClearAction{}, nil
	case ActionCookieGet:
		return &CookieGetAction{}, nil
	case ActionCookieSet:
		return &CookieSetAction{}, nil
	case ActionPause:
		return &PauseAction{}, nil
	case ActionWait:
		return &WaitAction{}, nil
	case ActionAssertion:
		return &AssertionAction{}, nil
	default:
		return nil, core.UnknownCommand(string(t))
	}
}
