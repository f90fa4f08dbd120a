package cy

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/devicelab-dev/cyrunner/pkg/core"
	"github.com/devicelab-dev/cyrunner/pkg/flow"
)

// command is one entry of the dynamic command table used by the YAML and
// JavaScript loaders.
type command struct {
	root bool // callable directly off the entry
	run  func(c *Chain, root bool, args []interface{}) (*Chain, error)
}

var commands = map[string]command{
	// root commands
	"visit": {true, func(c *Chain, _ bool, args []interface{}) (*Chain, error) {
		if len(args) > 0 {
			if m, ok := args[0].(map[string]interface{}); ok {
				args = []interface{}{m["url"]}
			}
		}
		url, err := stringArg("visit", args, 0)
		if err != nil {
			return c, err
		}
		return c.Visit(url), nil
	}},
	"get": {true, func(c *Chain, root bool, args []interface{}) (*Chain, error) {
		sel, err := stringArg("get", args, 0)
		if err != nil {
			return c, err
		}
		return c.locate(root, flow.Query(sel)), nil
	}},
	"contains": {true, func(c *Chain, root bool, args []interface{}) (*Chain, error) {
		opts, rest := ContainsOptions{}, args
		if n := len(rest); n > 0 {
			if m, ok := rest[n-1].(map[string]interface{}); ok {
				opts.Exact, _ = m["exact"].(bool)
				rest = rest[:n-1]
			}
		}
		switch len(rest) {
		case 1:
			text, err := textArg("contains", rest, 0)
			if err != nil {
				return c, err
			}
			return c.contains(root, text, []ContainsOptions{opts}), nil
		case 2:
			sel, err := stringArg("contains", rest, 0)
			if err != nil {
				return c, err
			}
			text, err := textArg("contains", rest, 1)
			if err != nil {
				return c, err
			}
			opts.Selector = sel
			return c.contains(root, text, []ContainsOptions{opts}), nil
		default:
			return c, invalidArg("contains", "expected content or selector and content")
		}
	}},
	"wrap": {true, func(c *Chain, _ bool, args []interface{}) (*Chain, error) {
		if len(args) == 0 {
			return c.Wrap(nil), nil
		}
		return c.Wrap(args[0]), nil
	}},
	"title":    {true, noArgs((*Chain).Title)},
	"url":      {true, noArgs((*Chain).URL)},
	"hash":     {true, noArgs((*Chain).Hash)},
	"window":   {true, noArgs((*Chain).Window)},
	"document": {true, noArgs((*Chain).Document)},
	"pause":    {true, noArgs((*Chain).Pause)},
	"location": {true, func(c *Chain, _ bool, args []interface{}) (*Chain, error) {
		if len(args) == 0 {
			return c.Location(), nil
		}
		key, err := stringArg("location", args, 0)
		if err != nil {
			return c, err
		}
		return c.Location(key), nil
	}},
	"wait": {true, func(c *Chain, _ bool, args []interface{}) (*Chain, error) {
		ms, err := intArg("wait", args, 0)
		if err != nil {
			return c, err
		}
		return c.Wait(ms), nil
	}},
	"clearCookies": {true, noArgs((*Chain).ClearCookies)},
	"clearCookie": {true, func(c *Chain, _ bool, args []interface{}) (*Chain, error) {
		name, err := stringArg("clearCookie", args, 0)
		if err != nil {
			return c, err
		}
		return c.ClearCookie(name), nil
	}},
	"getCookie": {true, func(c *Chain, _ bool, args []interface{}) (*Chain, error) {
		name, err := stringArg("getCookie", args, 0)
		if err != nil {
			return c, err
		}
		return c.GetCookie(name), nil
	}},
	"getCookies": {true, noArgs((*Chain).GetCookies)},
	"setCookie": {true, func(c *Chain, _ bool, args []interface{}) (*Chain, error) {
		name, err := stringArg("setCookie", args, 0)
		if err != nil {
			return c, err
		}
		value, err := textArg("setCookie", args, 1)
		if err != nil {
			return c, err
		}
		var opts CookieOptions
		if len(args) > 2 {
			if m, ok := args[2].(map[string]interface{}); ok {
				opts.Domain, _ = m["domain"].(string)
				opts.Path, _ = m["path"].(string)
				opts.HTTPOnly, _ = m["httpOnly"].(bool)
				opts.Secure, _ = m["secure"].(bool)
				opts.SameSite, _ = m["sameSite"].(string)
				if n, ok := toFloat(m["expiry"]); ok {
					opts.Expiry = n
				}
			}
		}
		return c.SetCookie(name, value, opts), nil
	}},
	"scrollTo": {true, func(c *Chain, _ bool, args []interface{}) (*Chain, error) {
		c = c.ScrollTo(args...)
		return c, c.Err()
	}},

	// structural commands
	"find": {false, func(c *Chain, _ bool, args []interface{}) (*Chain, error) {
		sel, err := stringArg("find", args, 0)
		if err != nil {
			return c, err
		}
		return c.Find(sel), nil
	}},
	"first": {false, noArgs((*Chain).First)},
	"last":  {false, noArgs((*Chain).Last)},
	"eq": {false, func(c *Chain, _ bool, args []interface{}) (*Chain, error) {
		n, err := intArg("eq", args, 0)
		if err != nil {
			return c, err
		}
		return c.Eq(n), nil
	}},
	"its": {false, func(c *Chain, _ bool, args []interface{}) (*Chain, error) {
		path, err := textArg("its", args, 0)
		if err != nil {
			return c, err
		}
		c = c.Its(path)
		return c, c.Err()
	}},
	"parent":   {false, optionalSelector((*Chain).Parent)},
	"parents":  {false, optionalSelector((*Chain).Parents)},
	"children": {false, optionalSelector((*Chain).Children)},
	"next":     {false, optionalSelector((*Chain).Next)},
	"prev":     {false, optionalSelector((*Chain).Prev)},
	"siblings": {false, optionalSelector((*Chain).Siblings)},
	"filter": {false, func(c *Chain, _ bool, args []interface{}) (*Chain, error) {
		sel, err := stringArg("filter", args, 0)
		if err != nil {
			return c, err
		}
		return c.Filter(sel), nil
	}},
	"not": {false, func(c *Chain, _ bool, args []interface{}) (*Chain, error) {
		sel, err := stringArg("not", args, 0)
		if err != nil {
			return c, err
		}
		return c.Not(sel), nil
	}},

	// leaf commands
	"type": {false, func(c *Chain, _ bool, args []interface{}) (*Chain, error) {
		text, err := textArg("type", args, 0)
		if err != nil {
			return c, err
		}
		c = c.Type(text)
		return c, c.Err()
	}},
	"clear":          {false, noArgs((*Chain).Clear)},
	"check":          {false, noArgs((*Chain).Check)},
	"uncheck":        {false, noArgs((*Chain).Uncheck)},
	"focus":          {false, noArgs((*Chain).Focus)},
	"blur":           {false, noArgs((*Chain).Blur)},
	"scrollIntoView": {false, noArgs((*Chain).ScrollIntoView)},
	"click":          {false, clickCommand(singleClick)},
	"dblclick":       {false, clickCommand(doubleClick)},
	"rightclick":     {false, clickCommand(rightClick)},
	"trigger": {false, func(c *Chain, _ bool, args []interface{}) (*Chain, error) {
		event, err := stringArg("trigger", args, 0)
		if err != nil {
			return c, err
		}
		c = c.Trigger(event)
		return c, c.Err()
	}},
	"select": {false, func(c *Chain, _ bool, args []interface{}) (*Chain, error) {
		var values []string
		for _, arg := range flatten(args) {
			if _, ok := arg.(map[string]interface{}); ok {
				continue
			}
			values = append(values, fmt.Sprint(arg))
		}
		c = c.Select(values...)
		return c, c.Err()
	}},
	"as": {false, func(c *Chain, _ bool, args []interface{}) (*Chain, error) {
		name, err := stringArg("as", args, 0)
		if err != nil {
			return c, err
		}
		c = c.As(name)
		return c, c.Err()
	}},
	"should": {false, shouldCommand},
	"and":    {false, shouldCommand},
}

// Commands returns the names accepted by Invoke, sorted.
func Commands() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRootCommand reports whether name may be called directly off an Entry.
func IsRootCommand(name string) bool {
	return commands[name].root
}

// Invoke runs a command by name off the entry. Commands that need a
// subject fail with an illegal chain usage error.
func (e *Entry) Invoke(name string, args ...interface{}) (*Chain, error) {
	cmd, ok := commands[name]
	if !ok {
		err := core.UnknownCommand(name)
		e.q.Fail(err)
		return nil, err
	}
	if !cmd.root {
		err := core.ErrIllegalChain.
			WithMessagef("%s cannot be chained off cy", name).
			WithDetails(map[string]interface{}{"command": name})
		e.q.Fail(err)
		return nil, err
	}
	return run(e.chain(), cmd, true, name, args)
}

// Invoke runs a command by name on the chain.
func (c *Chain) Invoke(name string, args ...interface{}) (*Chain, error) {
	cmd, ok := commands[name]
	if !ok {
		err := core.UnknownCommand(name)
		c.q.Fail(err)
		return c, err
	}
	return run(c, cmd, false, name, args)
}

func run(c *Chain, cmd command, root bool, name string, args []interface{}) (*Chain, error) {
	next, err := cmd.run(c, root, args)
	if next == nil {
		next = c
	}
	if err != nil {
		c.q.Fail(err)
		return next, err
	}
	return next, c.q.Err()
}

func noArgs(fn func(*Chain) *Chain) func(*Chain, bool, []interface{}) (*Chain, error) {
	return func(c *Chain, _ bool, _ []interface{}) (*Chain, error) {
		return fn(c), nil
	}
}

func optionalSelector(fn func(*Chain, ...string) *Chain) func(*Chain, bool, []interface{}) (*Chain, error) {
	return func(c *Chain, _ bool, args []interface{}) (*Chain, error) {
		if len(args) == 0 {
			return fn(c), nil
		}
		sel, err := stringArg("traversal", args, 0)
		if err != nil {
			return c, err
		}
		return fn(c, sel), nil
	}
}

func clickCommand(kind clickKind) func(*Chain, bool, []interface{}) (*Chain, error) {
	return func(c *Chain, _ bool, args []interface{}) (*Chain, error) {
		c = c.click(kind, args)
		return c, c.Err()
	}
}

func shouldCommand(c *Chain, _ bool, args []interface{}) (*Chain, error) {
	phrase, err := stringArg("should", args, 0)
	if err != nil {
		return c, err
	}
	c = c.Should(phrase, args[1:]...)
	return c, c.Err()
}

func stringArg(command string, args []interface{}, i int) (string, error) {
	if i >= len(args) {
		return "", invalidArg(command, fmt.Sprintf("missing argument %d", i+1))
	}
	s, ok := args[i].(string)
	if !ok {
		return "", invalidArg(command, fmt.Sprintf("argument %d must be a string, got %v", i+1, args[i]))
	}
	return s, nil
}

// textArg accepts strings and numbers, the way content arguments are
// written in test files.
func textArg(command string, args []interface{}, i int) (string, error) {
	if i >= len(args) {
		return "", invalidArg(command, fmt.Sprintf("missing argument %d", i+1))
	}
	switch v := args[i].(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", invalidArg(command, fmt.Sprintf("argument %d must be text, got %v", i+1, args[i]))
	}
}

func intArg(command string, args []interface{}, i int) (int, error) {
	if i >= len(args) {
		return 0, invalidArg(command, fmt.Sprintf("missing argument %d", i+1))
	}
	n, ok := toInt(args[i])
	if !ok {
		return 0, invalidArg(command, fmt.Sprintf("argument %d must be an integer, got %v", i+1, args[i]))
	}
	return n, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func flatten(args []interface{}) []interface{} {
	var out []interface{}
	for _, arg := range args {
		switch v := arg.(type) {
		case []interface{}:
			out = append(out, flatten(v)...)
		case []string:
			for _, s := range v {
				out = append(out, s)
			}
		default:
			out = append(out, v)
		}
	}
	return out
}
