package cy

import (
	"strings"

	"github.com/devicelab-dev/cyrunner/pkg/core"
	"github.com/devicelab-dev/cyrunner/pkg/flow"
)

// Phrase is a parsed BDD assertion chain such as "not.have.text".
type Phrase struct {
	Name     string // canonical assertion name
	Negation bool
}

// stopWords are the linguistic glue of BDD chains.
var stopWords = map[string]bool{
	"to": true, "be": true, "been": true, "is": true, "that": true, "which": true,
	"and": true, "has": true, "have": true, "with": true, "at": true, "of": true,
	"same": true, "but": true, "does": true, "still": true, "also": true, "deep": true,
}

// canonicalNames maps accepted tokens to canonical assertion names.
var canonicalNames = map[string]string{
	"length":   "length",
	"lengthOf": "length",
	"text":     "text",
	"class":    "class",
	"attr":     "attr",
	"exist":    "exist",
	"exists":   "exist",
	"include":  "include",
	"includes": "include",
	"contain":  "include",
	"contains": "include",
	"property": "property",
	"empty":    "empty",
	"equal":    "equal",
	"equals":   "equal",
	"eq":       "equal",
	"checked":  "checked",
	"value":    "value",
	"visible":  "visible",
	"null":     "null",
}

// assertionNames maps canonical names to registry assertion names.
var assertionNames = map[string]flow.AssertionName{
	"length":   flow.AssertLength,
	"text":     flow.AssertText,
	"class":    flow.AssertClass,
	"attr":     flow.AssertAttr,
	"exist":    flow.AssertExist,
	"value":    flow.AssertValue,
	"checked":  flow.AssertChecked,
	"visible":  flow.AssertVisible,
	"include":  flow.AssertInclude,
	"property": flow.AssertProperty,
	"empty":    flow.AssertEmpty,
	"equal":    flow.AssertEqual,
	"null":     flow.AssertNull,
}

// ParsePhrase splits a dotted phrase, drops stop words, detects "not" and
// returns the first remaining token as the canonical assertion name.
func ParsePhrase(phrase string) (Phrase, error) {
	var p Phrase
	token := ""
	for _, part := range strings.Split(phrase, ".") {
		part = strings.TrimSpace(part)
		switch {
		case part == "" || stopWords[part]:
		case part == "not":
			p.Negation = true
		case token == "":
			token = part
		}
	}
	if token == "" {
		return Phrase{}, core.UnknownAssertion(phrase)
	}
	name, ok := canonicalNames[token]
	if !ok {
		return Phrase{}, core.UnknownAssertion(token)
	}
	p.Name = name
	return p, nil
}

// AssertionName returns the registry name the phrase dispatches to.
func (p Phrase) AssertionName() flow.AssertionName {
	return assertionNames[p.Name]
}
