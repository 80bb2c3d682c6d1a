package driver

import (
	"fmt"
	"strconv"
	"strings"
)

// LocatorKind is the strategy used to find an element.
type LocatorKind string

const (
	ByCSS       LocatorKind = "css"
	ByXPath     LocatorKind = "xpath"
	ByID        LocatorKind = "id"
	ByName      LocatorKind = "name"
	ByClassName LocatorKind = "class"
	ByTagName   LocatorKind = "tag"
	ByLinkText  LocatorKind = "link text"
)

// Locator is an engine-agnostic description of how to find an element. Each backend translates it
// into its own query mechanism.
type Locator struct {
	Kind  LocatorKind
	Value string
}

func CSS(selector string) Locator   { return Locator{Kind: ByCSS, Value: selector} }
func XPath(expr string) Locator     { return Locator{Kind: ByXPath, Value: expr} }
func ID(id string) Locator          { return Locator{Kind: ByID, Value: id} }
func Name(name string) Locator      { return Locator{Kind: ByName, Value: name} }
func ClassName(name string) Locator { return Locator{Kind: ByClassName, Value: name} }
func TagName(name string) Locator   { return Locator{Kind: ByTagName, Value: name} }
func LinkText(text string) Locator  { return Locator{Kind: ByLinkText, Value: text} }

func (l Locator) String() string {
	return fmt.Sprintf("%s=%q", l.Kind, l.Value)
}

// Validate returns an error if the locator has an unknown kind or an empty value.
func (l Locator) Validate() error {
	switch l.Kind {
	case ByCSS, ByXPath, ByID, ByName, ByClassName, ByTagName, ByLinkText:
	default:
		return fmt.Errorf("unknown locator kind %q", l.Kind)
	}
	if l.Value == "" {
		return fmt.Errorf("locator %s has an empty value", l.Kind)
	}
	return nil
}

// asCSSOrXPath rewrites the locator for engines that only understand CSS selectors and XPath
// expressions. The boolean result is true for XPath. IDs are returned as CSS attribute selectors
// so that they do not need escaping.
func (l Locator) asCSSOrXPath() (string, bool) {
	switch l.Kind {
	case ByXPath:
		return l.Value, true
	case ByLinkText:
		return "//a[normalize-space(.)=" + xpathLiteral(l.Value) + "]", true
	case ByID:
		return "[id=" + strconv.Quote(l.Value) + "]", false
	case ByName:
		return "[name=" + strconv.Quote(l.Value) + "]", false
	case ByClassName:
		return "[class~=" + strconv.Quote(l.Value) + "]", false
	default: // ByCSS, ByTagName
		return l.Value, false
	}
}

func xpathLiteral(s string) string {
	if !strings.ContainsRune(s, '"') {
		return `"` + s + `"`
	}
	if !strings.ContainsRune(s, '\'') {
		return "'" + s + "'"
	}
	// Both quote characters present: concat("a", '"', "b")
	out := "concat("
	part := ""
	for _, r := range s {
		if r == '"' {
			out += `"` + part + `", '"', `
			part = ""
			continue
		}
		part += string(r)
	}
	return out + `"` + part + `")`
}
