package document

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/xpath"
)

// CheckSelector reports whether selector compiles as CSS or, with the
// XPathPrefix, as XPath.
func CheckSelector(selector string) error {
	if strings.TrimSpace(selector) == "" {
		return fmt.Errorf("selector must not be empty")
	}
	if expr, ok := strings.CutPrefix(selector, XPathPrefix); ok {
		if _, err := xpath.Compile(strings.TrimSpace(expr)); err != nil {
			return fmt.Errorf("compile xpath %q: %w", expr, err)
		}
		return nil
	}
	if _, err := cascadia.ParseGroup(selector); err != nil {
		return fmt.Errorf("compile selector %q: %w", selector, err)
	}
	return nil
}
