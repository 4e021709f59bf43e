package scraper

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	jmespath "github.com/jmespath-community/go-jmespath"
)

type Field string

const (
	FieldID           Field = "external_id"
	FieldURL          Field = "url"
	FieldTitle        Field = "title"
	FieldCompany      Field = "company"
	FieldCompanyURL   Field = "company_url"
	FieldCompanyLogo  Field = "company_logo"
	FieldLocation     Field = "location"
	FieldLocationHTML Field = "location_html"
	FieldModality     Field = "modality"
	FieldSalary       Field = "salary"
	FieldPosted       Field = "posted"
	FieldDescription  Field = "description"
	FieldSkills       Field = "skills"
)

// AttrHTML makes a Locator return the inner markup of the matched node.
const AttrHTML = "@html"

// Locator points at a value inside a page. CSS is evaluated relative to the
// current scope (an empty CSS means the scope itself); Attr selects an
// attribute instead of the text. JSONLD is a JMESPath expression evaluated
// against the page's JobPosting object and is used when CSS is empty.
type Locator struct {
	CSS    string
	Attr   string
	JSONLD string
}

func (l Locator) IsZero() bool {
	return l.CSS == "" && l.Attr == "" && l.JSONLD == ""
}

// Rule maps a field to a primary locator and a fallback tried when the
// primary yields nothing.
type Rule struct {
	Field    Field
	Locator  Locator
	Fallback Locator
}

type compiledLocator struct {
	Locator
	matcher cascadia.Selector
}

type compiledRule struct {
	field    Field
	primary  compiledLocator
	fallback compiledLocator
}

func compileRules(rules []Rule) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		p, err := compileLocator(r.Locator)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.Field, err)
		}
		fb, err := compileLocator(r.Fallback)
		if err != nil {
			return nil, fmt.Errorf("rule %s fallback: %w", r.Field, err)
		}
		out = append(out, compiledRule{field: r.Field, primary: p, fallback: fb})
	}
	return out, nil
}

func compileLocator(l Locator) (compiledLocator, error) {
	c := compiledLocator{Locator: l}
	if l.CSS != "" {
		m, err := cascadia.Compile(l.CSS)
		if err != nil {
			return c, fmt.Errorf("selector %q: %w", l.CSS, err)
		}
		c.matcher = m
	}
	if l.JSONLD != "" {
		if _, err := jmespath.Compile(l.JSONLD); err != nil {
			return c, fmt.Errorf("jsonld path %q: %w", l.JSONLD, err)
		}
	}
	return c, nil
}

func compileSelector(sel string) (cascadia.Selector, error) {
	if sel == "" {
		return nil, nil
	}
	m, err := cascadia.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", sel, err)
	}
	return m, nil
}

// apply evaluates every rule against scope and writes the results into rec.
func apply(rules []compiledRule, scope *goquery.Selection, posting map[string]any, rec *Record) {
	for _, r := range rules {
		multi := r.field == FieldSkills
		vals := r.primary.values(scope, posting, multi)
		if len(vals) == 0 && !r.fallback.IsZero() {
			vals = r.fallback.values(scope, posting, multi)
		}
		rec.set(r.field, vals)
	}
}

func (c compiledLocator) values(scope *goquery.Selection, posting map[string]any, multi bool) []string {
	if c.IsZero() {
		return nil
	}
	if c.CSS == "" && c.JSONLD != "" {
		return jsonldValues(c.JSONLD, posting, multi)
	}
	if scope == nil {
		return nil
	}

	sel := scope
	if c.matcher != nil {
		sel = scope.FindMatcher(c.matcher)
	}

	var out []string
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v := c.read(s); v != "" {
			out = append(out, v)
			return multi
		}
		return true
	})
	return out
}

func (c compiledLocator) read(s *goquery.Selection) string {
	switch c.Attr {
	case "":
		return collapseSpace(s.Text())
	case AttrHTML:
		h, err := s.Html()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(h)
	default:
		v, _ := s.Attr(c.Attr)
		return strings.TrimSpace(v)
	}
}

func jsonldValues(expr string, posting map[string]any, multi bool) []string {
	if posting == nil {
		return nil
	}
	res, err := jmespath.Search(expr, posting)
	if err != nil || res == nil {
		return nil
	}
	var out []string
	switch v := res.(type) {
	case []any:
		for _, item := range v {
			if s := scalarString(item); s != "" {
				out = append(out, s)
				if !multi {
					break
				}
			}
		}
	default:
		if s := scalarString(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}
