package scraper

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/baxromumarov/jobfeed/internal/urlutil"
)

type compiledMarker struct {
	matcher cascadia.Selector
	value   string
}

// CardExtractor turns one listing page into the records of its job cards.
type CardExtractor struct {
	source     string
	limit      int
	containers []cascadia.Selector
	card       cascadia.Selector
	rules      []compiledRule
	markers    []compiledMarker
	salary     cascadia.Selector
	refAttr    string
	expanded   []compiledRule
}

func NewCardExtractor(p Profile) (*CardExtractor, error) {
	e := &CardExtractor{
		source:  p.Source,
		limit:   p.CardDescriptionLimit,
		refAttr: p.DetailsRefAttr,
	}

	for _, c := range p.ResultContainers {
		m, err := compileSelector(c)
		if err != nil {
			return nil, fmt.Errorf("container: %w", err)
		}
		if m != nil {
			e.containers = append(e.containers, m)
		}
	}
	if len(e.containers) == 0 {
		return nil, fmt.Errorf("profile %q: no result containers", p.Source)
	}

	var err error
	if e.card, err = compileSelector(p.CardSelector); err != nil {
		return nil, fmt.Errorf("card: %w", err)
	}
	if e.card == nil {
		return nil, fmt.Errorf("profile %q: empty card selector", p.Source)
	}
	if e.salary, err = compileSelector(p.SalaryMarker); err != nil {
		return nil, fmt.Errorf("salary marker: %w", err)
	}
	for _, mk := range p.ModalityMarkers {
		m, err := compileSelector(mk.Selector)
		if err != nil {
			return nil, fmt.Errorf("modality marker: %w", err)
		}
		if m != nil {
			e.markers = append(e.markers, compiledMarker{matcher: m, value: mk.Value})
		}
	}
	if e.rules, err = compileRules(p.CardRules); err != nil {
		return nil, err
	}
	if e.expanded, err = compileRules(p.ExpandedRules); err != nil {
		return nil, err
	}
	return e, nil
}

// Extract returns every complete card found in the result containers, in
// document order. Incomplete cards are logged and left out.
func (e *CardExtractor) Extract(pageURL string, body []byte) ([]Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing %s: %w", pageURL, err)
	}
	base, _ := url.Parse(pageURL)

	var out []Record
	for _, container := range e.containers {
		doc.FindMatcher(container).FindMatcher(e.card).Each(func(_ int, card *goquery.Selection) {
			rec := e.extractCard(doc, base, card)
			if missing := rec.Missing(); len(missing) > 0 {
				slog.Warn("listing card skipped", "url", pageURL, "external_id", rec.ExternalID, "missing", missing)
				return
			}
			out = append(out, rec)
		})
	}
	return out, nil
}

func (e *CardExtractor) extractCard(doc *goquery.Document, base *url.URL, card *goquery.Selection) Record {
	rec := Record{Source: e.source}
	apply(e.rules, card, nil, &rec)

	rec.URL = urlutil.Resolve(base, rec.URL)
	rec.CompanyURL = urlutil.Resolve(base, rec.CompanyURL)
	rec.CompanyLogo = urlutil.Resolve(base, rec.CompanyLogo)

	for _, m := range e.markers {
		if card.FindMatcher(m.matcher).Length() > 0 {
			rec.Modality = m.value
			break
		}
	}

	if e.salary != nil {
		if icon := card.FindMatcher(e.salary).First(); icon.Length() > 0 {
			rec.Salary = adjacentText(icon.Nodes[0])
		}
	}

	if region := e.expandedRegion(doc, card); region != nil {
		apply(e.expanded, region, nil, &rec)
	}
	rec.Description = truncate(rec.Description, e.limit)
	return rec
}

// expandedRegion follows the card's reference attribute (on the card or on
// a toggle inside it) to the element carrying that id.
func (e *CardExtractor) expandedRegion(doc *goquery.Document, card *goquery.Selection) *goquery.Selection {
	if e.refAttr == "" || len(e.expanded) == 0 {
		return nil
	}
	ref, ok := card.Attr(e.refAttr)
	if !ok || ref == "" {
		ref, ok = card.Find("[" + e.refAttr + "]").First().Attr(e.refAttr)
	}
	if !ok || ref == "" {
		return nil
	}
	region := doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		return id == ref
	}).First()
	if region.Length() == 0 {
		return nil
	}
	return region
}
