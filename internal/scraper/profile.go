package scraper

import "fmt"

// Marker maps the presence of an element (usually an icon) to a value.
type Marker struct {
	Selector string
	Value    string
}

// Profile describes the markup of one source as data. Adapting to markup
// drift or a new source means editing a Profile, not the extractors.
type Profile struct {
	Source           string
	DetailPathPrefix string

	DetailRules            []Rule
	DetailDescriptionLimit int

	// ResultContainers are the named regions that hold listing cards.
	ResultContainers     []string
	CardSelector         string
	CardRules            []Rule
	ModalityMarkers      []Marker
	SalaryMarker         string
	DetailsRefAttr       string
	ExpandedRules        []Rule
	CardDescriptionLimit int
}

// DefaultProfile returns the rule tables for the server-rendered job board
// markup this service was built against.
func DefaultProfile(source string) Profile {
	return Profile{
		Source:           source,
		DetailPathPrefix: "/jobs/",

		DetailRules: []Rule{
			{Field: FieldURL, Locator: Locator{CSS: "link[rel='canonical']", Attr: "href"}, Fallback: Locator{CSS: "meta[property='og:url']", Attr: "content"}},
			{Field: FieldTitle, Locator: Locator{CSS: "h1.job-title"}, Fallback: Locator{JSONLD: "title"}},
			{Field: FieldCompany, Locator: Locator{CSS: ".job-company .company-name"}, Fallback: Locator{JSONLD: "hiringOrganization.name"}},
			{Field: FieldCompanyURL, Locator: Locator{CSS: ".job-company a.company-name", Attr: "href"}, Fallback: Locator{JSONLD: "hiringOrganization.sameAs"}},
			{Field: FieldCompanyLogo, Locator: Locator{CSS: ".job-company img.company-logo", Attr: "src"}, Fallback: Locator{JSONLD: "hiringOrganization.logo"}},
			{Field: FieldLocation, Locator: Locator{CSS: ".job-location"}, Fallback: Locator{JSONLD: "jobLocation[0].address.addressLocality || jobLocation.address.addressLocality"}},
			{Field: FieldLocationHTML, Locator: Locator{CSS: ".job-location", Attr: AttrHTML}},
			{Field: FieldPosted, Locator: Locator{CSS: ".job-posted"}, Fallback: Locator{JSONLD: "datePosted"}},
			{Field: FieldDescription, Locator: Locator{CSS: ".job-description"}, Fallback: Locator{JSONLD: "description"}},
			{Field: FieldSkills, Locator: Locator{CSS: ".job-skills li"}, Fallback: Locator{JSONLD: "skills"}},
		},
		DetailDescriptionLimit: 1000,

		ResultContainers: []string{"#search-results", "#featured-results"},
		CardSelector:     "li.job-card",
		CardRules: []Rule{
			{Field: FieldID, Locator: Locator{Attr: "data-job-id"}, Fallback: Locator{Attr: "id"}},
			{Field: FieldTitle, Locator: Locator{CSS: "a.job-card__title"}, Fallback: Locator{CSS: "h3"}},
			{Field: FieldURL, Locator: Locator{CSS: "a.job-card__title", Attr: "href"}, Fallback: Locator{CSS: "h3 a", Attr: "href"}},
			{Field: FieldCompany, Locator: Locator{CSS: ".job-card__company"}},
			{Field: FieldCompanyURL, Locator: Locator{CSS: "a.job-card__company", Attr: "href"}},
			{Field: FieldCompanyLogo, Locator: Locator{CSS: "img.job-card__logo", Attr: "src"}, Fallback: Locator{CSS: "img.job-card__logo", Attr: "data-src"}},
			{Field: FieldLocation, Locator: Locator{CSS: ".job-card__location"}},
			{Field: FieldLocationHTML, Locator: Locator{CSS: ".job-card__location", Attr: AttrHTML}},
			{Field: FieldPosted, Locator: Locator{CSS: ".job-card__posted"}, Fallback: Locator{CSS: "time", Attr: "datetime"}},
		},
		ModalityMarkers: []Marker{
			{Selector: ".icon-remote", Value: "remote"},
			{Selector: ".icon-hybrid", Value: "hybrid"},
			{Selector: ".icon-onsite", Value: "on-site"},
		},
		SalaryMarker:   ".icon-currency",
		DetailsRefAttr: "aria-controls",
		ExpandedRules: []Rule{
			{Field: FieldDescription, Locator: Locator{CSS: ".job-details__description"}},
			{Field: FieldSkills, Locator: Locator{CSS: ".job-details__skills li"}},
		},
		CardDescriptionLimit: 250,
	}
}

// Extractors bundles the compiled extractors of one Profile.
type Extractors struct {
	Detail *DetailExtractor
	Cards  *CardExtractor
}

// Compile validates every selector and JSON-LD path of p.
func (p Profile) Compile() (*Extractors, error) {
	d, err := NewDetailExtractor(p)
	if err != nil {
		return nil, fmt.Errorf("detail rules: %w", err)
	}
	c, err := NewCardExtractor(p)
	if err != nil {
		return nil, fmt.Errorf("card rules: %w", err)
	}
	return &Extractors{Detail: d, Cards: c}, nil
}
