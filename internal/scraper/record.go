package scraper

import "time"

// Record is one scraped job posting before it is persisted.
type Record struct {
	ExternalID   string
	URL          string
	Title        string
	Company      string
	CompanyURL   string
	CompanyLogo  string
	Location     string
	LocationHTML string
	Modality     string
	Salary       string
	PostedText   string
	PostedAt     *time.Time
	Description  string
	Skills       []string
	Source       string
}

// Missing lists the mandatory fields that are empty.
func (r Record) Missing() []string {
	var out []string
	if r.ExternalID == "" {
		out = append(out, string(FieldID))
	}
	if r.URL == "" {
		out = append(out, string(FieldURL))
	}
	if r.Title == "" {
		out = append(out, string(FieldTitle))
	}
	if r.Company == "" {
		out = append(out, string(FieldCompany))
	}
	if r.Location == "" {
		out = append(out, string(FieldLocation))
	}
	return out
}

func (r *Record) set(f Field, vals []string) {
	if len(vals) == 0 {
		return
	}
	v := vals[0]
	switch f {
	case FieldID:
		r.ExternalID = v
	case FieldURL:
		r.URL = v
	case FieldTitle:
		r.Title = v
	case FieldCompany:
		r.Company = v
	case FieldCompanyURL:
		r.CompanyURL = v
	case FieldCompanyLogo:
		r.CompanyLogo = v
	case FieldLocation:
		r.Location = v
	case FieldLocationHTML:
		r.LocationHTML = v
	case FieldModality:
		r.Modality = v
	case FieldSalary:
		r.Salary = v
	case FieldPosted:
		r.PostedText = v
	case FieldDescription:
		r.Description = v
	case FieldSkills:
		r.Skills = append([]string(nil), vals...)
	}
}
