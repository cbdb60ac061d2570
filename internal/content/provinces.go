package content

// Static immigration content served by the portal. Editorial copy lives
// here rather than in a database; it changes with releases, not at runtime.

type Province struct {
	Slug       string   `json:"slug"`
	Name       string   `json:"name"`
	Capital    string   `json:"capital"`
	Summary    string   `json:"summary"`
	Streams    []string `json:"streams"`
	PathwayIDs []string `json:"pathway_ids"`
}

type Pathway struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Level       string   `json:"level"` // federal or provincial
	Summary     string   `json:"summary"`
	Requirement []string `json:"requirements"`
}

var provinces = []Province{
	{
		Slug:    "ontario",
		Name:    "Ontario",
		Capital: "Toronto",
		Summary: "Canada's most populous province, with the Ontario Immigrant Nominee Program (OINP) covering skilled workers, students and entrepreneurs.",
		Streams: []string{
			"Human Capital Priorities",
			"Employer Job Offer",
			"Masters Graduate",
			"PhD Graduate",
		},
		PathwayIDs: []string{"express-entry", "pnp", "study-permit"},
	},
	{
		Slug:    "british-columbia",
		Name:    "British Columbia",
		Capital: "Victoria",
		Summary: "The BC Provincial Nominee Program (BC PNP) targets tech workers, healthcare professionals and international graduates.",
		Streams: []string{
			"Skills Immigration",
			"BC PNP Tech",
			"Entrepreneur Immigration",
		},
		PathwayIDs: []string{"express-entry", "pnp", "study-permit"},
	},
	{
		Slug:    "alberta",
		Name:    "Alberta",
		Capital: "Edmonton",
		Summary: "The Alberta Advantage Immigration Program (AAIP) nominates workers in high-demand occupations and rural renewal candidates.",
		Streams: []string{
			"Alberta Opportunity",
			"Alberta Express Entry",
			"Rural Renewal",
		},
		PathwayIDs: []string{"express-entry", "pnp"},
	},
	{
		Slug:    "manitoba",
		Name:    "Manitoba",
		Capital: "Winnipeg",
		Summary: "The Manitoba Provincial Nominee Program (MPNP) favours candidates with local connections, education or work experience.",
		Streams: []string{
			"Skilled Worker in Manitoba",
			"Skilled Worker Overseas",
			"International Education",
		},
		PathwayIDs: []string{"pnp", "study-permit"},
	},
	{
		Slug:    "saskatchewan",
		Name:    "Saskatchewan",
		Capital: "Regina",
		Summary: "The Saskatchewan Immigrant Nominee Program (SINP) runs occupation in-demand and Express Entry aligned streams.",
		Streams: []string{
			"International Skilled Worker",
			"Saskatchewan Experience",
			"Entrepreneur and Farm",
		},
		PathwayIDs: []string{"express-entry", "pnp"},
	},
	{
		Slug:    "nova-scotia",
		Name:    "Nova Scotia",
		Capital: "Halifax",
		Summary: "The Nova Scotia Nominee Program (NSNP) draws healthcare workers, skilled trades and international graduates to Atlantic Canada.",
		Streams: []string{
			"Nova Scotia Demand",
			"Labour Market Priorities",
			"International Graduates in Demand",
		},
		PathwayIDs: []string{"pnp", "family-sponsorship"},
	},
}

var pathways = []Pathway{
	{
		ID:      "express-entry",
		Name:    "Express Entry",
		Level:   "federal",
		Summary: "Points-based federal system managing applications for three economic immigration programs.",
		Requirement: []string{
			"Language test results (IELTS/CELPIP or TEF)",
			"Educational credential assessment",
			"Proof of settlement funds",
		},
	},
	{
		ID:      "pnp",
		Name:    "Provincial Nominee Program",
		Level:   "provincial",
		Summary: "Provinces nominate candidates who match local labour market needs; a nomination adds 600 CRS points.",
		Requirement: []string{
			"Meet a provincial stream's criteria",
			"Intent to reside in the nominating province",
		},
	},
	{
		ID:      "study-permit",
		Name:    "Study Permit",
		Level:   "federal",
		Summary: "Study at a designated learning institution, with post-graduation work permit options leading to permanent residence.",
		Requirement: []string{
			"Letter of acceptance from a DLI",
			"Proof of financial support",
		},
	},
	{
		ID:      "family-sponsorship",
		Name:    "Family Sponsorship",
		Level:   "federal",
		Summary: "Canadian citizens and permanent residents can sponsor spouses, partners, children and parents.",
		Requirement: []string{
			"Eligible sponsor relationship",
			"Sponsorship undertaking",
		},
	},
}

func Provinces() []Province {
	return provinces
}

func ProvinceBySlug(slug string) (Province, bool) {
	for _, p := range provinces {
		if p.Slug == slug {
			return p, true
		}
	}
	return Province{}, false
}

func Pathways() []Pathway {
	return pathways
}
