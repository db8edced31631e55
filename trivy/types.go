package trivy

// Report is the list of result groups written by trivy. Older releases
// write the list as the document root, newer ones nest it under Results.
type Report []Result

// Result is a single scan target inside a report.
type Result struct {
	Target          string          `json:"Target,omitempty"`
	Class           string          `json:"Class,omitempty"`
	Type            string          `json:"Type,omitempty"`
	Vulnerabilities []Vulnerability `json:"Vulnerabilities,omitempty"`
}

// Layer identifies the image layer a vulnerable package came from.
type Layer struct {
	Digest string `json:"Digest,omitempty"`
	DiffID string `json:"DiffID,omitempty"`
}

// Vulnerability is a single finding.
type Vulnerability struct {
	VulnerabilityID  string   `json:"VulnerabilityID,omitempty"`
	PkgName          string   `json:"PkgName,omitempty"`
	InstalledVersion string   `json:"InstalledVersion,omitempty"`
	FixedVersion     string   `json:"FixedVersion,omitempty"`
	Layer            Layer    `json:"Layer,omitempty"`
	SeveritySource   string   `json:"SeveritySource,omitempty"`
	Title            string   `json:"Title,omitempty"`
	Description      string   `json:"Description,omitempty"`
	Severity         string   `json:"Severity,omitempty"`
	References       []string `json:"References,omitempty"`
}

type reportObject struct {
	SchemaVersion int    `json:"SchemaVersion,omitempty"`
	ArtifactName  string `json:"ArtifactName,omitempty"`
	Results       Report `json:"Results,omitempty"`
}

// Counts holds the number of findings per tracked severity. Total counts
// every finding, including those with a label outside the four buckets.
type Counts struct {
	Critical int
	High     int
	Medium   int
	Low      int
	Total    int
}
