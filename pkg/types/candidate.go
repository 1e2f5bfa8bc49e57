package types

// Candidate kinds reported by static analysis.
const (
	KindFunction = "function"
	KindMethod   = "method"
)

// Candidate is a function or method that static analysis flagged as likely
// dead, with a confidence score in [0, 1] and the signals that produced it.
type Candidate struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	FilePath   string   `json:"file_path"`
	Line       int      `json:"line"`
	EndLine    int      `json:"end_line"`
	Doc        string   `json:"doc,omitempty"`
	References int      `json:"references"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
	Exported   bool     `json:"exported"`
}
