package models

// Mail labels assigned by triage. The model is constrained to this
// vocabulary via the tool schema.
const (
	LabelImportant    = "wichtig"
	LabelUrgent       = "dringend"
	LabelNotImportant = "nicht wichtig"
	LabelNotUrgent    = "nicht dringend"
)

// TriageLabels is the closed label vocabulary offered to the model.
var TriageLabels = []string{LabelImportant, LabelUrgent, LabelNotImportant, LabelNotUrgent}

// Mail is a single mailbox record. From/To/Subject/Body/Date/Read come from
// the mail backend; Summary, Reply and Labels are produced locally and must
// survive refetches.
type Mail struct {
	ID      string `json:"id"`
	Date    string `json:"date"`
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Read    bool   `json:"read,omitempty"`

	Summary string   `json:"summary,omitempty"`
	Reply   string   `json:"reply,omitempty"`
	Labels  []string `json:"labels"`
}
