package domain

import (
	"fmt"
	"time"
)

// ApplicationStep is a stage of the loan application wizard.
type ApplicationStep string

const (
	StepDetails    ApplicationStep = "details"
	StepFinancials ApplicationStep = "financials"
	StepDocuments  ApplicationStep = "documents"
	StepReview     ApplicationStep = "review"
)

var applicationSteps = []ApplicationStep{StepDetails, StepFinancials, StepDocuments, StepReview}

func ParseStep(s string) (ApplicationStep, error) {
	for _, step := range applicationSteps {
		if string(step) == s {
			return step, nil
		}
	}
	return "", fmt.Errorf("unknown application step %q", s)
}

// Index is the zero-based position of the step, -1 for unknown values.
func (s ApplicationStep) Index() int {
	for i, step := range applicationSteps {
		if step == s {
			return i
		}
	}
	return -1
}

// Next returns the following step, or "" after review.
func (s ApplicationStep) Next() ApplicationStep {
	i := s.Index()
	if i < 0 || i+1 >= len(applicationSteps) {
		return ""
	}
	return applicationSteps[i+1]
}

type DraftDetails struct {
	Category   string  `json:"category"`
	Principal  float64 `json:"principal"`
	TermMonths int     `json:"term_months"`
	Purpose    string  `json:"purpose"`
}

type DraftFinancials struct {
	MonthlyIncome    float64 `json:"monthly_income"`
	EmploymentStatus string  `json:"employment_status"`
	Employer         string  `json:"employer,omitempty"`
}

type DraftDocuments struct {
	BankStatementName string `json:"bank_statement_name"`
	IdDocumentName    string `json:"id_document_name"`
}

type DraftReview struct {
	Confirmed bool `json:"confirmed"`
}

// LoanDraft is the server-side state of the wizard. Completed is the last
// step saved; a step may only be saved once every earlier step is.
type LoanDraft struct {
	UserID     uint64           `json:"user_id"`
	Completed  ApplicationStep  `json:"completed"`
	Details    *DraftDetails    `json:"details,omitempty"`
	Financials *DraftFinancials `json:"financials,omitempty"`
	Documents  *DraftDocuments  `json:"documents,omitempty"`
	Review     *DraftReview     `json:"review,omitempty"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// CanSave reports whether step is reachable from the draft's progress.
func (d LoanDraft) CanSave(step ApplicationStep) bool {
	idx := step.Index()
	if idx < 0 {
		return false
	}
	return idx <= d.Completed.Index()+1
}

// NextStep is the step the wizard should show next.
func (d LoanDraft) NextStep() ApplicationStep {
	if d.Completed == "" {
		return StepDetails
	}
	return d.Completed.Next()
}

// Snapshot returns a deep copy so callers cannot mutate stored state.
func (d LoanDraft) Snapshot() LoanDraft {
	out := d
	if d.Details != nil {
		v := *d.Details
		out.Details = &v
	}
	if d.Financials != nil {
		v := *d.Financials
		out.Financials = &v
	}
	if d.Documents != nil {
		v := *d.Documents
		out.Documents = &v
	}
	if d.Review != nil {
		v := *d.Review
		out.Review = &v
	}
	return out
}

// Truncate drops the data of every step after step. Editing an earlier step
// invalidates what was derived from it.
func (d *LoanDraft) Truncate(step ApplicationStep) {
	idx := step.Index()
	if idx < StepFinancials.Index() {
		d.Financials = nil
	}
	if idx < StepDocuments.Index() {
		d.Documents = nil
	}
	if idx < StepReview.Index() {
		d.Review = nil
	}
	d.Completed = step
}
