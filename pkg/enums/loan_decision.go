package enums

// LoanDecision represents the decision an administrator takes on a pending loan.
type LoanDecision string

const (
	// LoanDecisionApprove indicates the administrator approves the loan.
	LoanDecisionApprove LoanDecision = "approve"
	// LoanDecisionReject indicates the administrator rejects the loan.
	LoanDecisionReject LoanDecision = "reject"
)
