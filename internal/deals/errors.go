package deals

import "errors"

// Sentinel errors surfaced by the lifecycle engine and the deal store.
// They are never swallowed; handlers translate them to HTTP problems.
var (
	// ErrValidation indicates malformed input (missing title, non-positive amount).
	ErrValidation = errors.New("validation failed")
	// ErrInvalidTransition indicates an illegal status change.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotAProposal indicates a proposal operation applied to an invoice.
	ErrNotAProposal = errors.New("deal is not a proposal")
	// ErrNotAnInvoice indicates an invoice operation applied to a proposal.
	ErrNotAnInvoice = errors.New("deal is not an invoice")
	// ErrConversion indicates conversion attempted on an ineligible source.
	ErrConversion = errors.New("conversion not allowed")
	// ErrNotFound indicates the referenced deal is absent.
	ErrNotFound = errors.New("deal not found")
	// ErrConflict indicates the deal changed between read and write.
	ErrConflict = errors.New("deal was modified concurrently")
)
