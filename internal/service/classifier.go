package service

import "payhub/internal/model"

// ClassifierInput carries everything the status decision depends on.
// Franchise facts are only meaningful when NeedsAttribution(Amounts) holds.
type ClassifierInput struct {
	Amounts
	FirstSettlement         bool
	FranchiseType           string
	HasFranchiseParticipant bool
}

// Decision is the outcome of Classify. Status is StatusNone when no
// transition should be made.
type Decision struct {
	Status  model.CertificateStatusID
	LastPay bool
}

// NeedsAttribution reports whether the decision depends on the franchise
// facts: the billed amount is closed and everything but prepayment is identified.
func NeedsAttribution(a Amounts) bool {
	return a.ClosesBilling() && a.Closed.Sub(a.Prepayment).Equal(a.Identified)
}

// Classify derives the certificate status from its sums. First match wins:
//
//	closed == 0                                   READY_TO_PAY
//	closed == billing, closed-prepay == identified COMPLETED_PAID | IDENTIFIED_PAID
//	closed == billing                              UNIDENTIFIED_PAID
//	closed > 0                                     PARTIALLY_PAID
func Classify(in ClassifierInput) Decision {
	switch {
	case in.Closed.IsZero():
		return Decision{Status: model.StatusReadyToPay}
	case NeedsAttribution(in.Amounts):
		if in.FranchiseType == model.FranchiseTypePerformer && !in.HasFranchiseParticipant {
			return Decision{Status: model.StatusCompletedPaid, LastPay: true}
		}
		return Decision{Status: model.StatusIdentifiedPaid, LastPay: true}
	case in.ClosesBilling():
		return Decision{Status: model.StatusUnidentifiedPaid}
	case in.Closed.IsPositive(), in.FirstSettlement && !in.Closed.IsNegative():
		return Decision{Status: model.StatusPartiallyPaid}
	default:
		return Decision{Status: model.StatusNone}
	}
}
