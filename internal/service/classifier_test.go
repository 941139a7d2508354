package service

import (
	"testing"

	"payhub/internal/model"

	"github.com/stretchr/testify/assert"
)

func amounts(billing, closed, identified, prepayment string) Amounts {
	return Amounts{Billing: dec(billing), Closed: dec(closed), Identified: dec(identified), Prepayment: dec(prepayment)}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		in       ClassifierInput
		expected Decision
	}{
		{
			name:     "nothing closed is ready to pay",
			in:       ClassifierInput{Amounts: amounts("1000", "0", "0", "0")},
			expected: Decision{Status: model.StatusReadyToPay},
		},
		{
			name:     "partial unidentified payment",
			in:       ClassifierInput{Amounts: amounts("1000", "400", "0", "0")},
			expected: Decision{Status: model.StatusPartiallyPaid},
		},
		{
			name: "performer franchise without participant completes",
			in: ClassifierInput{
				Amounts:       amounts("1000", "1000", "1000", "0"),
				FranchiseType: model.FranchiseTypePerformer,
			},
			expected: Decision{Status: model.StatusCompletedPaid, LastPay: true},
		},
		{
			name: "performer franchise with participant is identified",
			in: ClassifierInput{
				Amounts:                 amounts("1000", "1000", "1000", "0"),
				FranchiseType:           model.FranchiseTypePerformer,
				HasFranchiseParticipant: true,
			},
			expected: Decision{Status: model.StatusIdentifiedPaid, LastPay: true},
		},
		{
			name: "other franchise type is identified",
			in: ClassifierInput{
				Amounts:       amounts("1000", "1000", "1000", "0"),
				FranchiseType: "partner",
			},
			expected: Decision{Status: model.StatusIdentifiedPaid, LastPay: true},
		},
		{
			name:     "closed but partly unidentified",
			in:       ClassifierInput{Amounts: amounts("1000", "1000", "600", "0")},
			expected: Decision{Status: model.StatusUnidentifiedPaid},
		},
		{
			name: "prepayment does not need identification",
			in: ClassifierInput{
				Amounts:       amounts("1000", "1000", "700", "300"),
				FranchiseType: "partner",
			},
			expected: Decision{Status: model.StatusIdentifiedPaid, LastPay: true},
		},
		{
			name:     "overpaid certificate stays partially paid",
			in:       ClassifierInput{Amounts: amounts("1000", "1200", "1200", "0")},
			expected: Decision{Status: model.StatusPartiallyPaid},
		},
		{
			name:     "negative closed sum without first settlement makes no transition",
			in:       ClassifierInput{Amounts: amounts("1000", "-100", "0", "0")},
			expected: Decision{Status: model.StatusNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.in))
		})
	}
}

func TestClassify_ProgressionIsMonotonic(t *testing.T) {
	steps := []struct {
		closed   string
		expected model.CertificateStatusID
	}{
		{"0", model.StatusReadyToPay},
		{"250", model.StatusPartiallyPaid},
		{"700", model.StatusPartiallyPaid},
		{"1000", model.StatusIdentifiedPaid},
	}

	prev := model.StatusNone
	for _, s := range steps {
		d := Classify(ClassifierInput{Amounts: amounts("1000", s.closed, s.closed, "0"), FranchiseType: "partner"})
		assert.Equal(t, s.expected, d.Status, "closed=%s", s.closed)
		assert.GreaterOrEqual(t, int(d.Status), int(prev))
		prev = d.Status
	}
}

func TestNeedsAttribution(t *testing.T) {
	assert.True(t, NeedsAttribution(amounts("1000", "1000", "1000", "0")))
	assert.True(t, NeedsAttribution(amounts("1000", "1000", "600", "400")))
	assert.False(t, NeedsAttribution(amounts("1000", "1000", "600", "0")))
	assert.False(t, NeedsAttribution(amounts("1000", "400", "400", "0")))
}
