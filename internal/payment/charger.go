package payment

import (
	"context"
	"math/rand"

	"github.com/fjod/go_cart/orders/internal/domain"
	"github.com/google/uuid"
)

type ChargeStatus int

const (
	ChargeSucceeded ChargeStatus = iota + 1
	ChargeDeclined
)

func (s ChargeStatus) String() string {
	switch s {
	case ChargeSucceeded:
		return "succeeded"
	case ChargeDeclined:
		return "declined"
	default:
		return "unknown"
	}
}

type RefusalReason int

const (
	RefusalUnknown RefusalReason = iota
	RefusalNoFunds
	RefusalCardExpired
	RefusalFraudSuspected
	RefusalLimitExceeded
	RefusalBankUnavailable
)

func (r RefusalReason) String() string {
	switch r {
	case RefusalNoFunds:
		return "no_funds"
	case RefusalCardExpired:
		return "card_expired"
	case RefusalFraudSuspected:
		return "fraud_suspected"
	case RefusalLimitExceeded:
		return "limit_exceeded"
	case RefusalBankUnavailable:
		return "bank_unavailable"
	default:
		return "unknown"
	}
}

type ChargeResult struct {
	Status        ChargeStatus
	TransactionID string
	Refusal       RefusalReason
	OtherReason   string
}

func (r ChargeResult) Succeeded() bool {
	return r.Status == ChargeSucceeded
}

// Charger takes money for an order. A declined charge is a result, not an error.
type Charger interface {
	Charge(ctx context.Context, orderID domain.OrderID, amount domain.Money) (ChargeResult, error)
}

// SimulatedCharger approves SuccessRate percent of charges and declines the
// rest with a pseudo-random refusal.
type SimulatedCharger struct {
	successRate int
	roll        func() int
}

func NewSimulatedCharger(successRate int) *SimulatedCharger {
	return &SimulatedCharger{
		successRate: successRate,
		roll:        func() int { return rand.Intn(101) }, // 101 because Intn is exclusive of the upper bound
	}
}

func (c *SimulatedCharger) Charge(ctx context.Context, _ domain.OrderID, _ domain.Money) (ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return ChargeResult{}, err
	}
	result := calcStatus(c.roll(), c.successRate)
	result.TransactionID = "TXN-" + uuid.NewString()
	return result, nil
}

func calcStatus(randomInt, successRate int) ChargeResult {
	if randomInt < successRate {
		return ChargeResult{Status: ChargeSucceeded}
	}
	otherReason := randomInt - successRate
	if otherReason == 0 || otherReason > int(RefusalBankUnavailable) {
		return ChargeResult{Status: ChargeDeclined, Refusal: RefusalUnknown, OtherReason: "unknown reason"}
	}

	return ChargeResult{Status: ChargeDeclined, Refusal: RefusalReason(otherReason)}
}
