package drawer

import "github.com/noah-isme/backend-pos/internal/money"

// DenominationKind distinguishes bills from coins for display grouping.
type DenominationKind string

const (
	Bill DenominationKind = "bill"
	Coin DenominationKind = "coin"
)

// Denomination is one physical money unit of the drawer's currency.
type Denomination struct {
	FaceValue money.Money
	Kind      DenominationKind
}

// Catalog returns the denomination catalog in descending face value. The set
// is a canonical currency system: greedy largest-first allocation always
// yields a minimal-count decomposition, which QuickFill relies on.
func Catalog() []Denomination {
	return []Denomination{
		{FaceValue: money.FromInt(1000), Kind: Bill},
		{FaceValue: money.FromInt(500), Kind: Bill},
		{FaceValue: money.FromInt(200), Kind: Bill},
		{FaceValue: money.FromInt(100), Kind: Bill},
		{FaceValue: money.FromInt(50), Kind: Bill},
		{FaceValue: money.FromInt(20), Kind: Bill},
		{FaceValue: money.FromInt(10), Kind: Bill},
		{FaceValue: money.FromInt(5), Kind: Coin},
		{FaceValue: money.FromInt(2), Kind: Coin},
		{FaceValue: money.FromInt(1), Kind: Coin},
		{FaceValue: money.FromFloat(0.5), Kind: Coin},
		{FaceValue: money.FromFloat(0.25), Kind: Coin},
		{FaceValue: money.FromFloat(0.1), Kind: Coin},
		{FaceValue: money.FromFloat(0.05), Kind: Coin},
	}
}
