package session

import (
	"errors"
	"time"

	"github.com/noah-isme/backend-pos/internal/drawer"
	"github.com/noah-isme/backend-pos/internal/money"
)

var (
	// ErrNotFound indicates the session id is unknown.
	ErrNotFound = errors.New("cash session not found")
	// ErrAlreadyOpen indicates the register already has an open session.
	ErrAlreadyOpen = errors.New("register already has an open session")
	// ErrSessionClosed is returned for mutations against a closed session.
	ErrSessionClosed = errors.New("cash session is closed")
	// ErrInvalidMovement covers unknown kinds and non-positive amounts.
	ErrInvalidMovement = errors.New("invalid movement")
	// ErrCloseoutNotStarted is returned for close actions before begin.
	ErrCloseoutNotStarted = errors.New("close-out not started")
)

// Status is the lifecycle state of a cash session.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// MovementKind classifies a ledger movement.
type MovementKind string

const (
	// MovementSale is the cash portion of a finalized sale.
	MovementSale MovementKind = "sale"
	// MovementIn is a manual deposit into the drawer.
	MovementIn MovementKind = "in"
	// MovementOut is a manual withdrawal from the drawer.
	MovementOut MovementKind = "out"
)

// Valid reports whether the kind is one of the supported variants.
func (k MovementKind) Valid() bool {
	return k == MovementSale || k == MovementIn || k == MovementOut
}

// Session is one register's cash accountability period, from opening float to
// closing reconciliation.
type Session struct {
	ID           string      `json:"id"`
	Register     string      `json:"register"`
	OpenedBy     string      `json:"openedBy,omitempty"`
	OpeningFloat money.Money `json:"openingFloat"`
	Status       Status      `json:"status"`
	OpenedAt     time.Time   `json:"openedAt"`
	ClosedAt     *time.Time  `json:"closedAt,omitempty"`
}

// Movement is one immutable ledger entry against a session.
type Movement struct {
	ID        string       `json:"id"`
	SessionID string       `json:"sessionId"`
	Kind      MovementKind `json:"kind"`
	Amount    money.Money  `json:"amount"`
	Reason    string       `json:"reason,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Reconciliation is one persisted count-versus-expected comparison. At most
// one closing record exists per session; intermediate records are advisory.
type Reconciliation struct {
	ID             string      `json:"id"`
	SessionID      string      `json:"sessionId"`
	Expected       money.Money `json:"expected"`
	Counted        money.Money `json:"counted"`
	Difference     money.Money `json:"difference"`
	Classification string      `json:"classification"`
	Notes          string      `json:"notes,omitempty"`
	Closing        bool        `json:"closing"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// Balance is the session's expected-cash breakdown derived from the ledger.
type Balance struct {
	OpeningFloat    money.Money `json:"openingFloat"`
	CashSales       money.Money `json:"cashSales"`
	ManualIn        money.Money `json:"manualIn"`
	ManualOut       money.Money `json:"manualOut"`
	ExpectedBalance money.Money `json:"expectedBalance"`
}

// computeBalance folds the movement ledger into the expected drawer content:
// opening float plus cash sales plus manual deposits minus withdrawals.
func computeBalance(openingFloat money.Money, movements []Movement) Balance {
	b := Balance{
		OpeningFloat: openingFloat,
		CashSales:    money.Zero(),
		ManualIn:     money.Zero(),
		ManualOut:    money.Zero(),
	}
	for _, m := range movements {
		switch m.Kind {
		case MovementSale:
			b.CashSales = b.CashSales.Add(m.Amount)
		case MovementIn:
			b.ManualIn = b.ManualIn.Add(m.Amount)
		case MovementOut:
			b.ManualOut = b.ManualOut.Add(m.Amount)
		}
	}
	b.ExpectedBalance = money.Round(b.OpeningFloat.Add(b.CashSales).Add(b.ManualIn).Sub(b.ManualOut))
	return b
}

func (b Balance) drawerSummary() drawer.SessionSummary {
	return drawer.SessionSummary{
		OpeningFloat:    b.OpeningFloat,
		CashSales:       b.CashSales,
		ManualIn:        b.ManualIn,
		ManualOut:       b.ManualOut,
		ExpectedBalance: b.ExpectedBalance,
	}
}
