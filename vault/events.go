package vault

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pooltogether/swappable-yield-source/domain"
)

// Event is a notification emitted for external observers and indexers.
// Events are delivered synchronously, after the state change they describe
// has been committed.
type Event interface {
	Kind() string
}

// EventMeta carries the identity shared by all events.
type EventMeta struct {
	ID uuid.UUID
	At time.Time
}

func newEventMeta() EventMeta {
	return EventMeta{ID: uuid.New(), At: time.Now()}
}

// Initialized is emitted once, when the vault is constructed.
type Initialized struct {
	EventMeta
	Backend  domain.Address
	Decimals int32
	Symbol   string
	Name     string
	Owner    domain.Address
}

func (Initialized) Kind() string { return "Initialized" }

// BackendSet is emitted when the yield source pointer is updated without
// moving funds.
type BackendSet struct {
	EventMeta
	Old domain.Address
	New domain.Address
}

func (BackendSet) Kind() string { return "BackendSet" }

// FundsTransferred is emitted when pooled value moves between two explicit
// yield sources.
type FundsTransferred struct {
	EventMeta
	Old    domain.Address
	New    domain.Address
	Amount decimal.Decimal
}

func (FundsTransferred) Kind() string { return "FundsTransferred" }

// BackendSwapped is emitted when the full migration protocol completes: all
// value redeemed from the old yield source, resupplied to the new one, and
// the pointer committed.
type BackendSwapped struct {
	EventMeta
	Old    domain.Address
	New    domain.Address
	Amount decimal.Decimal
}

func (BackendSwapped) Kind() string { return "BackendSwapped" }

// AssetManagerChanged is emitted when the owner delegates or revokes the
// asset-manager capability.
type AssetManagerChanged struct {
	EventMeta
	Old domain.Address
	New domain.Address
}

func (AssetManagerChanged) Kind() string { return "AssetManagerChanged" }

// ERC20Swept is emitted when an incidental asset is recovered from the
// vault's own holdings.
type ERC20Swept struct {
	EventMeta
	From   domain.Address
	To     domain.Address
	Amount decimal.Decimal
	Token  domain.Address
}

func (ERC20Swept) Kind() string { return "ERC20Swept" }
