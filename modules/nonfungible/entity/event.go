package entity

import (
	"time"

	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
)

// EventKind identifies a domain event emitted by the ledger.
type EventKind string

const (
	EventCollectionCreated         EventKind = "CollectionCreated"
	EventCollectionDestroyed       EventKind = "CollectionDestroyed"
	EventItemCreated               EventKind = "ItemCreated"
	EventItemDestroyed             EventKind = "ItemDestroyed"
	EventTransfer                  EventKind = "Transfer"
	EventApproved                  EventKind = "Approved"
	EventApprovalCancelled         EventKind = "ApprovalCancelled"
	EventTokenPropertySet          EventKind = "TokenPropertySet"
	EventTokenPropertyDeleted      EventKind = "TokenPropertyDeleted"
	EventCollectionPropertySet     EventKind = "CollectionPropertySet"
	EventCollectionPropertyDeleted EventKind = "CollectionPropertyDeleted"
	EventPropertyPermissionSet     EventKind = "PropertyPermissionSet"
)

// Event is a domain event row. External indexers consume these alongside the
// ERC-721-shaped logs.
type Event struct {
	Id           uint64
	CollectionId tokens.CollectionId
	TokenId      tokens.TokenId // zero for collection-level events
	Kind         EventKind
	From         tokens.AccountId
	To           tokens.AccountId
	Spender      tokens.AccountId
	PropertyKey  tokens.PropertyKey
	CreatedAt    time.Time
}

// LogKind identifies an ERC-721-shaped log entry.
type LogKind string

const (
	// LogTransfer mirrors the ERC-721 Transfer(from, to, tokenId) log.
	// Mint and burn use the zero address by convention.
	LogTransfer LogKind = "Transfer"

	// LogApproval mirrors the ERC-721 Approval(owner, approved, tokenId) log.
	// Clearing an approval uses the zero address as approved.
	LogApproval LogKind = "Approval"
)

// Erc721Log is the standard-shaped log emitted next to every state-mutating
// domain event, because external indexers depend on both streams.
type Erc721Log struct {
	Id           uint64
	CollectionId tokens.CollectionId
	TokenId      tokens.TokenId
	Kind         LogKind
	From         tokens.AccountId
	To           tokens.AccountId
	CreatedAt    time.Time
}
