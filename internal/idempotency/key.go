// Package idempotency formats the deterministic present ids that make the
// mailbox workflows safe to retry. The game client reads these ids, so the
// layout must stay compatible with presents already written by the site.
package idempotency

import (
	"fmt"
	"strconv"
	"time"

	"arcstore-api/pkg/uid"
)

// Kind identifies the workflow a key belongs to.
type Kind string

const (
	KindExchange   Kind = "残片兑换"
	KindBankruptcy Kind = "破产申请"
	KindGift       Kind = "礼物_"
)

// Key is the identity of one present in a deterministic workflow.
// Part distinguishes the two halves of a paired present (1 and 2); it is 0 for
// single-present workflows. Peer is the counterparty user for gifts.
type Key struct {
	Kind   Kind
	Part   int
	UserID int64
	Peer   int64
}

// String returns the present id.
func (k Key) String() string {
	switch k.Kind {
	case KindGift:
		return fmt.Sprintf("%s%d_%d", k.Kind, k.UserID, k.Peer)
	default:
		if k.Part > 0 {
			return string(k.Kind) + strconv.Itoa(k.Part) + strconv.FormatInt(k.UserID, 10)
		}
		return string(k.Kind) + strconv.FormatInt(k.UserID, 10)
	}
}

// Pair returns the first and second halves of a two-present workflow.
func Pair(kind Kind, userID int64) (Key, Key) {
	return Key{Kind: kind, Part: 1, UserID: userID}, Key{Kind: kind, Part: 2, UserID: userID}
}

// Gift returns the key of a gift from sender to recipient.
func Gift(senderID, recipientID int64) Key {
	return Key{Kind: KindGift, UserID: senderID, Peer: recipientID}
}

// OrderID returns a unique purchase order id. Concurrent clicks within the
// same millisecond are separated by the random suffix.
func OrderID(userID int64, now time.Time) string {
	return fmt.Sprintf("store_%d_%d_%s", userID, now.UnixMilli(), uid.Short(8))
}
