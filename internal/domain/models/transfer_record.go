// internal/domain/models/transfer_record.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transfer reasons.
const (
	TransferAutoUnresponsive = "auto_unresponsive"
	TransferManual           = "manual"
	TransferClaimed          = "claimed"
)

// TransferRecord is one row of the append-only transfer ledger.
type TransferRecord struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MemberID              primitive.ObjectID `bson:"member_id" json:"member_id"`
	FromCommitteeMemberID primitive.ObjectID `bson:"from_committee_member_id" json:"from_committee_member_id"`
	ToCommitteeMemberID   primitive.ObjectID `bson:"to_committee_member_id" json:"to_committee_member_id"`
	Reason                string             `bson:"reason" json:"reason"`
	BatchID               string             `bson:"batch_id,omitempty" json:"batch_id,omitempty"`
	TransferredAt         time.Time          `bson:"transferred_at" json:"transferred_at"`
}
