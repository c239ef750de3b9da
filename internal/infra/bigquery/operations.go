package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/bank-operations/internal/domain"
	"github.com/google/uuid"
)

// Source values stored in the source column.
const (
	SourceAccount = "ACCOUNT"
	SourceCard    = "CARD"
)

const defaultCurrency = "EUR"

// operationNamespace seeds the deterministic operation ids.
var operationNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://www.credit-agricole.fr/operations"))

type OperationRow struct {
	OperationID string `bigquery:"operation_id"` // REQUIRED
	RetrievalID string `bigquery:"retrieval_id"` // REQUIRED

	Source     string              `bigquery:"source"`      // REQUIRED: ACCOUNT or CARD
	FamilyCode string              `bigquery:"family_code"` // REQUIRED
	AccountIdx string              `bigquery:"account_idx"` // REQUIRED
	CardIdx    bigquery.NullString `bigquery:"card_idx"`    // NULLABLE

	OperationDate civil.Date `bigquery:"operation_date"` // REQUIRED
	Label         string     `bigquery:"label"`          // REQUIRED
	Amount        *big.Rat   `bigquery:"amount"`         // REQUIRED NUMERIC
	Currency      string     `bigquery:"currency"`       // REQUIRED

	Raw bigquery.NullJSON `bigquery:"raw"` // NULLABLE JSON

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// ExportMeta describes where a batch of operations came from.
type ExportMeta struct {
	RetrievalID string
	FamilyCode  string
	AccountIdx  string
	// CardIdx is set for deferred-card operations only.
	CardIdx  string
	Currency string
	Now      time.Time
}

// Source returns SourceCard when the batch belongs to a card.
func (m ExportMeta) Source() string {
	if m.CardIdx != "" {
		return SourceCard
	}
	return SourceAccount
}

// ToOperationRows maps operations to rows. The operation id is derived from
// the origin and the raw entry, so exporting the same entry twice yields
// the same id.
func ToOperationRows(ops *domain.Operations, meta ExportMeta) []*OperationRow {
	if meta.RetrievalID == "" {
		meta.RetrievalID = uuid.NewString()
	}
	if meta.Currency == "" {
		meta.Currency = defaultCurrency
	}
	if meta.Now.IsZero() {
		meta.Now = time.Now()
	}

	rows := make([]*OperationRow, 0, ops.Len())
	for _, op := range ops.All() {
		raw := op.Raw()
		row := &OperationRow{
			OperationID:   OperationID(meta, raw),
			RetrievalID:   meta.RetrievalID,
			Source:        meta.Source(),
			FamilyCode:    meta.FamilyCode,
			AccountIdx:    meta.AccountIdx,
			OperationDate: op.Date(),
			Label:         op.Label(),
			Amount:        op.Amount().Rat(),
			Currency:      meta.Currency,
			Raw:           bigquery.NullJSON{JSONVal: string(raw), Valid: len(raw) > 0},
			CreatedTS:     meta.Now,
		}
		if meta.CardIdx != "" {
			row.CardIdx = bigquery.NullString{StringVal: meta.CardIdx, Valid: true}
		}
		rows = append(rows, row)
	}
	return rows
}

// OperationID returns the deterministic id of a raw entry.
func OperationID(meta ExportMeta, raw []byte) string {
	key := make([]byte, 0, len(raw)+32)
	key = append(key, meta.Source()...)
	key = append(key, '|')
	key = append(key, meta.FamilyCode...)
	key = append(key, '|')
	key = append(key, meta.AccountIdx...)
	key = append(key, '|')
	key = append(key, meta.CardIdx...)
	key = append(key, '|')
	key = append(key, raw...)
	return uuid.NewSHA1(operationNamespace, key).String()
}
