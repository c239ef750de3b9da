package fixtures

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a fixture does not exist in the replay source.
// Retrying will not help.
var ErrNotFound = errors.New("fixture not found")

// Store provides named JSON fixture files.
// Implementations open and close their handles within each call.
type Store interface {
	// ReadJSONMock returns the raw content of fixture name, or ErrNotFound.
	ReadJSONMock(ctx context.Context, name string) ([]byte, error)

	// WriteJSONMock replaces fixture name with data.
	WriteJSONMock(ctx context.Context, name string, data []byte) error
}

// AccountKey names the fixture holding windowed operations of one account.
func AccountKey(familyCode, accountIdx, suffix string) string {
	return fmt.Sprintf("account-%s-%s_operations_%s.json", familyCode, accountIdx, suffix)
}

// CardKey names the fixture holding deferred operations of one card.
func CardKey(cardIdx, suffix string) string {
	return fmt.Sprintf("card-%s_operations_%s.json", cardIdx, suffix)
}
