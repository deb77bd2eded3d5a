package firestore

import (
	"errors"
	"fmt"
	"time"

	"github.com/amber-cafe/api/internal/platform/pagination"
)

// encodeListToken packs a createdAt/docID cursor into an opaque page token.
func encodeListToken(createdAt time.Time, docID string) string {
	token, err := pagination.EncodeToken(pagination.Cursor{
		StartAfter: []any{createdAt.UTC().Format(time.RFC3339Nano), docID},
	})
	if err != nil {
		return ""
	}
	return token
}

// decodeListToken reverses encodeListToken.
func decodeListToken(token string) (time.Time, string, error) {
	cursor, err := pagination.DecodeToken(token)
	if err != nil {
		return time.Time{}, "", err
	}
	if len(cursor.StartAfter) != 2 {
		return time.Time{}, "", errors.New("malformed page token")
	}
	rawTS, tsOK := cursor.StartAfter[0].(string)
	docID, idOK := cursor.StartAfter[1].(string)
	if !tsOK || !idOK || rawTS == "" || docID == "" {
		return time.Time{}, "", errors.New("malformed page token")
	}
	ts, err := time.Parse(time.RFC3339Nano, rawTS)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("malformed page token: %w", err)
	}
	return ts, docID, nil
}
