// Package ids generates prefixed identifiers for persisted entities,
// e.g. "rec_4f9d..." for records or "ast_91c2..." for assets. The
// prefix makes IDs self-describing in logs and API payloads.
package ids

import "github.com/google/uuid"

func New(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
