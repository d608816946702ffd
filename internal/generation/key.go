package generation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Key computes the deterministic fingerprint of a generation's inputs. It is
// the single definition of parameter identity, used both for audit on the
// Generation record and for the orchestrator's advisory duplicate check.
//
// The fingerprint is intentionally exact: cities and interests hash in
// request order and budgets are not normalized, so a reordered city list is a
// different key. The dedup built on it is best-effort, not a lock.
func Key(params Params) string {
	h := sha256.New()
	fmt.Fprintf(h, "cities=%s\n", strings.Join(params.Cities, ","))
	fmt.Fprintf(h, "dates=%s..%s\n",
		params.StartDate.UTC().Format("2006-01-02"),
		params.EndDate.UTC().Format("2006-01-02"))
	fmt.Fprintf(h, "budget=%d-%d %s\n", params.MinBudget, params.MaxBudget, params.Currency)
	fmt.Fprintf(h, "interests=%s\n", strings.Join(params.Interests, ","))
	return hex.EncodeToString(h.Sum(nil))
}
