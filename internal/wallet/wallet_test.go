package wallet

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/xefootball/backend/internal/errs"
)

func TestRowErrMapsMissingRowToNotFound(t *testing.T) {
	if err := rowErr(sql.ErrNoRows, "user 7"); err != errs.ErrNotFound {
		t.Errorf("missing row: got %v, want ErrNotFound", err)
	}
}

// A broken connection must not surface as "not found"; otherwise an
// outage would answer 404 instead of a server error.
func TestRowErrKeepsStorageFailuresDistinct(t *testing.T) {
	cause := errors.New("driver: bad connection")
	err := rowErr(cause, "deposit request 3")

	if errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("storage failure reported as ErrNotFound: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("original cause lost: %v", err)
	}
}
