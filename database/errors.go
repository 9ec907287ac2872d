package database

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/voicegate/errors"
)

// SQLite reports lock contention and lost handles only as message text.
var (
	busyMarkers      = []string{"database is locked", "sqlite_busy", "database table is locked"}
	transientMarkers = []string{"driver: bad connection", "unable to open database file"}
)

func containsAny(err error, markers []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range markers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// IsBusyError reports whether another connection held the SQLite lock.
func IsBusyError(err error) bool {
	return containsAny(err, busyMarkers)
}

// IsRetryableError reports lock contention and transient connection loss.
// Open retries on these while the voice store file is being created.
func IsRetryableError(err error) bool {
	return IsBusyError(err) || containsAny(err, transientMarkers)
}

// IsNotFoundError reports gorm's record-not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// FromDatabase converts a database error for resource into an AppError:
// 404 when the row is missing, retryable 503 when SQLite is busy and 500
// otherwise.
func FromDatabase(err error, resource string) *apperrors.AppError {
	switch {
	case err == nil:
		return nil
	case IsNotFoundError(err):
		return apperrors.NotFound(resource, "")
	case IsRetryableError(err):
		return apperrors.New(apperrors.ErrCodeDatabaseError, resource+" storage is busy, please try again", http.StatusServiceUnavailable).
			WithCause(err)
	default:
		return apperrors.DatabaseError(err)
	}
}
