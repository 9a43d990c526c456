package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func logHandlers() repository.ModelHandlers[*logRecord] {
	return repository.ModelHandlers[*logRecord]{
		NewRecord: func() *logRecord {
			return &logRecord{}
		},
		GetID: func(record *logRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *logRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *logRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

// parseUUID tolerates prefixed attempt ids: anything that is not a bare
// UUID maps to uuid.Nil. Writes bypass the repository's create path so
// caller-assigned ids are never regenerated.
func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
