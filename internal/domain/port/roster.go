package port

import (
	"context"

	"github.com/jschlyter/scoutnet2airkey/internal/domain/model"
)

// RosterReader produces the desired state: everyone who should hold a key
// according to the membership registry. Records that fail validation are
// excluded from the map and returned as skipped.
type RosterReader interface {
	FetchKeyholders(ctx context.Context) (map[int]*model.Keyholder, []model.SkippedRecord, error)
}
