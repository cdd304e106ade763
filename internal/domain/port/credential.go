package port

import (
	"context"

	"github.com/jschlyter/scoutnet2airkey/internal/domain/model"
)

// CredentialReader produces the observed state: everyone who currently
// holds a credential in the access-control system.
type CredentialReader interface {
	FetchCredentials(ctx context.Context) (map[int]*model.Keyholder, []model.SkippedRecord, error)
}

// CredentialWriter applies individual reconciliation operations against
// the access-control system. Each call returns a terminal success or
// failure; retries happen inside the adapter.
type CredentialWriter interface {
	CreateCredential(ctx context.Context, keyholder *model.Keyholder) error
	UpdateCredential(ctx context.Context, memberNo int, delta model.Delta) error
	RevokeCredential(ctx context.Context, memberNo int) error
}

// CredentialReaderWriter composes read and write access to the
// access-control system.
type CredentialReaderWriter interface {
	CredentialReader
	CredentialWriter
}
