// Package mock provides an in-memory credential backend for tests and a
// read-only wrapper implementing dry-run mode.
package mock

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jschlyter/scoutnet2airkey/internal/domain/model"
	"github.com/jschlyter/scoutnet2airkey/internal/domain/port"
	"github.com/jschlyter/scoutnet2airkey/pkg/errors"
)

type credentialReaderWriter struct {
	mux         sync.Mutex
	credentials map[int]*model.Keyholder
}

func (m *credentialReaderWriter) FetchCredentials(ctx context.Context) (map[int]*model.Keyholder, []model.SkippedRecord, error) {
	m.mux.Lock()
	defer m.mux.Unlock()

	slog.DebugContext(ctx, "mock: fetching credentials", "count", len(m.credentials))

	credentials := make(map[int]*model.Keyholder, len(m.credentials))
	for memberNo, keyholder := range m.credentials {
		credentials[memberNo] = keyholder
	}
	return credentials, nil, nil
}

func (m *credentialReaderWriter) CreateCredential(ctx context.Context, keyholder *model.Keyholder) error {
	m.mux.Lock()
	defer m.mux.Unlock()

	if _, exists := m.credentials[keyholder.MemberNo]; exists {
		return errors.NewValidation(fmt.Sprintf("member %d already has a credential", keyholder.MemberNo))
	}

	slog.DebugContext(ctx, "mock: creating credential", "member_no", keyholder.MemberNo)
	m.credentials[keyholder.MemberNo] = keyholder
	return nil
}

func (m *credentialReaderWriter) UpdateCredential(ctx context.Context, memberNo int, delta model.Delta) error {
	m.mux.Lock()
	defer m.mux.Unlock()

	keyholder, exists := m.credentials[memberNo]
	if !exists {
		return errors.NewNotFound(fmt.Sprintf("member %d has no credential", memberNo))
	}

	slog.DebugContext(ctx, "mock: updating credential", "member_no", memberNo, "fields", len(delta))

	updated := *keyholder
	if change, ok := delta["first_name"]; ok {
		updated.FirstName = change.New
	}
	if change, ok := delta["last_name"]; ok {
		updated.LastName = change.New
	}
	if change, ok := delta["phone"]; ok {
		updated.Phone = change.New
	}
	if change, ok := delta["roles"]; ok {
		updated.Roles = nil
		if change.New != "" {
			updated.Roles = strings.Split(change.New, ",")
		}
	}
	m.credentials[memberNo] = &updated
	return nil
}

func (m *credentialReaderWriter) RevokeCredential(ctx context.Context, memberNo int) error {
	m.mux.Lock()
	defer m.mux.Unlock()

	if _, exists := m.credentials[memberNo]; !exists {
		return errors.NewNotFound(fmt.Sprintf("member %d has no credential", memberNo))
	}

	slog.DebugContext(ctx, "mock: revoking credential", "member_no", memberNo)
	delete(m.credentials, memberNo)
	return nil
}

// NewCredentialReaderWriter creates an empty in-memory credential backend.
func NewCredentialReaderWriter(seed ...*model.Keyholder) port.CredentialReaderWriter {
	credentials := make(map[int]*model.Keyholder, len(seed))
	for _, keyholder := range seed {
		credentials[keyholder.MemberNo] = keyholder
	}
	return &credentialReaderWriter{credentials: credentials}
}

// readOnly wraps a CredentialReaderWriter so that writes are logged but
// never applied. Used for --dry-run.
type readOnly struct {
	port.CredentialReader
}

func (r *readOnly) CreateCredential(ctx context.Context, keyholder *model.Keyholder) error {
	slog.InfoContext(ctx, "dry-run: would create credential",
		"member_no", keyholder.MemberNo,
		"name", keyholder.FullName())
	return nil
}

func (r *readOnly) UpdateCredential(ctx context.Context, memberNo int, delta model.Delta) error {
	slog.InfoContext(ctx, "dry-run: would update credential",
		"member_no", memberNo,
		"delta", delta)
	return nil
}

func (r *readOnly) RevokeCredential(ctx context.Context, memberNo int) error {
	slog.InfoContext(ctx, "dry-run: would revoke credential",
		"member_no", memberNo)
	return nil
}

// ReadOnly wraps target so reads pass through and writes become no-ops.
func ReadOnly(target port.CredentialReaderWriter) port.CredentialReaderWriter {
	return &readOnly{CredentialReader: target}
}
