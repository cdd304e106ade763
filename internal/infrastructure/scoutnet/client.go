package scoutnet

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jschlyter/scoutnet2airkey/internal/domain/model"
	"github.com/jschlyter/scoutnet2airkey/internal/domain/port"
	"github.com/jschlyter/scoutnet2airkey/pkg/constants"
	"github.com/jschlyter/scoutnet2airkey/pkg/errors"
	"github.com/jschlyter/scoutnet2airkey/pkg/httpclient"
)

// Config holds the Scoutnet API configuration.
type Config struct {
	APIEndpoint   string
	APIID         string
	APIKey        string
	KeyRoles      []string
	CountryPrefix string
}

type rosterReader struct {
	config     Config
	httpClient *httpclient.Client
	snapshots  port.SnapshotReaderWriter
	offline    bool
}

// Option configures the roster reader.
type Option func(*rosterReader)

// WithSnapshots stores each raw memberlist response in the given store.
func WithSnapshots(snapshots port.SnapshotReaderWriter) Option {
	return func(r *rosterReader) {
		r.snapshots = snapshots
	}
}

// WithOffline reads the memberlist from the last stored snapshot instead
// of calling the Scoutnet API.
func WithOffline(offline bool) Option {
	return func(r *rosterReader) {
		r.offline = offline
	}
}

// FetchKeyholders fetches the memberlist and reduces it to the desired
// keyholder set: members with at least one role, at least one of the
// configured key-granting roles, and a mobile phone number.
func (r *rosterReader) FetchKeyholders(ctx context.Context) (map[int]*model.Keyholder, []model.SkippedRecord, error) {

	raw, err := r.fetchMemberlist(ctx)
	if err != nil {
		return nil, nil, err
	}

	members, skipped, err := parseMemberlist(raw, r.config.CountryPrefix)
	if err != nil {
		return nil, nil, errors.NewUnexpected("failed to parse Scoutnet memberlist", err)
	}

	keyRoles := make(map[string]struct{}, len(r.config.KeyRoles))
	for _, role := range r.config.KeyRoles {
		keyRoles[role] = struct{}{}
	}

	keyholders := make(map[int]*model.Keyholder)
	for memberNo, member := range members {
		if !member.Roles.HasAny() {
			continue
		}

		matching := member.Roles.Matching(keyRoles)
		if len(matching) == 0 {
			continue
		}

		if member.Phone == "" {
			slog.DebugContext(ctx, "keyholder candidate has no mobile phone, skipping",
				"member_no", memberNo)
			continue
		}

		keyholder, errKeyholder := model.NewKeyholder(memberNo, member.FirstName, member.LastName, member.Phone, matching)
		if errKeyholder != nil {
			slog.WarnContext(ctx, "malformed member record excluded from desired state",
				"member_no", memberNo,
				"error", errKeyholder)
			skipped = append(skipped, model.SkippedRecord{
				System: "scoutnet",
				Key:    strconv.Itoa(memberNo),
				Reason: errKeyholder.Error(),
			})
			continue
		}

		keyholders[memberNo] = keyholder
	}

	slog.InfoContext(ctx, "fetched desired state from Scoutnet",
		"members", len(members),
		"keyholders", len(keyholders),
		"skipped", len(skipped),
		"offline", r.offline,
	)

	return keyholders, skipped, nil
}

// fetchMemberlist returns the raw memberlist JSON, either from the API or
// from the last snapshot in offline mode. Online responses are written back
// to the snapshot store on a best-effort basis.
func (r *rosterReader) fetchMemberlist(ctx context.Context) ([]byte, error) {

	if r.offline {
		if r.snapshots == nil {
			return nil, errors.NewValidation("offline mode requires a snapshot store")
		}
		raw, err := r.snapshots.LoadSnapshot(ctx, constants.MemberlistSnapshotName)
		if err != nil {
			return nil, errors.NewServiceUnavailable("failed to load memberlist snapshot", err)
		}
		return raw, nil
	}

	url := fmt.Sprintf("%s/group/memberlist", r.config.APIEndpoint)

	var raw json.RawMessage
	_, err := httpclient.NewAPIRequest(r.httpClient,
		httpclient.WithMethod(http.MethodGet),
		httpclient.WithURL(url),
		httpclient.WithBasicAuth(r.config.APIID, r.config.APIKey),
		httpclient.WithDescription("Scoutnet memberlist"),
	).Call(ctx, &raw)
	if err != nil {
		return nil, errors.NewServiceUnavailable("failed to fetch Scoutnet memberlist", err)
	}

	if r.snapshots != nil {
		if errSave := r.snapshots.SaveSnapshot(ctx, constants.MemberlistSnapshotName, raw); errSave != nil {
			slog.WarnContext(ctx, "failed to store memberlist snapshot", "error", errSave)
		}
	}

	return raw, nil
}

// NewRosterReader creates a new Scoutnet-backed RosterReader.
func NewRosterReader(config Config, httpClient *httpclient.Client, options ...Option) port.RosterReader {
	reader := &rosterReader{
		config:     config,
		httpClient: httpClient,
	}
	for _, option := range options {
		option(reader)
	}
	return reader
}
