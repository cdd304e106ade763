package airkey

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/jschlyter/scoutnet2airkey/internal/domain/model"
	"github.com/jschlyter/scoutnet2airkey/internal/domain/port"
	"github.com/jschlyter/scoutnet2airkey/pkg/errors"
	"github.com/jschlyter/scoutnet2airkey/pkg/httpclient"
)

const personPageSize = 100

// Config holds the Airkey API configuration.
type Config struct {
	APIEndpoint  string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

type credentialReaderWriter struct {
	config       Config
	httpClient   *httpclient.Client
	tokenManager *TokenManager

	// personIDs maps member numbers to Airkey person IDs, filled during
	// FetchCredentials and read by concurrent update/revoke calls.
	personIDsMux sync.RWMutex
	personIDs    map[int]int64
}

// FetchCredentials pages through all Airkey persons and maps them onto
// the observed keyholder state. Persons without a parseable member number
// in their secondary identification are excluded and reported as skipped.
func (c *credentialReaderWriter) FetchCredentials(ctx context.Context) (map[int]*model.Keyholder, []model.SkippedRecord, error) {

	keyholders := make(map[int]*model.Keyholder)
	var skipped []model.SkippedRecord

	personIDs := make(map[int]int64)

	offset := 0
	for {
		page, err := c.listPersons(ctx, offset, personPageSize)
		if err != nil {
			return nil, nil, err
		}

		for _, person := range page.Persons {
			memberNo := person.memberNo()
			if memberNo == 0 {
				slog.WarnContext(ctx, "Airkey person without member number, skipping",
					"person_id", person.ID,
					"name", person.FirstName+" "+person.LastName)
				skipped = append(skipped, model.SkippedRecord{
					System: "airkey",
					Key:    fmt.Sprintf("%d", person.ID),
					Reason: "missing or invalid member number in secondary identification",
				})
				continue
			}

			keyholder, errKeyholder := model.NewKeyholder(memberNo,
				person.FirstName, person.LastName, person.PhoneNumber, person.roles())
			if errKeyholder != nil {
				slog.WarnContext(ctx, "malformed Airkey person excluded from observed state",
					"person_id", person.ID,
					"member_no", memberNo,
					"error", errKeyholder)
				skipped = append(skipped, model.SkippedRecord{
					System: "airkey",
					Key:    fmt.Sprintf("%d", person.ID),
					Reason: errKeyholder.Error(),
				})
				continue
			}

			keyholders[memberNo] = keyholder
			personIDs[memberNo] = person.ID
		}

		offset += len(page.Persons)
		if len(page.Persons) == 0 || offset >= page.TotalCount {
			break
		}
	}

	c.personIDsMux.Lock()
	c.personIDs = personIDs
	c.personIDsMux.Unlock()

	slog.InfoContext(ctx, "fetched observed state from Airkey",
		"persons", len(keyholders),
		"skipped", len(skipped),
	)

	return keyholders, skipped, nil
}

// CreateCredential creates a new Airkey person for the keyholder.
func (c *credentialReaderWriter) CreateCredential(ctx context.Context, keyholder *model.Keyholder) error {
	token, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		return err
	}

	person := personFromKeyholder(keyholder)

	var created Person
	_, err = httpclient.NewAPIRequest(c.httpClient,
		httpclient.WithMethod(http.MethodPost),
		httpclient.WithURL(c.config.APIEndpoint+"/persons"),
		httpclient.WithBody(person),
		httpclient.WithToken(token),
		httpclient.WithDescription("Airkey create person"),
	).Call(ctx, &created)
	if err != nil {
		return err
	}

	if created.ID != 0 {
		c.personIDsMux.Lock()
		c.personIDs[keyholder.MemberNo] = created.ID
		c.personIDsMux.Unlock()
	}

	slog.InfoContext(ctx, "created Airkey person",
		"member_no", keyholder.MemberNo,
		"person_id", created.ID,
	)

	return nil
}

// UpdateCredential applies a field delta to the person holding the given
// member number.
func (c *credentialReaderWriter) UpdateCredential(ctx context.Context, memberNo int, delta model.Delta) error {
	personID, err := c.personID(memberNo)
	if err != nil {
		return err
	}

	token, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/persons/%d", c.config.APIEndpoint, personID)

	// Read-modify-write so unrelated fields survive the update.
	var person Person
	_, err = httpclient.NewAPIRequest(c.httpClient,
		httpclient.WithMethod(http.MethodGet),
		httpclient.WithURL(url),
		httpclient.WithToken(token),
		httpclient.WithDescription("Airkey get person"),
	).Call(ctx, &person)
	if err != nil {
		return err
	}

	person.applyDelta(delta)

	_, err = httpclient.NewAPIRequest(c.httpClient,
		httpclient.WithMethod(http.MethodPut),
		httpclient.WithURL(url),
		httpclient.WithBody(person),
		httpclient.WithToken(token),
		httpclient.WithDescription("Airkey update person"),
	).Call(ctx, nil)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "updated Airkey person",
		"member_no", memberNo,
		"person_id", personID,
		"fields", len(delta),
	)

	return nil
}

// RevokeCredential deletes the person holding the given member number,
// which revokes all keys assigned to them.
func (c *credentialReaderWriter) RevokeCredential(ctx context.Context, memberNo int) error {
	personID, err := c.personID(memberNo)
	if err != nil {
		return err
	}

	token, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/persons/%d", c.config.APIEndpoint, personID)

	_, err = httpclient.NewAPIRequest(c.httpClient,
		httpclient.WithMethod(http.MethodDelete),
		httpclient.WithURL(url),
		httpclient.WithToken(token),
		httpclient.WithDescription("Airkey delete person"),
	).Call(ctx, nil)
	if err != nil {
		return err
	}

	c.personIDsMux.Lock()
	delete(c.personIDs, memberNo)
	c.personIDsMux.Unlock()

	slog.InfoContext(ctx, "revoked Airkey person",
		"member_no", memberNo,
		"person_id", personID,
	)

	return nil
}

func (c *credentialReaderWriter) listPersons(ctx context.Context, offset, limit int) (*personList, error) {
	token, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		return nil, errors.NewServiceUnavailable("failed to authenticate against Airkey", err)
	}

	url := fmt.Sprintf("%s/persons?offset=%d&limit=%d", c.config.APIEndpoint, offset, limit)

	var page personList
	_, err = httpclient.NewAPIRequest(c.httpClient,
		httpclient.WithMethod(http.MethodGet),
		httpclient.WithURL(url),
		httpclient.WithToken(token),
		httpclient.WithDescription("Airkey list persons"),
	).Call(ctx, &page)
	if err != nil {
		return nil, errors.NewServiceUnavailable("failed to list Airkey persons", err)
	}

	return &page, nil
}

// personID resolves a member number to the Airkey person ID cached during
// the last fetch.
func (c *credentialReaderWriter) personID(memberNo int) (int64, error) {
	c.personIDsMux.RLock()
	defer c.personIDsMux.RUnlock()

	personID, ok := c.personIDs[memberNo]
	if !ok {
		return 0, errors.NewNotFound(fmt.Sprintf("no Airkey person known for member %d", memberNo))
	}
	return personID, nil
}

// NewCredentialReaderWriter creates a new Airkey-backed CredentialReaderWriter.
func NewCredentialReaderWriter(ctx context.Context, config Config, httpClient *httpclient.Client) (port.CredentialReaderWriter, error) {
	tokenManager, err := NewTokenManager(ctx, config.ClientID, config.ClientSecret, config.TokenURL, config.Scopes)
	if err != nil {
		return nil, err
	}

	return &credentialReaderWriter{
		config:       config,
		httpClient:   httpClient,
		tokenManager: tokenManager,
		personIDs:    make(map[int]int64),
	}, nil
}
