package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/magictales/server/internal/domain"
	"github.com/magictales/server/internal/storage"
)

// DocumentKey is the single blob holding the lead list.
const DocumentKey = "petsona/leads.json"

// ErrInvalidEmail rejects leads without a plausible address.
var ErrInvalidEmail = errors.New("leads: invalid email")

// Store keeps all captured leads in one JSON document on the blob store,
// newest first. Appends are a read-modify-write of the whole document; lead
// volume is storefront-scale, so the document stays small.
type Store struct {
	blobs  storage.BlobStore
	logger zerolog.Logger
	now    func() time.Time
}

// NewStore wires the lead store over a blob collaborator.
func NewStore(blobs storage.BlobStore, logger zerolog.Logger) *Store {
	return &Store{blobs: blobs, logger: logger, now: time.Now}
}

// SaveResult reports what an Append did.
type SaveResult struct {
	Lead      domain.Lead
	Existed   bool
	Size      int
	PublicURL string
}

// Append validates, normalizes and prepends a lead, then writes the document
// back. A corrupt or missing document starts a fresh array rather than
// failing the capture.
func (s *Store) Append(ctx context.Context, lead domain.Lead) (*SaveResult, error) {
	lead.Email = domain.NormalizeEmail(lead.Email)
	if lead.Email == "" {
		return nil, ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(lead.Email); err != nil {
		return nil, ErrInvalidEmail
	}
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	lead.Consent.Processing = true
	if lead.Meta.Timestamp.IsZero() {
		lead.Meta.Timestamp = s.now().UTC()
	}

	current, existed, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	next := append([]domain.Lead{lead}, current...)

	encoded, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("leads: encode document: %w", err)
	}
	url, err := s.blobs.Put(ctx, DocumentKey, encoded, "application/json; charset=utf-8")
	if err != nil {
		return nil, fmt.Errorf("leads: write document: %w", err)
	}

	s.logger.Info().Str("lead_id", lead.ID).Int("total", len(next)).Msg("lead stored")
	return &SaveResult{Lead: lead, Existed: existed, Size: len(next), PublicURL: url}, nil
}

// List returns all leads, newest first.
func (s *Store) List(ctx context.Context) ([]domain.Lead, error) {
	current, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(current, func(i, j int) bool {
		return current[i].Meta.Timestamp.After(current[j].Meta.Timestamp)
	})
	return current, nil
}

func (s *Store) load(ctx context.Context) ([]domain.Lead, bool, error) {
	raw, err := s.blobs.Get(ctx, DocumentKey)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("leads: read document: %w", err)
	}
	var current []domain.Lead
	if err := json.Unmarshal(raw, &current); err != nil {
		// Corrupt document: start over instead of losing the capture.
		s.logger.Warn().Err(err).Msg("leads document unreadable, starting fresh")
		return nil, true, nil
	}
	return current, true, nil
}
