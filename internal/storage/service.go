package storage

import (
	"context"
	"net/url"
	"path"
	"strings"
	"time"

	"backend-heggeo/internal/db"

	"github.com/google/uuid"
)

const uploadWindow = 15 * time.Minute

type Object struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Kind      string    `json:"kind"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	db      db.Querier
	baseURL string
	now     func() time.Time
}

func NewService(db db.Querier, baseURL string) *Service {
	return &Service{db: db, baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

func (s *Service) SaveObject(ctx context.Context, userID, url, kind string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO storage_objects (id, user_id, url, kind)
		VALUES ($1,$2,$3,$4)
	`, id, userID, url, kind)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Upload registers an object under the owner's prefix and returns the URL the
// client uploads to within the upload window.
func (s *Service) Upload(ctx context.Context, owner, fileName, kind string) (Object, error) {
	objectURL := ObjectURL(s.baseURL, owner, fileName)
	id, err := s.SaveObject(ctx, owner, objectURL, kind)
	if err != nil {
		return Object{}, err
	}
	return Object{
		ID:        id,
		URL:       objectURL,
		Kind:      kind,
		ExpiresAt: s.now().Add(uploadWindow),
	}, nil
}

func ObjectURL(baseURL, owner, fileName string) string {
	name := path.Base("/" + fileName)
	if name == "/" || name == "." {
		name = "upload"
	}
	return strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(owner) + "/" + url.PathEscape(name)
}
