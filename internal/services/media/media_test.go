package media

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/findosh/audioguide/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type principal struct{ user *models.User }

func (p principal) CurrentUser(context.Context) *models.User { return p.user }

var signedIn = principal{user: &models.User{ID: "u1"}}

func TestUpload_RequiresAuth(t *testing.T) {
	svc := NewService(NewDataURIStore(), "https://cdn.example.com", nil)

	_, err := svc.Upload(context.Background(), principal{}, "guides", "covers", "a.jpg", "image/jpeg", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, ErrAuthRequired)

	_, err = svc.Upload(context.Background(), nil, "guides", "covers", "a.jpg", "image/jpeg", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestUpload_Validation(t *testing.T) {
	svc := NewService(NewDataURIStore(), "https://cdn.example.com", nil)

	_, err := svc.Upload(context.Background(), signedIn, "", "covers", "a.jpg", "image/jpeg", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Upload(context.Background(), signedIn, "guides", "covers", "a.jpg", "image/jpeg", strings.NewReader(""), 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpload_DataURI(t *testing.T) {
	store := NewDataURIStore()
	svc := NewService(store, "https://cdn.example.com", nil)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }

	obj, err := svc.Upload(context.Background(), signedIn, "guides", "/covers/", "Colosseum.JPG", "image/jpeg", strings.NewReader("hello"), 5)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^covers/1700000000000_[0-9a-z]+\.jpg$`), obj.Path)
	assert.Equal(t, "data:image/jpeg;base64,aGVsbG8=", obj.URL)
	assert.Equal(t, obj.URL, svc.PublicURL("guides", obj.Path))
	assert.Equal(t, 1, store.Len())
}

func TestUpload_NamesAreUnique(t *testing.T) {
	svc := NewService(NewDataURIStore(), "", nil)

	a, err := svc.Upload(context.Background(), signedIn, "guides", "audio", "stop.mp3", "audio/mpeg", strings.NewReader("a"), 1)
	require.NoError(t, err)
	b, err := svc.Upload(context.Background(), signedIn, "guides", "audio", "stop.mp3", "audio/mpeg", strings.NewReader("b"), 1)
	require.NoError(t, err)

	assert.NotEqual(t, a.Path, b.Path)
}

func TestPublicURL_Fallback(t *testing.T) {
	svc := NewService(NewDataURIStore(), "https://cdn.example.com/", nil)

	assert.Equal(t,
		"https://cdn.example.com/storage/v1/object/public/guides/covers/missing.jpg",
		svc.PublicURL("guides", "covers/missing.jpg"))
}

func TestClear_DropsLocalObjects(t *testing.T) {
	store := NewDataURIStore()
	svc := NewService(store, "https://cdn.example.com", nil)

	obj, err := svc.Upload(context.Background(), signedIn, "guides", "covers", "a.png", "image/png", strings.NewReader("x"), 1)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(context.Background()))

	assert.Equal(t, 0, store.Len())
	assert.True(t, strings.HasPrefix(svc.PublicURL("guides", obj.Path), "https://cdn.example.com/"))
}

func TestS3(t *testing.T) {
	_, err := NewS3Client(S3Config{})
	assert.Error(t, err)

	client, err := NewS3Client(S3Config{Endpoint: "localhost:9000", AccessKey: "minio", SecretKey: "minio123"})
	require.NoError(t, err)

	store := NewS3Store(client)
	_, ok := store.URL("guides", "covers/a.jpg")
	assert.False(t, ok)

	svc := NewService(store, "https://cdn.example.com", nil)
	assert.NoError(t, svc.Clear(context.Background()))
	assert.Equal(t, "https://cdn.example.com/storage/v1/object/public/guides/covers/a.jpg", svc.PublicURL("guides", "covers/a.jpg"))
}
