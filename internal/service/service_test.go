package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/komponente/internal/assets"
	"github.com/erazemk/komponente/internal/auth"
	"github.com/erazemk/komponente/internal/db"
	"github.com/erazemk/komponente/internal/model"
	"github.com/erazemk/komponente/internal/notify"
	"github.com/erazemk/komponente/internal/session"
	"github.com/erazemk/komponente/internal/store"
)

type env struct {
	DB        *sqlx.DB
	AssetDir  string
	Guard     *Guard
	Inventory *Inventory
	Ledger    *Ledger
	Taxonomy  *Taxonomy
	Users     *Users
	Reports   *Reports
	Contact   *Contact
	Outbox    *outbox

	Admin *model.Session
	User  *model.Session
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWithDB(t, db.NewTestDB(t))
}

func newEnvWithDB(t *testing.T, database *sqlx.DB) *env {
	t.Helper()

	dir := t.TempDir()
	local, err := assets.NewLocalStore(dir, "http://test.local")
	require.NoError(t, err)

	e := &env{DB: database, AssetDir: dir, Outbox: &outbox{}}
	e.Guard = &Guard{DB: database, Sessions: session.NewMemoryStore(), Secret: "test-secret", TTL: time.Hour}
	e.Inventory = &Inventory{DB: database, Assets: local}
	e.Ledger = &Ledger{DB: database}
	e.Taxonomy = &Taxonomy{DB: database}
	e.Users = &Users{DB: database, Guard: e.Guard}
	e.Reports = &Reports{Inventory: e.Inventory, Ledger: e.Ledger}
	e.Contact = &Contact{Sender: e.Outbox, To: "docente@example.com"}

	e.Admin = e.seedUser(t, "Docente", "admin", model.RoleAdmin)
	e.User = e.seedUser(t, "Ana", "ana", model.RoleUser)
	return e
}

// seedUser creates an account directly in the store and returns a session
// snapshot for it.
func (e *env) seedUser(t *testing.T, displayName, username, role string) *model.Session {
	t.Helper()
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	u, err := store.CreateUser(context.Background(), e.DB, displayName, username, hash, role)
	require.NoError(t, err)
	return &model.Session{ID: "seed-" + username, UserID: u.ID, DisplayName: u.DisplayName, Username: u.Username, Role: u.Role}
}

func (e *env) component(t *testing.T, name string, qty int) *model.Component {
	t.Helper()
	c, err := e.Inventory.Create(context.Background(), e.Admin, model.ComponentInput{Name: name, Quantity: qty}, nil)
	require.NoError(t, err)
	return c
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{10, 200, 30, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// outbox is a notify.Sender that keeps messages in memory.
type outbox struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (o *outbox) Send(_ context.Context, m notify.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, m)
	return nil
}

// brokenAssets fails every call.
type brokenAssets struct{}

func (brokenAssets) Upload(context.Context, []byte, string) (string, error) {
	return "", errors.New("bucket unavailable")
}

func (brokenAssets) Delete(context.Context, string) error {
	return errors.New("bucket unavailable")
}
