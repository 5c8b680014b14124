package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	sessionCookieName = "planner_session"
	sessionTTL        = 7 * 24 * time.Hour
	timeLayout        = "2006-01-02T15:04:05.000Z"
)

var (
	errNoSession   = errors.New("no valid session")
	errBadPassword = errors.New("invalid password")
)

// Gate guards the document API behind one shared password. Sessions are
// rows in gate_sessions; the token travels as a cookie or a Bearer header.
// A Gate with no password hash lets every request through.
type Gate struct {
	db   *sql.DB
	hash []byte
	now  func() time.Time
}

func NewGate(db *sql.DB, passwordHash string) *Gate {
	return &Gate{db: db, hash: []byte(passwordHash), now: time.Now}
}

func (g *Gate) Enabled() bool { return len(g.hash) > 0 }

// Login checks password and opens a session.
func (g *Gate) Login(ctx context.Context, password string) (string, time.Time, error) {
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(password)); err != nil {
		return "", time.Time{}, errBadPassword
	}

	token, err := newToken()
	if err != nil {
		return "", time.Time{}, err
	}
	now := g.now().UTC()
	expires := now.Add(sessionTTL)
	_, err = g.db.ExecContext(ctx,
		`INSERT INTO gate_sessions (id, created_at, expires_at) VALUES (?, ?, ?)`,
		token, now.Format(timeLayout), expires.Format(timeLayout),
	)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("creating session: %w", err)
	}
	return token, expires, nil
}

func (g *Gate) Logout(ctx context.Context, token string) error {
	_, err := g.db.ExecContext(ctx, `DELETE FROM gate_sessions WHERE id = ?`, token)
	return err
}

// Check returns errNoSession unless token names a live session.
func (g *Gate) Check(ctx context.Context, token string) error {
	if token == "" {
		return errNoSession
	}
	var id string
	err := g.db.QueryRowContext(ctx,
		`SELECT id FROM gate_sessions WHERE id = ? AND expires_at > ?`,
		token, g.now().UTC().Format(timeLayout),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return errNoSession
	}
	return err
}

// PurgeExpired deletes sessions past their expiry.
func (g *Gate) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := g.db.ExecContext(ctx,
		`DELETE FROM gate_sessions WHERE expires_at <= ?`, g.now().UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (g *Gate) fromRequest(r *http.Request) error {
	return g.Check(r.Context(), sessionToken(r))
}

// sessionToken prefers the Bearer header, then the session cookie.
func sessionToken(r *http.Request) string {
	if token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found && token != "" {
		return token
	}
	if c, err := r.Cookie(sessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
