package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrNotRegistered is returned when no email/PIN pair is stored locally.
	ErrNotRegistered = errors.New("no email/pin was registered, use register to store the pin you created at the website")
	// ErrPINExpired is returned when the API reports an expired PIN.
	ErrPINExpired = errors.New("PIN has expired, please re-register it from https://hydrogen.princeton.edu/pin")
	// ErrUnauthorized is returned when the API rejects the stored PIN.
	ErrUnauthorized = errors.New("no registered PIN")
)

// ExpiresLayout is the layout of the "expires" field of a login answer.
const ExpiresLayout = "2006/01/02 15:04:05 GMT-0000"

// PIN is the email/PIN pair registered by the current user.
type PIN struct {
	Email string `json:"email"`
	PIN   string `json:"pin"`
}

// Token is the answer of the login endpoint.
type Token struct {
	Email    string `json:"email,omitempty"`
	Expires  string `json:"expires,omitempty"`
	JWTToken string `json:"jwt_token"`
	UserID   string `json:"user_id,omitempty"`
}

// DefaultPINFile returns ~/.hydrodata/pin.json.
func DefaultPINFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".hydrodata", "pin.json")
	}
	return filepath.Join(home, ".hydrodata", "pin.json")
}

// LoadPIN reads the email/PIN pair stored at path.
func LoadPIN(path string) (PIN, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return PIN{}, fmt.Errorf("%w: %v", ErrNotRegistered, err)
	}
	var p PIN
	if err := json.Unmarshal(b, &p); err != nil {
		return PIN{}, fmt.Errorf("%w: %v", ErrNotRegistered, err)
	}
	if p.Email == "" || p.PIN == "" {
		return PIN{}, fmt.Errorf("%w: %s is incomplete", ErrNotRegistered, path)
	}
	return p, nil
}

// RegisterPIN stores an email/PIN pair at path, readable by the owner only.
func RegisterPIN(path, email, pin string) error {
	if email == "" || pin == "" {
		return errors.New("email and pin are required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := json.Marshal(PIN{Email: email, PIN: pin})
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// Login exchanges the registered email/PIN pair for a bearer token.
func (c *Client) Login(ctx context.Context) (string, error) {
	pin, err := LoadPIN(c.pinFile)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("pin", pin.PIN)
	q.Set("email", pin.Email)
	u := c.baseURL + pinsPath + "?" + q.Encode()

	status, body, err := c.get(ctx, u, nil, c.loginTimeout)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("%w for email %q, see documentation to register with a URL (status %d)", ErrUnauthorized, pin.Email, status)
	}

	var tok Token
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if tok.Expires != "" {
		expires, err := time.Parse(ExpiresLayout, tok.Expires)
		if err != nil {
			return "", fmt.Errorf("parse expires %q: %w", tok.Expires, err)
		}
		if c.now().After(expires) {
			return "", ErrPINExpired
		}
	}
	if tok.JWTToken == "" {
		return "", errors.New("login response carries no jwt_token")
	}
	c.logger.Debug("hydrodata login", "email", pin.Email, "userId", tok.UserID, "expires", tok.Expires)
	return tok.JWTToken, nil
}
