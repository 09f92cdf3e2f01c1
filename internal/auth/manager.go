// Package auth handles authentication for the roster HTTP API: static
// API keys from configuration plus JWT session tokens for users.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// User represents an authenticated API user
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"` // "admin" or "viewer"
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Claims are the JWT claims issued for a user session
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// LoginResponse is returned on successful login
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
	User      User   `json:"user"`
}

// Manager handles authentication and authorization
type Manager struct {
	mu        sync.RWMutex
	jwtSecret string
	apiKeys   map[string]bool   // configured static keys
	users     map[string]*User  // userID -> User
	passwords map[string]string // userID -> bcrypt hash
	tokenTTL  time.Duration
}

// NewManager creates a new auth manager. The configured API keys are
// accepted as-is via the X-API-Key header; users authenticate with
// username/password and receive a JWT.
func NewManager(jwtSecret string, apiKeys []string) *Manager {
	if jwtSecret == "" {
		jwtSecret = generateRandomSecret(32)
		log.Printf("Generated random JWT secret for session (not persistent)")
	}

	m := &Manager{
		jwtSecret: jwtSecret,
		apiKeys:   make(map[string]bool, len(apiKeys)),
		users:     make(map[string]*User),
		passwords: make(map[string]string),
		tokenTTL:  24 * time.Hour,
	}
	for _, key := range apiKeys {
		if key != "" {
			m.apiKeys[key] = true
		}
	}
	return m
}

// AddUser registers a user with a password.
func (m *Manager) AddUser(username, password, role string) (*User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			return nil, fmt.Errorf("user %s already exists", username)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:        "user-" + generateRandomSecret(8),
		Username:  username,
		Role:      role,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	m.users[user.ID] = user
	m.passwords[user.ID] = string(hash)
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (m *Manager) Login(username, password string) (*LoginResponse, error) {
	m.mu.RLock()
	var user *User
	for _, u := range m.users {
		if u.Username == username && u.IsActive {
			user = u
			break
		}
	}
	var passwordHash string
	if user != nil {
		passwordHash = m.passwords[user.ID]
	}
	m.mu.RUnlock()

	if user == nil || passwordHash == "" {
		return nil, fmt.Errorf("invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid username or password")
	}

	token, err := m.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		Token:     token,
		ExpiresIn: int64(m.tokenTTL.Seconds()),
		User:      *user,
	}, nil
}

// GenerateToken creates a JWT token for a user
func (m *Manager) GenerateToken(user *User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "roster",
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.jwtSecret))
}

// ValidateToken validates a JWT token and returns its claims
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	return claims, nil
}

// ValidateAPIKey reports whether the given static API key is configured.
func (m *Manager) ValidateAPIKey(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.apiKeys[key]
}

// HasAPIKeys reports whether any static API keys are configured.
func (m *Manager) HasAPIKeys() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.apiKeys) > 0
}

// HasUsers reports whether any login users are registered.
func (m *Manager) HasUsers() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users) > 0
}

func generateRandomSecret(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}
