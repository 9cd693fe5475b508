// Copyright 2021 ecodeclub
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package adminauth authenticates the site administrators against the
// admins, admin_sessions and admin_audit_logs collections. Lockout
// bookkeeping lives in the backend and is reached through RPC.
package adminauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ecodeclub/erest"
	"github.com/ecodeclub/erest/internal/errs"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	tableAdmins   = "admins"
	tableSessions = "admin_sessions"
	tableAudit    = "admin_audit_logs"

	rpcCheckAttempts     = "check_login_attempts"
	rpcIncrementAttempts = "increment_failed_attempts"
	rpcResetAttempts     = "reset_login_attempts"
	rpcStats             = "get_admin_stats"

	DefaultSessionTTL = 24 * time.Hour
	MinPasswordLength = 8

	tokenBytes = 32

	// dummyPassword 只用来生成邮箱不存在时比较的哈希
	dummyPassword = "erest-adminauth-unknown-account"
)

var (
	ErrLocked             = errors.New("adminauth: account temporarily locked, try again later")
	ErrInvalidCredentials = errors.New("adminauth: invalid credentials")
	ErrInvalidSession     = errors.New("adminauth: invalid or expired session")
)

type Option func(a *Authenticator)

func WithSessionTTL(ttl time.Duration) Option {
	return func(a *Authenticator) {
		a.ttl = ttl
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Authenticator) {
		a.logger = l
	}
}

// WithBcryptCost 测试里面用 bcrypt.MinCost
func WithBcryptCost(cost int) Option {
	return func(a *Authenticator) {
		a.cost = cost
	}
}

type Authenticator struct {
	client *erest.Client
	ttl    time.Duration
	cost   int
	logger *zap.Logger
	now    func() time.Time

	compare   func(hash, password []byte) error
	dummyOnce sync.Once
	dummyHash []byte
}

func New(c *erest.Client, opts ...Option) *Authenticator {
	a := &Authenticator{
		client: c,
		ttl:    DefaultSessionTTL,
		cost:   bcrypt.DefaultCost,
		logger:  zap.NewNop(),
		now:     time.Now,
		compare: bcrypt.CompareHashAndPassword,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// timestamp 精确到秒，expires_at 按文本比较的时候才不会出错
func (a *Authenticator) timestamp() time.Time {
	return a.now().UTC().Truncate(time.Second)
}

// Login checks the lockout state, verifies the password and opens a
// session. Unknown emails and wrong passwords both count as a failed
// attempt and return ErrInvalidCredentials.
func (a *Authenticator) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email := strings.TrimSpace(req.Email)
	allowed, err := erest.NewProcedure[bool](a.client, rpcCheckAttempts).
		Params(map[string]any{"p_email": email}).Exec(ctx).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("adminauth: check login attempts: %w", err)
	}
	if !allowed {
		return nil, ErrLocked
	}

	admin, err := erest.NewSelector[Admin](a.client, tableAdmins).
		Eq("email", email).Eq("actif", true).Get(ctx).Unwrap()
	if err != nil {
		return nil, err
	}
	// 邮箱不存在的时候也做一次 bcrypt 比较，耗时和密码错误一致
	var hash []byte
	if admin != nil {
		hash = []byte(admin.PasswordHash)
	} else {
		hash = a.unknownAccountHash()
	}
	if err = a.compare(hash, []byte(req.Password)); admin == nil || err != nil {
		a.recordFailure(ctx, email)
		return nil, ErrInvalidCredentials
	}

	if err = erest.NewProcedure[any](a.client, rpcResetAttempts).
		Params(map[string]any{"p_admin_id": admin.ID}).Exec(ctx).Err(); err != nil {
		a.logger.Warn("adminauth: reset login attempts", zap.Int64("admin_id", admin.ID), zap.Error(err))
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	sess := Session{
		AdminID:   admin.ID,
		Token:     token,
		ExpiresAt: a.timestamp().Add(a.ttl),
		IPAddress: req.IP,
		UserAgent: req.UserAgent,
	}
	if err = erest.NewInserter[Session](a.client, tableSessions).Values(sess).Exec(ctx).Err(); err != nil {
		return nil, fmt.Errorf("adminauth: create session: %w", err)
	}

	a.LogAction(ctx, admin.ID, "login_success", map[string]any{
		"email":      email,
		"ip":         req.IP,
		"user_agent": req.UserAgent,
	})
	admin.PasswordHash = ""
	return &LoginResult{Admin: *admin, Session: sess}, nil
}

func (a *Authenticator) unknownAccountHash() []byte {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(dummyPassword), a.cost)
	})
	return a.dummyHash
}

func (a *Authenticator) recordFailure(ctx context.Context, email string) {
	err := erest.NewProcedure[any](a.client, rpcIncrementAttempts).
		Params(map[string]any{"p_email": email}).Exec(ctx).Err()
	if err != nil {
		a.logger.Warn("adminauth: increment failed attempts", zap.String("email", email), zap.Error(err))
	}
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("adminauth: generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ValidateSession returns the session with its admin. Expired sessions,
// unknown tokens and inactive admins give ErrInvalidSession.
func (a *Authenticator) ValidateSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}
	sess, err := erest.NewSelector[Session](a.client, tableSessions).
		Select(`*,
			admins (
				id,
				email,
				nom,
				role,
				actif
			)`).
		Eq("token", token).
		Where(erest.C("expires_at").GT(a.timestamp())).
		Get(ctx).Unwrap()
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.Admin == nil || !sess.Admin.Actif {
		return nil, ErrInvalidSession
	}
	return sess, nil
}

// Logout 会话无效的时候不记录审计日志，但是依旧删除
func (a *Authenticator) Logout(ctx context.Context, token string) error {
	if sess, err := a.ValidateSession(ctx, token); err == nil {
		a.LogAction(ctx, sess.AdminID, "logout", map[string]any{"session_token": token})
	}
	return erest.NewDeleter[Session](a.client, tableSessions).Eq("token", token).Exec(ctx).Err()
}

// LogAction writes an audit entry. Failures are logged, never returned.
// details["ip"] and details["user_agent"] fill the matching columns.
func (a *Authenticator) LogAction(ctx context.Context, adminID int64, action string, details map[string]any) {
	entry := AuditLog{AdminID: adminID, Action: action, Details: details}
	entry.IPAddress, _ = details["ip"].(string)
	entry.UserAgent, _ = details["user_agent"].(string)
	if err := erest.NewInserter[AuditLog](a.client, tableAudit).Values(entry).Exec(ctx).Err(); err != nil {
		a.logger.Error("adminauth: audit log",
			zap.Int64("admin_id", adminID), zap.String("action", action), zap.Error(err))
	}
}

// Stats 没有数据的时候返回 nil, nil
func (a *Authenticator) Stats(ctx context.Context) (Stats, error) {
	rows, err := erest.NewProcedure[[]Stats](a.client, rpcStats).Exec(ctx).Unwrap()
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// CreateAdmin hashes the password with bcrypt and stores an active admin.
func (a *Authenticator) CreateAdmin(ctx context.Context, in NewAdmin) (*Admin, error) {
	var err error
	email := strings.TrimSpace(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		err = multierr.Append(err, fmt.Errorf("adminauth: invalid email %q", in.Email))
	}
	if len(in.Password) < MinPasswordLength {
		err = multierr.Append(err, fmt.Errorf("adminauth: password must have at least %d characters", MinPasswordLength))
	}
	if err != nil {
		return nil, errs.NewValidationError(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), a.cost)
	if err != nil {
		return nil, errs.NewValidationError(err)
	}
	role := in.Role
	if role == "" {
		role = "admin"
	}
	rows, err := erest.NewInserter[Admin](a.client, tableAdmins).Values(Admin{
		Email:        email,
		PasswordHash: string(hash),
		Nom:          in.Nom,
		Role:         role,
		Actif:        true,
	}).Select().Exec(ctx).Unwrap()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("adminauth: the backend did not return the created admin")
	}
	res := rows[0]
	res.PasswordHash = ""
	return &res, nil
}

// ListAdmins never returns password hashes.
func (a *Authenticator) ListAdmins(ctx context.Context) ([]Admin, error) {
	return erest.NewSelector[Admin](a.client, tableAdmins).
		Select("id, email, nom, role, actif, derniere_connexion, created_at").
		Order("created_at").Find(ctx).Unwrap()
}

func (a *Authenticator) DeactivateAdmin(ctx context.Context, id int64) error {
	return erest.NewUpdater[Admin](a.client, tableAdmins).
		Set(map[string]any{"actif": false}).Eq("id", id).Exec(ctx).Err()
}

// ResetLoginAttempts unlocks an admin by hand.
func (a *Authenticator) ResetLoginAttempts(ctx context.Context, id int64) error {
	return erest.NewUpdater[Admin](a.client, tableAdmins).
		Set(map[string]any{"tentatives_echec": 0, "bloque_jusqu_a": nil}).
		Eq("id", id).Exec(ctx).Err()
}
