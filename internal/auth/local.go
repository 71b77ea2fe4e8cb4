package auth

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/minsu-cho/plaza/internal/crypto"
	"github.com/minsu-cho/plaza/internal/errs"
	"github.com/minsu-cho/plaza/internal/limiter"
	"github.com/minsu-cho/plaza/internal/model"
)

// MinSecretLen is the provider-side minimum secret length.
const MinSecretLen = 6

const saltLen = 16

// Local implements Provider against an AccountRepo. Sessions are HS256 JWTs
// persisted to a token file so a new process restores the identity
// asynchronously on Start.
type Local struct {
	repo      AccountRepo
	signKey   []byte
	tokenTTL  time.Duration
	tokenPath string // empty disables persistence
	logger    *zap.Logger

	lim        limiter.Limiter // nil disables sign-in rate limiting
	deviceHash []byte

	mu      sync.RWMutex
	current *model.Principal
	subs    map[int]func(*model.Principal)
	nextSub int
}

var _ Provider = (*Local)(nil)

// LocalOption configures a Local provider.
type LocalOption func(*Local)

// WithTokenFile enables session persistence at path.
func WithTokenFile(path string) LocalOption { return func(l *Local) { l.tokenPath = path } }

// WithLogger sets the debug logger.
func WithLogger(lg *zap.Logger) LocalOption { return func(l *Local) { l.logger = lg } }

// WithLimiter enables sign-in rate limiting keyed by (email, device).
func WithLimiter(lim limiter.Limiter, device string) LocalOption {
	return func(l *Local) {
		l.lim = lim
		l.deviceHash = limiter.HashDevice(device)
	}
}

// NewLocal constructs a Local provider.
func NewLocal(repo AccountRepo, signKey []byte, tokenTTL time.Duration, opts ...LocalOption) *Local {
	l := &Local{
		repo:     repo,
		signKey:  signKey,
		tokenTTL: tokenTTL,
		logger:   zap.NewNop(),
		subs:     map[int]func(*model.Principal){},
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Start restores a persisted session, if any, and always notifies listeners
// once so consumers can leave their loading state.
func (l *Local) Start(ctx context.Context) error {
	p := l.restore(ctx)
	l.mu.Lock()
	l.current = p
	l.mu.Unlock()
	l.notify(p)
	return nil
}

func (l *Local) restore(ctx context.Context) *model.Principal {
	if l.tokenPath == "" {
		return nil
	}
	raw, err := os.ReadFile(l.tokenPath)
	if err != nil {
		return nil
	}
	var tf tokenFile
	if err := json.Unmarshal(raw, &tf); err != nil || tf.AccessToken == "" {
		return nil
	}
	uid, err := l.verifyToken(tf.AccessToken)
	if err != nil {
		l.logger.Debug("stale session token", zap.Error(err))
		return nil
	}
	acc, err := l.repo.GetByID(ctx, uid)
	if err != nil {
		return nil
	}
	l.logger.Debug("session restored", zap.String("uid", uid.String()))
	return acc.Principal()
}

// SignIn verifies credentials and makes the principal current. The error for
// an unknown email and a wrong secret is identical so account existence is
// not revealed.
func (l *Local) SignIn(ctx context.Context, identifier, secret string) (*model.Principal, error) {
	if l.lim != nil {
		allowed, _, err := l.lim.Allow(ctx, identifier, l.deviceHash)
		if err != nil {
			return nil, &errs.AuthError{Msg: "sign in failed", Err: err}
		}
		if !allowed {
			return nil, errs.Auth("too many failed attempts, try again later")
		}
	}

	acc, err := l.repo.GetByEmail(ctx, identifier)
	if err != nil || !crypto.VerifySecret([]byte(secret), acc.Salt, acc.SecretHash) {
		if l.lim != nil {
			if blocked, _, ferr := l.lim.Failure(ctx, identifier, l.deviceHash); ferr == nil && blocked {
				return nil, errs.Auth("too many failed attempts, try again later")
			}
		}
		if err != nil && !errors.Is(err, errs.ErrNotFound) {
			return nil, &errs.AuthError{Msg: "sign in failed", Err: err}
		}
		return nil, errs.Auth("invalid email or password")
	}

	if l.lim != nil {
		_ = l.lim.Success(ctx, identifier, l.deviceHash)
	}
	if err := l.establish(acc); err != nil {
		return nil, err
	}
	return acc.Principal(), nil
}

// CreateAccount registers a new account and makes it current.
func (l *Local) CreateAccount(ctx context.Context, identifier, secret string) (*model.Principal, error) {
	if len(secret) < MinSecretLen {
		return nil, errs.Auth("secret too short")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	salt, err := crypto.RandBytes(saltLen)
	if err != nil {
		return nil, err
	}
	acc := &Account{
		ID:         id,
		Email:      identifier,
		Salt:       salt,
		SecretHash: crypto.HashSecret([]byte(secret), salt),
	}
	if err := l.repo.Create(ctx, acc); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, errs.Auth("account already exists")
		}
		return nil, &errs.AuthError{Msg: "create account failed", Err: err}
	}
	if err := l.establish(acc); err != nil {
		return nil, err
	}
	return acc.Principal(), nil
}

// SetDisplayName updates the stored name and refreshes the current snapshot
// when it belongs to the same principal.
func (l *Local) SetDisplayName(ctx context.Context, p *model.Principal, name string) error {
	uid, err := uuid.FromString(p.UID)
	if err != nil {
		return errs.Auth("malformed principal id")
	}
	if err := l.repo.SetDisplayName(ctx, uid, name); err != nil {
		return &errs.AuthError{Msg: "set display name failed", Err: err}
	}
	l.mu.Lock()
	var snap *model.Principal
	if l.current != nil && l.current.UID == p.UID {
		cur := *l.current
		cur.DisplayName = name
		l.current = &cur
		snap = &cur
	}
	l.mu.Unlock()
	if snap != nil {
		l.notify(snap)
	}
	return nil
}

// SignOut clears the current principal and drops the persisted token.
func (l *Local) SignOut(context.Context) error {
	if l.tokenPath != "" {
		_ = os.Remove(l.tokenPath)
	}
	l.mu.Lock()
	l.current = nil
	l.mu.Unlock()
	l.notify(nil)
	return nil
}

// Current returns a snapshot of the authenticated principal, nil when signed out.
func (l *Local) Current() *model.Principal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.current == nil {
		return nil
	}
	cur := *l.current
	return &cur
}

// OnStateChange registers a listener for identity changes.
func (l *Local) OnStateChange(fn func(*model.Principal)) func() {
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

func (l *Local) establish(acc *Account) error {
	tok, exp, err := l.issueToken(acc.ID)
	if err != nil {
		return err
	}
	if l.tokenPath != "" {
		if err := saveTokenFile(l.tokenPath, tok, exp); err != nil {
			l.logger.Warn("token persist failed", zap.Error(err))
		}
	}
	p := acc.Principal()
	l.mu.Lock()
	l.current = p
	l.mu.Unlock()
	l.notify(p)
	return nil
}

func (l *Local) notify(p *model.Principal) {
	l.mu.RLock()
	fns := make([]func(*model.Principal), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.mu.RUnlock()
	for _, fn := range fns {
		if p == nil {
			fn(nil)
			continue
		}
		cur := *p
		fn(&cur)
	}
}

// issueToken creates a signed HS256 JWT for the given subject.
func (l *Local) issueToken(id uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(l.tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   id.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(l.signKey)
	return signed, exp, err
}

func (l *Local) verifyToken(signed string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(signed, &claims, func(*jwt.Token) (any, error) {
		return l.signKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.FromString(claims.Subject)
}

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func saveTokenFile(path, tok string, exp time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenFile{AccessToken: tok, ExpiresAt: exp}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
