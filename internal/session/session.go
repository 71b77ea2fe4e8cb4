// Package session tracks the authenticated principal and exposes it to the
// rest of the client. The manager mirrors the provider's state through its
// change subscription rather than polling an ambient global.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/minsu-cho/plaza/internal/auth"
	"github.com/minsu-cho/plaza/internal/errs"
	"github.com/minsu-cho/plaza/internal/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Manager is the session façade injected into every service. It starts in a
// loading state and becomes ready on the provider's first state event.
type Manager struct {
	provider auth.Provider
	logger   *zap.Logger

	mu      sync.RWMutex
	current *model.Principal
	ready   bool
	subs    map[int]func(*model.Principal)
	nextSub int
	unsub   func()
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the debug logger.
func WithLogger(l *zap.Logger) Option { return func(m *Manager) { m.logger = l } }

// NewManager constructs a manager bound to the provider's state stream.
func NewManager(provider auth.Provider, opts ...Option) *Manager {
	m := &Manager{
		provider: provider,
		logger:   zap.NewNop(),
		subs:     map[int]func(*model.Principal){},
	}
	for _, o := range opts {
		o(m)
	}
	m.unsub = provider.OnStateChange(m.onState)
	return m
}

// Close detaches the manager from the provider.
func (m *Manager) Close() {
	if m.unsub != nil {
		m.unsub()
	}
}

func (m *Manager) onState(p *model.Principal) {
	m.mu.Lock()
	m.current = p
	first := !m.ready
	m.ready = true
	fns := make([]func(*model.Principal), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	if first {
		m.logger.Debug("session ready", zap.Bool("authenticated", p != nil))
	}
	for _, fn := range fns {
		fn(p)
	}
}

// CurrentUser returns a synchronous snapshot of the authenticated identity,
// nil when signed out.
func (m *Manager) CurrentUser() *model.Principal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	cur := *m.current
	return &cur
}

// Loading reports whether the initial provider state is still pending.
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.ready
}

// Subscribe registers a listener for identity changes and returns its
// unsubscribe handle.
func (m *Manager) Subscribe(fn func(*model.Principal)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// SignIn authenticates with the provider. Malformed input fails with
// ValidationError before any provider call.
func (m *Manager) SignIn(ctx context.Context, email, secret string) (*model.Principal, error) {
	in := model.SignIn{Email: strings.TrimSpace(email), Secret: secret}
	if err := validate.Struct(in); err != nil {
		return nil, asValidation(err)
	}
	p, err := m.provider.SignIn(ctx, in.Email, in.Secret)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("signed in", zap.String("uid", p.UID))
	return p, nil
}

// SignUp creates a new principal and sets its display name. Malformed email
// or a short secret fails with ValidationError before any provider call;
// duplicate identifiers surface as AuthError from the provider.
func (m *Manager) SignUp(ctx context.Context, email, secret, displayName string) (*model.Principal, error) {
	in := model.SignUp{
		Email:       strings.TrimSpace(email),
		Secret:      secret,
		DisplayName: strings.TrimSpace(displayName),
	}
	if err := validate.Struct(in); err != nil {
		return nil, asValidation(err)
	}
	p, err := m.provider.CreateAccount(ctx, in.Email, in.Secret)
	if err != nil {
		return nil, err
	}
	if err := m.provider.SetDisplayName(ctx, p, in.DisplayName); err != nil {
		return nil, err
	}
	p.DisplayName = in.DisplayName
	m.logger.Debug("signed up", zap.String("uid", p.UID))
	return p, nil
}

// SignOut clears the provider session.
func (m *Manager) SignOut(ctx context.Context) error {
	return m.provider.SignOut(ctx)
}

// asValidation converts a validator error into the client's ValidationError
// kind with a readable field message.
func asValidation(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return errs.Validation("%s is required", strings.ToLower(fe.Field()))
		case "email":
			return errs.Validation("malformed email address")
		case "min":
			return errs.Validation("%s must be at least %s characters", strings.ToLower(fe.Field()), fe.Param())
		}
		return errs.Validation("invalid %s", strings.ToLower(fe.Field()))
	}
	return errs.Validation("invalid input")
}
