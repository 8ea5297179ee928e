// Package pages defines the voice-driven mailbox pages: the linear account
// flows and the command pages that follow sign-in.
package pages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/LokeshkumarVD/Voice-email-system/internal/dialogue"
	"github.com/LokeshkumarVD/Voice-email-system/internal/ipc"
	"github.com/LokeshkumarVD/Voice-email-system/internal/mailbox"
)

const (
	Welcome   dialogue.Page = "welcome"
	Signup    dialogue.Page = "signup"
	Login     dialogue.Page = "login"
	Forgot    dialogue.Page = "forgot"
	Reset     dialogue.Page = "reset"
	Dashboard dialogue.Page = "dashboard"
	Compose   dialogue.Page = "compose"
)

// CarryEmail is the Outcome.Carry key holding the signed-in or recovering address.
const CarryEmail = "email"

// ErrUnknownPage is returned by Visit for a page name it does not serve.
var ErrUnknownPage = errors.New("unknown page")

// Known reports whether name is a page Visit can run.
func Known(name string) bool {
	switch dialogue.Page(name) {
	case Welcome, Signup, Login, Forgot, Reset, Dashboard, Compose:
		return true
	default:
		return false
	}
}

// Mailbox is the account and message store the pages read and write.
type Mailbox interface {
	CreateAccount(ctx context.Context, reg mailbox.Registration) (mailbox.Account, error)
	Account(ctx context.Context, email string) (mailbox.Account, error)
	Authenticate(ctx context.Context, email string, password string) (mailbox.Account, error)
	ResetPassword(ctx context.Context, email string, password string) error
	Count(ctx context.Context, owner string, folder mailbox.Folder) (int, error)
}

// Poster sends a composed draft.
type Poster interface {
	Post(ctx context.Context, from string, draft mailbox.Draft) (mailbox.Message, error)
}

// Deps wires the pages to storage and delivery.
type Deps struct {
	Mailbox Mailbox
	Prefs   mailbox.Prefs
	Postman Poster
	// Domain is the mailbox domain new accounts are created under.
	Domain string
	// ChoiceTimeout bounds the welcome page's sign up / sign in answer.
	ChoiceTimeout time.Duration
}

// Site runs pages on one speech adapter and exposes whichever page is active
// to IPC control.
type Site struct {
	logger    *slog.Logger
	speech    dialogue.Speech
	indicator dialogue.Indicator
	opts      dialogue.Options
	deps      Deps

	controller *dialogue.Controller

	mu     sync.RWMutex
	page   dialogue.Page
	active ipc.Handler
}

// NewSite constructs a Site. indicator may be nil.
func NewSite(logger *slog.Logger, speech dialogue.Speech, indicator dialogue.Indicator, opts dialogue.Options, deps Deps) *Site {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Site{
		logger:     logger,
		speech:     speech,
		indicator:  indicator,
		opts:       opts,
		deps:       deps,
		controller: dialogue.NewController(logger, speech, indicator, opts),
	}
}

// Visit runs one page to completion. carry is the previous page's Outcome.Carry.
func (s *Site) Visit(ctx context.Context, page dialogue.Page, carry map[string]string) dialogue.Result {
	email := carry[CarryEmail]

	var flow *dialogue.Flow
	var loop *dialogue.Loop
	switch page {
	case Welcome:
		f := s.welcomeFlow()
		flow = &f
	case Signup:
		f := s.signupFlow()
		flow = &f
	case Login:
		f := s.loginFlow()
		flow = &f
	case Forgot:
		f := s.forgotFlow()
		flow = &f
	case Reset:
		f := s.resetFlow(email)
		flow = &f
	case Dashboard:
		loop = dialogue.NewLoop(s.logger, s.speech, s.indicator, s.dashboardConfig(ctx, email), s.opts)
	case Compose:
		loop = dialogue.NewLoop(s.logger, s.speech, s.indicator, s.composeConfig(ctx, email), s.opts)
	default:
		now := time.Now()
		return dialogue.Result{
			Flow:       string(page),
			Err:        fmt.Errorf("%w: %q", ErrUnknownPage, page),
			StartedAt:  now,
			FinishedAt: now,
		}
	}

	if flow != nil {
		s.activate(page, s.controller)
		defer s.activate("", nil)
		return s.controller.Run(ctx, *flow)
	}
	s.activate(page, loop)
	defer s.activate("", nil)
	return loop.Run(ctx)
}

func (s *Site) activate(page dialogue.Page, handler ipc.Handler) {
	s.mu.Lock()
	s.page = page
	s.active = handler
	s.mu.Unlock()
}

// Page returns the page currently running, or "" between pages.
func (s *Site) Page() dialogue.Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

// Handle forwards IPC commands to the active page.
func (s *Site) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	s.mu.RLock()
	active := s.active
	s.mu.RUnlock()

	if !ipc.IsControlCommand(req.Command) {
		return ipc.Unknown(req.Command)
	}
	if active == nil {
		if req.Command == ipc.CommandStatus {
			return ipc.Response{OK: true, State: "idle", Message: "between pages"}
		}
		return ipc.Response{OK: false, State: "idle", Error: "no page running"}
	}
	return active.Handle(ctx, req)
}

// signedIn resolves the sender address for command pages: the carried address,
// else the remembered username on the mailbox domain.
func (s *Site) signedIn(ctx context.Context, carried string) string {
	if carried != "" {
		return carried
	}
	username := s.username(ctx)
	if username == "" || s.deps.Domain == "" {
		return ""
	}
	return strings.ToLower(username + "@" + s.deps.Domain)
}

func (s *Site) username(ctx context.Context) string {
	if s.deps.Prefs == nil {
		return ""
	}
	name, err := s.deps.Prefs.Get(ctx, mailbox.PrefUsername)
	if err != nil {
		if !errors.Is(err, mailbox.ErrPrefNotFound) {
			s.logger.Warn("read username hint failed", "error", err.Error())
		}
		return ""
	}
	return name
}

func (s *Site) rememberUsername(ctx context.Context, username string) {
	if s.deps.Prefs == nil || username == "" {
		return
	}
	if err := s.deps.Prefs.Set(ctx, mailbox.PrefUsername, username); err != nil {
		s.logger.Warn("store username hint failed", "error", err.Error())
	}
}

func carryEmail(email string) map[string]string {
	if email == "" {
		return nil
	}
	return map[string]string{CarryEmail: email}
}
