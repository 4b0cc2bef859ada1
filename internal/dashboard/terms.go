package dashboard

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/mesh-intelligence/pantry/internal/codec"
	"github.com/mesh-intelligence/pantry/internal/registry"
	"github.com/mesh-intelligence/pantry/internal/service"
	"github.com/mesh-intelligence/pantry/internal/session"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// TermType names a kind of legal document.
type TermType string

// Term types.
const (
	TermsOfService TermType = "terms_of_service"
	PrivacyPolicy  TermType = "privacy_policy"
	CookiePolicy   TermType = "cookie_policy"
	EULA           TermType = "eula"
)

// TermActive marks the version of a term users are asked to accept.
const TermActive = 1 << 0

// Term is one version of a legal document.
type Term struct {
	ID        string   `json:"id"`
	Type      TermType `json:"type"`
	Version   string   `json:"version"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Summary   string   `json:"summary"`
	CreatedAt string   `json:"createdAt,omitempty"`
	UpdatedAt string   `json:"updatedAt,omitempty"`
	Flags     int      `json:"flags"`
	Changelog string   `json:"changelog,omitempty"`
}

func (t Term) RecordID() string { return t.ID }

// Active reports whether the term carries the active flag.
func (t Term) Active() bool { return t.Flags&TermActive != 0 }

// Terms is the app-terms service.
type Terms struct {
	*service.Service[Term]
}

func newTerms(reg *registry.Registry) (*Terms, error) {
	base, err := service.For(reg, TermsCollection)
	if err != nil {
		return nil, err
	}
	return &Terms{Service: base}, nil
}

// LatestByType returns the active term of the given type with the highest
// semantic version. Versions that do not parse sort below any that do and
// compare as strings among themselves. No active term yields 404.
func (t *Terms) LatestByType(ctx context.Context, typ TermType, opts ...types.Option) types.Envelope[*Term] {
	env := t.FindAll(ctx, opts...)
	if !env.OK() {
		return types.Envelope[*Term]{Status: env.Status, Error: env.Error}
	}

	var matches []Term
	for _, term := range env.Data {
		if term.Type == typ && term.Active() {
			matches = append(matches, term)
		}
	}
	if len(matches) == 0 {
		return types.Failure[*Term](http.StatusNotFound, types.ErrNotFound)
	}
	latest := slices.MaxFunc(matches, compareTermVersions)
	return types.Envelope[*Term]{Data: &latest, Status: env.Status, Meta: env.Meta}
}

func compareTermVersions(a, b Term) int {
	va, errA := semver.NewVersion(a.Version)
	vb, errB := semver.NewVersion(b.Version)
	switch {
	case errA == nil && errB == nil:
		return va.Compare(vb)
	case errA == nil:
		return 1
	case errB == nil:
		return -1
	}
	return strings.Compare(a.Version, b.Version)
}

// UserTerm flags.
const (
	UserTermRead     = 1 << 0
	UserTermAccepted = 1 << 1
)

// UserTerm records a user reading or accepting a term.
type UserTerm struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	TermID    string `json:"termId"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	Flags     int    `json:"flags"`
}

func (u UserTerm) RecordID() string { return u.ID }
func (u UserTerm) OwnerID() string  { return u.UserID }

// Accepted reports whether the acceptance flag is set.
func (u UserTerm) Accepted() bool { return u.Flags&UserTermAccepted != 0 }

// UserTerms is the owner-scoped user-terms service.
type UserTerms struct {
	*service.Scoped[UserTerm]
	now func() time.Time
}

func newUserTerms(reg *registry.Registry, src session.Source, now func() time.Time) (*UserTerms, error) {
	base, err := service.ScopedFor(reg, UserTermsCollection, src)
	if err != nil {
		return nil, err
	}
	return &UserTerms{Scoped: base, now: now}, nil
}

// Accept marks termID as read and accepted by the session user. An existing
// record for the term is updated; otherwise a new one is created.
func (u *UserTerms) Accept(ctx context.Context, termID, ip, userAgent string, opts ...types.Option) types.Envelope[*UserTerm] {
	mine := u.FindAllMy(ctx, opts...)
	if !mine.OK() {
		return types.Envelope[*UserTerm]{Status: mine.Status, Error: mine.Error}
	}
	for _, rec := range mine.Data {
		if rec.TermID == termID {
			return u.UpdateMy(ctx, rec.ID, types.Patch{
				"flags":     rec.Flags | UserTermRead | UserTermAccepted,
				"ip":        ip,
				"userAgent": userAgent,
			}, opts...)
		}
	}

	stamp := codec.Timestamp(u.now())
	return u.CreateOneMy(ctx, UserTerm{
		TermID:    termID,
		CreatedAt: stamp,
		UpdatedAt: stamp,
		IP:        ip,
		UserAgent: userAgent,
		Flags:     UserTermRead | UserTermAccepted,
	}, opts...)
}

var seedTerms = []Term{
	{
		ID:        "term_tos_v1.0",
		Type:      TermsOfService,
		Version:   "1.0.0",
		Title:     "Terms of Service",
		Content:   "# Terms of Service\n\n1. Introduction...\n2. Acceptable Use...",
		Summary:   "Initial release of terms.",
		CreatedAt: "2023-01-01T00:00:00Z",
		UpdatedAt: "2023-01-01T00:00:00Z",
	},
	{
		ID:        "term_tos_v1.1",
		Type:      TermsOfService,
		Version:   "1.1.0",
		Title:     "Terms of Service",
		Content:   "# Terms of Service\n\n1. Introduction...\n2. Acceptable Use...\n3. AI Usage...",
		Summary:   "Updated to include AI usage guidelines.",
		CreatedAt: "2024-01-01T00:00:00Z",
		UpdatedAt: "2024-01-01T00:00:00Z",
		Flags:     TermActive,
		Changelog: "Added section 3 regarding generative AI outputs.",
	},
	{
		ID:        "term_privacy_v1.0",
		Type:      PrivacyPolicy,
		Version:   "1.0.0",
		Title:     "Privacy Policy",
		Content:   "# Privacy Policy\n\nWe collect minimal data...",
		Summary:   "Standard privacy policy.",
		CreatedAt: "2023-01-01T00:00:00Z",
		UpdatedAt: "2023-01-01T00:00:00Z",
		Flags:     TermActive,
	},
}

var seedUserTerms = []UserTerm{
	{
		ID:        "log_ut_1",
		UserID:    "u_1",
		TermID:    "term_tos_v1.0",
		CreatedAt: "2023-05-10T08:05:00Z",
		UpdatedAt: "2023-05-10T08:05:00Z",
		IP:        "192.168.1.1",
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)...",
		Flags:     UserTermRead | UserTermAccepted,
	},
	{
		ID:        "log_ut_2",
		UserID:    "u_1",
		TermID:    "term_tos_v1.1",
		CreatedAt: "2024-01-05T09:00:00Z",
		UpdatedAt: "2024-01-05T09:00:00Z",
		IP:        "192.168.1.1",
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)...",
		Flags:     UserTermRead,
	},
	{
		ID:        "log_ut_3",
		UserID:    "u_2",
		TermID:    "term_tos_v1.1",
		CreatedAt: "2024-02-01T14:20:00Z",
		UpdatedAt: "2024-02-01T14:20:00Z",
		IP:        "10.0.0.42",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64)...",
		Flags:     UserTermRead,
	},
}
