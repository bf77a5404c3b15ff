package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"ciportal/api/internal/archive"
	"ciportal/api/internal/auth"
	"ciportal/api/internal/authpw"
	"ciportal/api/internal/config"
	"ciportal/api/internal/draft"
	"ciportal/api/internal/email"
	"ciportal/api/internal/media"
	"ciportal/api/internal/rbac"
	"ciportal/api/internal/render"
	"ciportal/api/internal/review"
	"ciportal/api/internal/search"
	"ciportal/api/internal/staging"
	"ciportal/api/internal/store"
	"ciportal/api/internal/util"
	"ciportal/api/internal/workflow"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Email        string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

func (s Session) identity() draft.Identity {
	return draft.Identity{Name: s.UserName, Email: s.Email}
}

type dataStore interface {
	Ping(ctx context.Context) error
	CreateUser(ctx context.Context, user store.User) error
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	EnsureAdmin(ctx context.Context, user store.User) error
	RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
	GetApplicationByUser(ctx context.Context, userID string) (store.Application, error)
	GetApplication(ctx context.Context, id string) (store.Application, error)
	SaveDraft(ctx context.Context, id, userID string, profile store.Profile) (bool, error)
	SubmitApplication(ctx context.Context, userID string, profile store.Profile, submittedAt time.Time) (store.Application, bool, error)
	ListSubmissions(ctx context.Context) ([]store.Application, error)
	DecideSubmission(ctx context.Context, id, status, decidedBy string) (bool, error)
}

type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type archiveService interface {
	Snapshot(appID string, profile store.Profile, author, message string) (archive.CommitInfo, error)
	History(appID string, limit int) ([]archive.CommitInfo, error)
}

type renderService interface {
	Export(ctx context.Context, profile store.Profile, filenameBase string) (*render.Result, error)
}

type mediaStore interface {
	Upload(ctx context.Context, userID, kind, contentType string, body io.Reader, size int64) (string, error)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	staging  staging.Store
	archive  archiveService
	search   *search.Service
	email    *email.Service
	renderer renderService
	media    mediaStore
	authpw   *authpw.Service
}

type Deps struct {
	Store    dataStore
	Sessions sessionStore
	Staging  staging.Store
	Archive  archiveService
	Search   *search.Service
	Email    *email.Service
	Renderer renderService
	Media    mediaStore
}

func New(cfg config.Config, deps Deps) *Service {
	return &Service{
		cfg:      cfg,
		store:    deps.Store,
		sessions: deps.Sessions,
		staging:  deps.Staging,
		archive:  deps.Archive,
		search:   deps.Search,
		email:    deps.Email,
		renderer: deps.Renderer,
		media:    deps.Media,
		authpw:   authpw.NewService(deps.Store),
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap seeds the first admin account and warms the search index.
func (s *Service) Bootstrap(ctx context.Context) error {
	hash, err := authpw.HashPassword(s.cfg.AdminPassword)
	if err != nil {
		return err
	}
	if err := s.store.EnsureAdmin(ctx, store.User{
		ID:           util.NewID("usr"),
		DisplayName:  s.cfg.AdminName,
		Email:        s.cfg.AdminEmail,
		PasswordHash: hash,
		Role:         string(rbac.RoleAdmin),
	}); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	if s.search != nil {
		apps, err := s.store.ListSubmissions(ctx)
		if err != nil {
			return fmt.Errorf("list submissions for reindex: %w", err)
		}
		s.search.ReindexAll(toSearchRecords(apps))
	}
	return nil
}

// --- authentication and sessions ---

func (s *Service) Register(ctx context.Context, name, emailAddr, password string) (Session, error) {
	user, err := s.authpw.Register(ctx, name, emailAddr, password)
	if err != nil {
		switch {
		case errors.Is(err, authpw.ErrEmailTaken):
			return Session{}, domainError(http.StatusConflict, "EMAIL_TAKEN", "Email already registered", nil)
		case errors.Is(err, authpw.ErrMissingFields), errors.Is(err, authpw.ErrWeakPassword):
			return Session{}, domainError(http.StatusBadRequest, "INVALID_INPUT", err.Error(), nil)
		}
		return Session{}, err
	}

	if s.email != nil && s.email.IsConfigured() {
		go func(to, userName string) {
			if err := s.email.SendWelcomeEmail(to, userName, s.cfg.OrgName); err != nil {
				log.Printf("email: welcome to %s: %v", to, err)
			}
		}(user.Email, user.DisplayName)
	}

	return s.issueSession(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, emailAddr, password string) (Session, error) {
	user, err := s.authpw.SignIn(ctx, emailAddr, password)
	if err != nil {
		if errors.Is(err, authpw.ErrInvalidCredentials) {
			return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
		}
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		Role: user.Role,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewSecret()
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Email:        user.Email,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Email:     user.Email,
		Role:      user.Role,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

// --- candidate draft ---

// Draft returns the candidate's working profile with session identity merged
// in, and the application status.
func (s *Service) Draft(ctx context.Context, session Session) (store.Profile, string, error) {
	app, err := s.store.GetApplicationByUser(ctx, session.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return draft.Merge(session.identity(), store.Profile{}, store.Profile{}), store.StatusDraft, nil
	}
	if err != nil {
		return store.Profile{}, "", err
	}
	if workflow.IsSubmitted(app.Status) {
		return app.Profile, app.Status, nil
	}
	return draft.Merge(session.identity(), app.Profile, store.Profile{}), app.Status, nil
}

// UpdateDraftField applies one field edit. The stored value follows the
// field's normalization rules even while invalid, so the returned validation
// state tells the client what still blocks submission.
func (s *Service) UpdateDraftField(ctx context.Context, session Session, field, value string) (store.Profile, *draft.ValidationError, error) {
	if !draft.KnownField(field) {
		return store.Profile{}, nil, domainError(http.StatusBadRequest, "UNKNOWN_FIELD", fmt.Sprintf("Unknown field %q", field), nil)
	}

	app, err := s.loadEditableDraft(ctx, session)
	if err != nil {
		return store.Profile{}, nil, err
	}

	profile := app.Profile
	fieldErr := draft.ApplyField(&profile, field, value)

	if err := s.saveDraft(ctx, app, profile); err != nil {
		return store.Profile{}, nil, err
	}
	return profile, fieldErr, nil
}

// SaveDraftBulk replaces the draft with the merge of persisted state and the
// submitted edits.
func (s *Service) SaveDraftBulk(ctx context.Context, session Session, edits store.Profile) (store.Profile, error) {
	app, err := s.loadEditableDraft(ctx, session)
	if err != nil {
		return store.Profile{}, err
	}

	profile := draft.Merge(session.identity(), app.Profile, edits)
	if err := s.saveDraft(ctx, app, profile); err != nil {
		return store.Profile{}, err
	}
	return profile, nil
}

func (s *Service) loadEditableDraft(ctx context.Context, session Session) (store.Application, error) {
	app, err := s.store.GetApplicationByUser(ctx, session.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Application{
			ID:      util.NewID("app"),
			UserID:  session.UserID,
			Profile: draft.Merge(session.identity(), store.Profile{}, store.Profile{}),
			Status:  store.StatusDraft,
		}, nil
	}
	if err != nil {
		return store.Application{}, err
	}
	if workflow.IsSubmitted(app.Status) {
		return store.Application{}, domainError(http.StatusConflict, "ALREADY_SUBMITTED", "Application already submitted", nil)
	}
	return app, nil
}

func (s *Service) saveDraft(ctx context.Context, app store.Application, profile store.Profile) error {
	saved, err := s.store.SaveDraft(ctx, app.ID, app.UserID, profile)
	if err != nil {
		return err
	}
	if !saved {
		return domainError(http.StatusConflict, "ALREADY_SUBMITTED", "Application already submitted", nil)
	}
	return nil
}

// --- submission ---

// SubmitDraft runs the validation gate and stages the profile for final
// confirmation. Nothing is persisted as submitted until the candidate
// confirms.
func (s *Service) SubmitDraft(ctx context.Context, session Session) (store.Profile, error) {
	app, err := s.loadEditableDraft(ctx, session)
	if err != nil {
		return store.Profile{}, err
	}

	profile := draft.Merge(session.identity(), app.Profile, store.Profile{})
	if fieldErr := draft.Validate(profile); fieldErr != nil {
		return store.Profile{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_FAILED", fieldErr.Message, fieldErr)
	}

	if err := s.staging.Stage(ctx, session.UserID, profile); err != nil {
		return store.Profile{}, err
	}
	return profile, nil
}

// ConfirmSubmission consumes the staged profile and freezes the application
// as pending.
func (s *Service) ConfirmSubmission(ctx context.Context, session Session) (store.Application, error) {
	profile, err := s.staging.Take(ctx, session.UserID)
	if errors.Is(err, staging.ErrNotStaged) {
		return store.Application{}, domainError(http.StatusConflict, "NOT_STAGED", "No submission awaiting confirmation", nil)
	}
	if err != nil {
		return store.Application{}, err
	}

	// The draft row must exist before the guarded submit update.
	app, err := s.loadEditableDraft(ctx, session)
	if err != nil {
		return store.Application{}, err
	}
	if err := s.saveDraft(ctx, app, profile); err != nil {
		return store.Application{}, err
	}

	submitted, ok, err := s.store.SubmitApplication(ctx, session.UserID, profile, time.Now())
	if err != nil {
		return store.Application{}, err
	}
	if !ok {
		return store.Application{}, domainError(http.StatusConflict, "ALREADY_SUBMITTED", "Application already submitted", nil)
	}

	if s.archive != nil {
		if _, err := s.archive.Snapshot(submitted.ID, submitted.Profile, session.UserName, "submitted"); err != nil {
			log.Printf("archive: snapshot submit %s: %v", submitted.ID, err)
		}
	}
	if s.search != nil {
		s.search.IndexSubmission(toSearchRecord(submitted))
	}
	return submitted, nil
}

// --- document rendering ---

// PrintDocument renders the application as a printable HTML page.
func (s *Service) PrintDocument(ctx context.Context, session Session) (string, error) {
	profile, _, err := s.Draft(ctx, session)
	if err != nil {
		return "", err
	}
	return render.BuildPrintHTML(profile, s.documentConfig())
}

// ExportPDF renders the application through the capture-and-compose pipeline.
func (s *Service) ExportPDF(ctx context.Context, session Session) (*render.Result, error) {
	if s.renderer == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export not available", nil)
	}

	profile, _, err := s.Draft(ctx, session)
	if err != nil {
		return nil, err
	}

	result, err := s.renderer.Export(ctx, profile, session.UserName)
	if errors.Is(err, render.ErrPDFDependencyMissing) {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export not available", nil)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) documentConfig() render.DocumentConfig {
	return render.DocumentConfig{
		OrgName:    s.cfg.OrgName,
		ExamName:   s.cfg.ExamName,
		ExamDates:  s.cfg.ExamDates,
		PayoutRate: s.cfg.PayoutRate,
		DebitFee:   s.cfg.DebitFee,
	}
}

// --- media ---

// UploadImage stores a candidate image and records its URL on the draft.
func (s *Service) UploadImage(ctx context.Context, session Session, kind, contentType string, body io.Reader, size int64) (string, error) {
	if s.media == nil {
		return "", domainError(http.StatusServiceUnavailable, "MEDIA_UNAVAILABLE", "Image storage not configured", nil)
	}

	app, err := s.loadEditableDraft(ctx, session)
	if err != nil {
		return "", err
	}

	url, err := s.media.Upload(ctx, session.UserID, kind, contentType, body, size)
	if err != nil {
		return "", mapMediaError(err)
	}

	profile := app.Profile
	switch kind {
	case "photo":
		profile.PhotoURL = url
	case "signature":
		profile.SignatureURL = url
	case "thumbprint":
		profile.ThumbprintURL = url
	}
	if err := s.saveDraft(ctx, app, profile); err != nil {
		return "", err
	}
	return url, nil
}

// --- admin review ---

// ListCandidates returns one page of the filtered submission list. Pending
// submissions sort first; within each group the oldest submission leads.
func (s *Service) ListCandidates(ctx context.Context, searchText, status string, page int) (review.Page, error) {
	apps, err := s.store.ListSubmissions(ctx)
	if err != nil {
		return review.Page{}, err
	}

	if searchText != "" && s.search != nil {
		matched := s.search.MatchIDs(search.Query{Text: searchText}, toSearchRecords(apps))
		kept := apps[:0]
		for _, app := range apps {
			if matched[app.ID] {
				kept = append(kept, app)
			}
		}
		apps = kept
	} else if searchText != "" {
		apps = review.Filter(apps, searchText, "")
	}

	apps = review.Filter(apps, "", status)
	apps = review.SortPendingFirst(apps)
	return review.Paginate(apps, page), nil
}

// GetCandidate returns one submitted application with the candidate account.
func (s *Service) GetCandidate(ctx context.Context, id string) (store.Application, store.User, error) {
	app, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return store.Application{}, store.User{}, err
	}
	if !workflow.IsSubmitted(app.Status) {
		return store.Application{}, store.User{}, sql.ErrNoRows
	}
	user, err := s.store.GetUserByID(ctx, app.UserID)
	if err != nil {
		return store.Application{}, store.User{}, err
	}
	return app, user, nil
}

// CandidateHistory lists the archived snapshots of a submission.
func (s *Service) CandidateHistory(ctx context.Context, id string) ([]archive.CommitInfo, error) {
	if _, _, err := s.GetCandidate(ctx, id); err != nil {
		return nil, err
	}
	if s.archive == nil {
		return []archive.CommitInfo{}, nil
	}
	return s.archive.History(id, 0)
}

// Decide applies an admin decision to a pending submission. Re-confirming an
// identical decision succeeds without effect; a conflicting decision on a
// decided application fails.
func (s *Service) Decide(ctx context.Context, session Session, id, action string) (store.Application, error) {
	target := workflow.TargetStatus(action)
	if target == "" {
		return store.Application{}, domainError(http.StatusBadRequest, "UNKNOWN_ACTION", fmt.Sprintf("Unknown action %q", action), nil)
	}

	app, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return store.Application{}, err
	}
	if !workflow.IsSubmitted(app.Status) {
		return store.Application{}, sql.ErrNoRows
	}

	applied, err := s.store.DecideSubmission(ctx, id, target, session.UserID)
	if err != nil {
		return store.Application{}, err
	}

	decided, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return store.Application{}, err
	}

	if !applied {
		if decided.Status == target {
			// A retried or raced identical decision lands here.
			return decided, nil
		}
		return store.Application{}, domainError(http.StatusConflict, "ALREADY_DECIDED",
			fmt.Sprintf("Application already %s", decided.Status), nil)
	}

	if s.archive != nil {
		if _, err := s.archive.Snapshot(decided.ID, decided.Profile, session.UserName, target); err != nil {
			log.Printf("archive: snapshot decision %s: %v", decided.ID, err)
		}
	}
	if s.search != nil {
		s.search.IndexSubmission(toSearchRecord(decided))
	}
	s.notifyDecision(ctx, decided, target)

	return decided, nil
}

func (s *Service) notifyDecision(ctx context.Context, app store.Application, target string) {
	if s.email == nil || !s.email.IsConfigured() {
		return
	}
	user, err := s.store.GetUserByID(ctx, app.UserID)
	if err != nil {
		log.Printf("email: lookup candidate %s: %v", app.UserID, err)
		return
	}
	go func() {
		err := s.email.SendDecisionEmail(user.Email, user.DisplayName, s.cfg.OrgName, s.cfg.ExamName, target == store.StatusApproved)
		if err != nil {
			log.Printf("email: decision to %s: %v", user.Email, err)
		}
	}()
}

func mapMediaError(err error) error {
	switch {
	case errors.Is(err, media.ErrUnsupportedType):
		return domainError(http.StatusUnsupportedMediaType, "UNSUPPORTED_TYPE", "Only JPEG and PNG images are accepted", nil)
	case errors.Is(err, media.ErrTooLarge):
		return domainError(http.StatusRequestEntityTooLarge, "IMAGE_TOO_LARGE", "Image exceeds the size limit", nil)
	case errors.Is(err, media.ErrUnknownKind):
		return domainError(http.StatusBadRequest, "UNKNOWN_IMAGE_KIND", "Unknown image kind", nil)
	}
	return err
}

func toSearchRecord(app store.Application) search.SubmissionRecord {
	rec := search.SubmissionRecord{
		ID:         app.ID,
		UserID:     app.UserID,
		Name:       app.Profile.Name,
		NationalID: app.Profile.NationalID,
		Status:     app.Status,
	}
	if app.SubmittedAt != nil {
		rec.SubmittedAt = *app.SubmittedAt
	}
	return rec
}

func toSearchRecords(apps []store.Application) []search.SubmissionRecord {
	recs := make([]search.SubmissionRecord, 0, len(apps))
	for _, app := range apps {
		recs = append(recs, toSearchRecord(app))
	}
	return recs
}
