// Package services – ConductService
//
// ConductService records code-of-conduct reports about talks and notifies
// the conference's conduct contact. The notification never fails the
// request: delivery errors are logged.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-cfp-voting/internal/domain"
	"github.com/tbourn/go-cfp-voting/internal/mail"
	"github.com/tbourn/go-cfp-voting/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ConductRepo defines the repository contract required by ConductService.
type ConductRepo interface {
	GetTalk(ctx context.Context, db *gorm.DB, id uint) (*domain.Talk, error)
	CreateConductReport(ctx context.Context, db *gorm.DB, talkID uint, userID *string, text string) (*domain.ConductReport, error)
	GetConductReport(ctx context.Context, db *gorm.DB, id uint) (*domain.ConductReport, error)
}

// ConductService files conduct reports.
type ConductService struct {
	DB       *gorm.DB
	Repo     ConductRepo
	Notifier mail.Notifier

	// MaxTextRunes caps report length; 0 disables the cap.
	MaxTextRunes int
}

// NewConductService constructs a ConductService.
func NewConductService(db *gorm.DB, r ConductRepo, n mail.Notifier, maxRunes int) *ConductService {
	return &ConductService{DB: db, Repo: r, Notifier: n, MaxTextRunes: maxRunes}
}

// Report stores a report about talkID and mails the conduct contact. When
// anonymous is true the reporter's id is not stored or mailed.
func (s *ConductService) Report(ctx context.Context, conf *domain.Conference, userID string, talkID uint, text string, anonymous bool) (_ *domain.ConductReport, err error) {
	tr := otel.Tracer("services/ConductService")
	ctx, span := tr.Start(ctx, "Report",
		trace.WithAttributes(
			attribute.Int64("talk.id", int64(talkID)),
			attribute.Bool("report.anonymous", anonymous),
		),
	)
	defer span.End()
	defer func() { traceErr(span, err) }()

	text = strings.TrimSpace(norm.NFC.String(text))
	if text == "" {
		return nil, ErrEmptyReport
	}
	if s.MaxTextRunes > 0 && utf8.RuneCountInString(text) > s.MaxTextRunes {
		return nil, ErrReportTooLong
	}
	if conf == nil || strings.TrimSpace(conf.ConductEmail) == "" {
		return nil, ErrNoConductContact
	}

	talk, err := s.Repo.GetTalk(ctx, s.DB, talkID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrTalkNotFound
	}
	if err != nil {
		return nil, err
	}

	var reporter *string
	if !anonymous && userID != "" {
		reporter = &userID
	}
	rep, err := s.Repo.CreateConductReport(ctx, s.DB, talk.ID, reporter, text)
	if err != nil {
		return nil, err
	}

	data := map[string]any{
		"Conference": conf.Name,
		"TalkID":     talk.ID,
		"TalkTitle":  talk.Title,
		"ReportID":   rep.ID,
		"Reporter":   "",
		"Text":       text,
	}
	if reporter != nil {
		data["Reporter"] = *reporter
	}
	if s.Notifier != nil {
		if err := s.Notifier.Notify(ctx, []string{conf.ConductEmail}, mail.ConductReportTemplate, data); err != nil {
			logFrom(ctx).Error().Err(err).
				Uint("report_id", rep.ID).
				Msg("conduct report notification failed")
		}
	}
	return rep, nil
}

// Get returns a stored report. Replayed requests use it to answer with the
// report the first attempt created.
func (s *ConductService) Get(ctx context.Context, id uint) (*domain.ConductReport, error) {
	rep, err := s.Repo.GetConductReport(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrReportNotFound
	}
	return rep, err
}
