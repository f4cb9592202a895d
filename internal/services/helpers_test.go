package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-cfp-voting/internal/domain"
	"github.com/tbourn/go-cfp-voting/internal/repo"
)

// repoAdapter forwards the service repository contracts to the repo package.
type repoAdapter struct{}

func (repoAdapter) GetCategory(ctx context.Context, db *gorm.DB, conferenceID, id uint) (*domain.Category, error) {
	return repo.GetCategory(ctx, db, conferenceID, id)
}
func (repoAdapter) ListCategoryProgress(ctx context.Context, db *gorm.DB, conferenceID uint, userID string) ([]repo.CategoryProgress, error) {
	return repo.ListCategoryProgress(ctx, db, conferenceID, userID)
}
func (repoAdapter) FindPendingVote(ctx context.Context, db *gorm.DB, userID string, categoryID uint) (*domain.Vote, error) {
	return repo.FindPendingVote(ctx, db, userID, categoryID)
}
func (repoAdapter) EligibleTalks(ctx context.Context, db *gorm.DB, userID string, categoryID uint) ([]repo.Candidate, error) {
	return repo.EligibleTalks(ctx, db, userID, categoryID)
}
func (repoAdapter) HasSkippedVotes(ctx context.Context, db *gorm.DB, userID string, categoryID uint) (bool, error) {
	return repo.HasSkippedVotes(ctx, db, userID, categoryID)
}
func (repoAdapter) ClearSkipped(ctx context.Context, db *gorm.DB, userID string, categoryID *uint) (int64, error) {
	return repo.ClearSkipped(ctx, db, userID, categoryID)
}
func (repoAdapter) CreateVote(ctx context.Context, db *gorm.DB, userID string, talkID uint) (*domain.Vote, error) {
	return repo.CreateVote(ctx, db, userID, talkID)
}
func (repoAdapter) GetVoteByPublicID(ctx context.Context, db *gorm.DB, publicID, userID string) (*domain.Vote, error) {
	return repo.GetVoteByPublicID(ctx, db, publicID, userID)
}
func (repoAdapter) UpdateVoteDecision(ctx context.Context, db *gorm.DB, v *domain.Vote) error {
	return repo.UpdateVoteDecision(ctx, db, v)
}
func (repoAdapter) CountVotes(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountVotes(ctx, db, userID)
}
func (repoAdapter) ListVotesPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Vote, error) {
	return repo.ListVotesPage(ctx, db, userID, offset, limit)
}
func (repoAdapter) VotesStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	return repo.VotesStats(ctx, db, userID)
}
func (repoAdapter) ListTalkStats(ctx context.Context, db *gorm.DB, conferenceID uint) ([]repo.TalkStats, error) {
	return repo.ListTalkStats(ctx, db, conferenceID)
}

func (repoAdapter) TalkVoteStats(ctx context.Context, db *gorm.DB, talkIDs ...uint) ([]repo.TalkStats, error) {
	return repo.TalkVoteStats(ctx, db, talkIDs...)
}
func (repoAdapter) GetTalk(ctx context.Context, db *gorm.DB, id uint) (*domain.Talk, error) {
	return repo.GetTalk(ctx, db, id)
}
func (repoAdapter) CreateConductReport(ctx context.Context, db *gorm.DB, talkID uint, userID *string, text string) (*domain.ConductReport, error) {
	return repo.CreateConductReport(ctx, db, talkID, userID, text)
}
func (repoAdapter) GetConductReport(ctx context.Context, db *gorm.DB, id uint) (*domain.ConductReport, error) {
	return repo.GetConductReport(ctx, db, id)
}

// now is the fixed instant every test runs at; the voting window spans it.
var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func fixedGate() *Gate { return &Gate{Now: func() time.Time { return now }} }

type env struct {
	db      *gorm.DB
	conf    *domain.Conference
	backend *domain.Category
	web     *domain.Category
	svc     *VotingService
}

// newEnv opens a single-connection in-memory database with an open voting
// window and two categories.
func newEnv(t *testing.T) *env {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Exec("PRAGMA foreign_keys=ON;").Error)
	require.NoError(t, repo.AutoMigrate(db))

	ctx := context.Background()
	begin, end := now.Add(-24*time.Hour), now.Add(24*time.Hour)
	conf, err := repo.EnsureConference(ctx, db, repo.ConferenceSettings{
		Name: "GopherCon", ConductEmail: "coc@example.org", VotingBegin: &begin, VotingEnd: &end,
	})
	require.NoError(t, err)
	backend, err := repo.CreateCategory(ctx, db, conf.ID, "backend")
	require.NoError(t, err)
	web, err := repo.CreateCategory(ctx, db, conf.ID, "web")
	require.NoError(t, err)

	svc := NewVotingService(db, repoAdapter{}, fixedGate())
	return &env{db: db, conf: conf, backend: backend, web: web, svc: svc}
}

func (e *env) talk(t *testing.T, title string, categoryIDs ...uint) *domain.Talk {
	t.Helper()
	tk := &domain.Talk{Title: title, IsAnonymized: true, AnonymizedTitle: "anon " + title}
	require.NoError(t, repo.CreateTalk(context.Background(), e.db, tk, categoryIDs...))
	return tk
}

// votes gives talkID n decided votes from throwaway voters.
func (e *env) votes(t *testing.T, talkID uint, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		v, err := repo.CreateVote(ctx, e.db, uuid.NewString(), talkID)
		require.NoError(t, err)
		one, no := 1, false
		v.Value, v.Skipped = &one, &no
		require.NoError(t, repo.UpdateVoteDecision(ctx, e.db, v))
	}
}

func intPtr(v int) *int { return &v }
