// Package stats persists per-player match statistics. Writes are
// best-effort; the game never blocks on or fails because of them.
package stats

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type PlayerStats struct {
	UserID       string  `gorm:"primaryKey;column:user_id" json:"userId"`
	Username     string  `gorm:"column:username" json:"username"`
	GamesPlayed  int     `gorm:"column:games_played" json:"gamesPlayed"`
	GamesWon     int     `gorm:"column:games_won" json:"gamesWon"`
	TotalScore   int     `gorm:"column:total_score" json:"totalScore"`
	BestScore    int     `gorm:"column:best_score" json:"bestScore"`
	WordsGuessed int     `gorm:"column:words_guessed" json:"wordsGuessed"`
	WinRate      float64 `gorm:"-" json:"winRate"`
}

func (PlayerStats) TableName() string { return "player_stats" }

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&PlayerStats{}); err != nil {
		return nil, err
	}
	return &Store{db: db, log: log}, nil
}

// RecordGame increments a player's aggregates for one finished game.
// A nil store is a no-op.
func (s *Store) RecordGame(ctx context.Context, userID, username string, score int, won bool) {
	if s == nil {
		return
	}
	wonInc := 0
	if won {
		wonInc = 1
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"username":     username,
			"games_played": gorm.Expr("player_stats.games_played + 1"),
			"games_won":    gorm.Expr("player_stats.games_won + ?", wonInc),
			"total_score":  gorm.Expr("player_stats.total_score + ?", score),
			"best_score":   gorm.Expr("GREATEST(player_stats.best_score, ?)", score),
		}),
	}).Create(&PlayerStats{
		UserID:      userID,
		Username:    username,
		GamesPlayed: 1,
		GamesWon:    wonInc,
		TotalScore:  score,
		BestScore:   score,
	}).Error
	if err != nil {
		s.log.Warn("record game stats failed", zap.String("userId", userID), zap.Error(err))
	}
}

// AddWordsGuessed credits correctly explained words to a player. Words
// are credited at round end, which can precede the player's first
// RecordGame row, so this upserts like RecordGame does.
func (s *Store) AddWordsGuessed(ctx context.Context, userID string, n int) {
	if s == nil || n <= 0 {
		return
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"words_guessed": gorm.Expr("player_stats.words_guessed + ?", n),
		}),
	}).Create(&PlayerStats{
		UserID:       userID,
		WordsGuessed: n,
	}).Error
	if err != nil {
		s.log.Warn("update words guessed failed", zap.String("userId", userID), zap.Error(err))
	}
}

func (s *Store) Player(ctx context.Context, userID string) (*PlayerStats, error) {
	if s == nil {
		return nil, gorm.ErrRecordNotFound
	}
	var p PlayerStats
	if err := s.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	p.WinRate = winRate(p)
	return &p, nil
}

func (s *Store) Leaderboard(ctx context.Context, limit int) ([]PlayerStats, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	var rows []PlayerStats
	err := s.db.WithContext(ctx).
		Where("games_played > 0").
		Order("total_score DESC, games_won DESC, best_score DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].WinRate = winRate(rows[i])
	}
	return rows, nil
}

func winRate(p PlayerStats) float64 {
	if p.GamesPlayed == 0 {
		return 0
	}
	return float64(p.GamesWon) / float64(p.GamesPlayed) * 100
}
