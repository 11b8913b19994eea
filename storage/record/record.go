// Package record is the structured persistence layer: conversation records,
// daily pronunciation scores, and the child profile, kept in a sqlite
// database via GORM.
package record

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Srahin000/bumblebee-smart-speaker/artifact"
)

// ConversationRecord is the persisted form of one completed pipeline run.
type ConversationRecord struct {
	ID                 string    `json:"id" gorm:"type:char(36);primaryKey"`
	SessionID          string    `json:"session_id" gorm:"type:char(36);index"`
	Timestamp          time.Time `json:"timestamp"`
	Transcription      string    `json:"transcription" gorm:"type:text"`
	Response           string    `json:"response" gorm:"type:text"`
	InputAudioLocator  string    `json:"input_audio_locator,omitempty"`
	OutputAudioLocator string    `json:"output_audio_locator,omitempty"`
}

// DailyScore accumulates pronunciation scoring for one calendar day.
type DailyScore struct {
	Date      string `json:"date" gorm:"primaryKey;size:10"` // YYYY-MM-DD
	Incorrect int    `json:"incorrect"`
	Total     int    `json:"total"`
}

// Profile is the single stored child profile used for personalization.
type Profile struct {
	ID          uint      `json:"-" gorm:"primaryKey"`
	Info        string    `json:"info" gorm:"type:text"`
	LastUpdated time.Time `json:"last_updated"`
}

// Store handles structured persistence using GORM.
type Store struct {
	db *gorm.DB
}

// NewStore opens (or creates) the sqlite database and migrates the tables.
func NewStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("record store: open database: %w", err)
	}

	if err := db.AutoMigrate(&ConversationRecord{}, &DailyScore{}, &Profile{}); err != nil {
		return nil, fmt.Errorf("record store: migrate tables: %w", err)
	}

	return &Store{db: db}, nil
}

// SaveArtifact persists the record of one completed run.
func (s *Store) SaveArtifact(ctx context.Context, art artifact.ConversationArtifact) error {
	rec := ConversationRecord{
		ID:                 art.ID,
		SessionID:          art.SessionID,
		Timestamp:          art.Timestamp,
		Transcription:      art.Transcription,
		Response:           art.Response,
		InputAudioLocator:  art.InputAudioLocator,
		OutputAudioLocator: art.OutputAudioLocator,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("record store: save artifact: %w", err)
	}
	return nil
}

// RecordsForSession returns a session's conversation records, oldest first.
func (s *Store) RecordsForSession(ctx context.Context, sessionID string) ([]ConversationRecord, error) {
	var recs []ConversationRecord
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("record store: load session records: %w", err)
	}
	return recs, nil
}

// AddDailyScore folds one analysis result into the day's running totals and
// returns the updated row.
func (s *Store) AddDailyScore(ctx context.Context, date string, incorrect, total int) (DailyScore, error) {
	var score DailyScore
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&score, "date = ?", date).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			score = DailyScore{Date: date, Incorrect: incorrect, Total: total}
			return tx.Create(&score).Error
		case err != nil:
			return err
		default:
			score.Incorrect += incorrect
			score.Total += total
			return tx.Save(&score).Error
		}
	})
	if err != nil {
		return DailyScore{}, fmt.Errorf("record store: add daily score: %w", err)
	}
	return score, nil
}

// Scores returns all daily scores ordered by date.
func (s *Store) Scores(ctx context.Context) ([]DailyScore, error) {
	var scores []DailyScore
	if err := s.db.WithContext(ctx).Order("date").Find(&scores).Error; err != nil {
		return nil, fmt.Errorf("record store: load scores: %w", err)
	}
	return scores, nil
}

// Profile returns the stored child profile, or an empty one if none exists.
func (s *Store) Profile(ctx context.Context) (Profile, error) {
	var p Profile
	err := s.db.WithContext(ctx).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Profile{}, nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("record store: load profile: %w", err)
	}
	return p, nil
}

// SaveProfile replaces the stored child profile.
func (s *Store) SaveProfile(ctx context.Context, info string) error {
	p := Profile{ID: 1, Info: info, LastUpdated: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Save(&p).Error; err != nil {
		return fmt.Errorf("record store: save profile: %w", err)
	}
	return nil
}
