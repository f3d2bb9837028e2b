package metadata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ivlev/prompt2path/internal/analyzer"
	"github.com/ivlev/prompt2path/internal/config"
	"github.com/ivlev/prompt2path/internal/source"
	apperrors "github.com/ivlev/prompt2path/pkg/errors"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

var tracer = otel.Tracer("metadata")

// modelMetadataRecord is the model_metadata row. Nested values are jsonb.
type modelMetadataRecord struct {
	ModelID            string               `gorm:"primaryKey;column:model_id"`
	OwnerID            string               `gorm:"column:owner_id;index"`
	Orientation        source.Orientation   `gorm:"type:jsonb;serializer:json"`
	SceneSummary       *analyzer.Summary    `gorm:"type:jsonb;serializer:json"`
	EnvironmentSummary *EnvironmentMetadata `gorm:"type:jsonb;serializer:json"`
	Preferences        Preferences          `gorm:"type:jsonb;serializer:json"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (modelMetadataRecord) TableName() string { return "model_metadata" }

func toRecord(id string, md *ModelMetadata) *modelMetadataRecord {
	return &modelMetadataRecord{
		ModelID:            id,
		OwnerID:            md.OwnerID,
		Orientation:        md.Orientation,
		SceneSummary:       md.SceneSummary,
		EnvironmentSummary: md.EnvironmentSummary,
		Preferences:        md.Preferences,
	}
}

func (r *modelMetadataRecord) toMetadata() *ModelMetadata {
	return &ModelMetadata{
		ModelID:            r.ModelID,
		OwnerID:            r.OwnerID,
		Orientation:        r.Orientation,
		SceneSummary:       r.SceneSummary,
		EnvironmentSummary: r.EnvironmentSummary,
		Preferences:        r.Preferences,
		UpdatedAt:          r.UpdatedAt,
	}
}

// OpenPostgres connects gorm to PostgreSQL and configures the pool.
func OpenPostgres(ctx context.Context, cfg config.PostgresConfig, debug bool) (*gorm.DB, error) {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	gormLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// PostgresStore is the durable metadata store.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates or updates the model_metadata table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&modelMetadataRecord{}); err != nil {
		return fmt.Errorf("failed to migrate model_metadata: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.Ping")
	defer span.End()

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *PostgresStore) GetModelMetadata(ctx context.Context, id string) (*ModelMetadata, error) {
	ctx, span := tracer.Start(ctx, "postgres.GetModelMetadata")
	defer span.End()

	var rec modelMetadataRecord
	if err := s.db.WithContext(ctx).First(&rec, "model_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound.WithDetail("model " + id)
		}
		span.RecordError(err)
		return nil, apperrors.ErrDatabase.WithError(fmt.Errorf("failed to get model metadata: %w", err))
	}
	return rec.toMetadata(), nil
}

func (s *PostgresStore) StoreModelMetadata(ctx context.Context, id string, md *ModelMetadata) error {
	ctx, span := tracer.Start(ctx, "postgres.StoreModelMetadata")
	defer span.End()

	if md == nil {
		return apperrors.ErrInvalidParam.WithDetail("metadata is nil")
	}
	rec := toRecord(id, md)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "model_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"owner_id", "orientation", "scene_summary", "environment_summary", "preferences", "updated_at"}),
		}).
		Create(rec).Error
	if err != nil {
		span.RecordError(err)
		return apperrors.ErrDatabase.WithError(fmt.Errorf("failed to store model metadata: %w", err))
	}
	return nil
}

// StoreEnvironmentalMetadata upserts only the environment column.
func (s *PostgresStore) StoreEnvironmentalMetadata(ctx context.Context, id string, env *EnvironmentMetadata) error {
	ctx, span := tracer.Start(ctx, "postgres.StoreEnvironmentalMetadata")
	defer span.End()

	if env == nil {
		return apperrors.ErrInvalidParam.WithDetail("environment is nil")
	}
	rec := &modelMetadataRecord{ModelID: id, EnvironmentSummary: env}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "model_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"environment_summary", "updated_at"}),
		}).
		Create(rec).Error
	if err != nil {
		span.RecordError(err)
		return apperrors.ErrDatabase.WithError(fmt.Errorf("failed to store environment metadata: %w", err))
	}
	return nil
}
