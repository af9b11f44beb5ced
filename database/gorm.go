package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/models"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const pgErrUniqueViolation = "23505"

// SQLStore keeps transactions in a relational database through gorm.
type SQLStore struct {
	db *gorm.DB
}

// ConnectPostgres opens the managed Postgres record store. A non-empty
// credential replaces the password in dsn.
func ConnectPostgres(dsn, credential string) (*SQLStore, error) {
	dsn = withPassword(dsn, credential)
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("🗄️ Connected to Postgres!")
	return NewSQLStore(db)
}

func ConnectSQLite(path string) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewSQLStore(db)
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
}

func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&models.Transaction{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func withPassword(dsn, credential string) string {
	if credential == "" {
		return dsn
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return dsn
		}
		user := "postgres"
		if u.User != nil && u.User.Username() != "" {
			user = u.User.Username()
		}
		u.User = url.UserPassword(user, credential)
		return u.String()
	}
	return dsn + " password=" + credential
}

func (s *SQLStore) Create(ctx context.Context, tx *models.Transaction) error {
	if err := s.db.WithContext(ctx).Create(tx).Error; err != nil {
		return mapSQLError(err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*models.Transaction, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *SQLStore) GetBySessionID(ctx context.Context, sessionID string) (*models.Transaction, error) {
	return s.first(ctx, "stripe_session_id = ?", sessionID)
}

func (s *SQLStore) first(ctx context.Context, query string, arg interface{}) (*models.Transaction, error) {
	var tx models.Transaction
	if err := s.db.WithContext(ctx).Where(query, arg).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (s *SQLStore) AttachSession(ctx context.Context, id, sessionID string) error {
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ? AND stripe_session_id IS NULL", id, models.TransactionStatusPending).
		Updates(map[string]interface{}{
			"stripe_session_id": sessionID,
			"updated_at":        time.Now(),
		})
	return s.checkUpdate(ctx, id, res)
}

// ClaimForProcessing runs the conditional update and the read-back in one
// database transaction so the returned row is the one that was claimed.
func (s *SQLStore) ClaimForProcessing(ctx context.Context, id string) (*models.Transaction, error) {
	var claimed models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		res := db.Model(&models.Transaction{}).
			Where("id = ? AND status = ?", id, models.TransactionStatusPending).
			Updates(map[string]interface{}{
				"status":     models.TransactionStatusProcessing,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return mapSQLError(res.Error)
		}
		if res.RowsAffected == 0 {
			return missOrConflict(db, id)
		}
		return db.Where("id = ?", id).First(&claimed).Error
	})
	if err != nil {
		return nil, err
	}
	return &claimed, nil
}

func (s *SQLStore) SetDeliveryMode(ctx context.Context, id string, mode models.DeliveryMode) error {
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TransactionStatusProcessing).
		Updates(map[string]interface{}{
			"delivery_mode": mode,
			"updated_at":    time.Now(),
		})
	return s.checkUpdate(ctx, id, res)
}

func (s *SQLStore) MarkCompleted(ctx context.Context, id, txHash string) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TransactionStatusProcessing).
		Updates(map[string]interface{}{
			"status":             models.TransactionStatusCompleted,
			"blockchain_tx_hash": txHash,
			"completed_at":       now,
			"updated_at":         now,
		})
	return s.checkUpdate(ctx, id, res)
}

func (s *SQLStore) MarkFailed(ctx context.Context, id, message string) error {
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TransactionStatusProcessing).
		Updates(map[string]interface{}{
			"status":        models.TransactionStatusFailed,
			"error_message": message,
			"updated_at":    time.Now(),
		})
	return s.checkUpdate(ctx, id, res)
}

func (s *SQLStore) checkUpdate(ctx context.Context, id string, res *gorm.DB) error {
	if res.Error != nil {
		return mapSQLError(res.Error)
	}
	if res.RowsAffected == 0 {
		return missOrConflict(s.db.WithContext(ctx), id)
	}
	return nil
}

func missOrConflict(db *gorm.DB, id string) error {
	var n int64
	if err := db.Model(&models.Transaction{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStatusConflict
}

func (s *SQLStore) List(ctx context.Context, status models.TransactionStatus, limit int) ([]models.Transaction, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC").Limit(clampLimit(limit))
	if status != "" {
		q = q.Where("status = ?", status)
	}
	txs := []models.Transaction{}
	if err := q.Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func mapSQLError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateSession
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
		return ErrDuplicateSession
	}
	return err
}
