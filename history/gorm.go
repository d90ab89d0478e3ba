package history

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the MySQL database at dsn, e.g.
// "user:pass@tcp(127.0.0.1:3306)/spritemov?parseTime=true".
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	return db, nil
}

// GormStore keeps records in a SQL database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&RenderRecord{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Save(r *RenderRecord) error {
	existing := &RenderRecord{}
	err := s.db.Where("job_id = ?", r.JobID).First(existing).Error
	switch {
	case err == nil:
		r.ID = existing.ID
		r.CreatedAt = existing.CreatedAt
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}
	return s.db.Save(r).Error
}

func (s *GormStore) Get(jobID string) (*RenderRecord, error) {
	r := &RenderRecord{}
	if err := s.db.Where("job_id = ?", jobID).First(r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

func (s *GormStore) List(limit int) ([]*RenderRecord, error) {
	var rs []*RenderRecord
	q := s.db.Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rs).Error; err != nil {
		return nil, err
	}
	return rs, nil
}

func (s *GormStore) Delete(jobID string) error {
	res := s.db.Unscoped().Where("job_id = ?", jobID).Delete(&RenderRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	log.Infof("Removed render record %v", jobID)
	return nil
}
