package database

// HistoryRepo handles conversion history database operations
type HistoryRepo struct {
	db *DB
}

// NewHistoryRepo creates a new history repository
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// Record appends a conversion record
func (r *HistoryRepo) Record(record *ConversionRecord) error {
	return r.db.conn.Create(record).Error
}

// List retrieves history records, newest first, with an optional status filter
func (r *HistoryRepo) List(status string, limit, offset int) ([]*ConversionRecord, error) {
	query := r.db.conn.Model(&ConversionRecord{})

	if status != "" {
		query = query.Where("status = ?", status)
	}

	var records []*ConversionRecord
	err := query.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Count counts history records with an optional status filter
func (r *HistoryRepo) Count(status string) (int, error) {
	query := r.db.conn.Model(&ConversionRecord{})

	if status != "" {
		query = query.Where("status = ?", status)
	}

	var count int64
	err := query.Count(&count).Error
	return int(count), err
}
