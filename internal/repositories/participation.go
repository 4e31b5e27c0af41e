package repositories

import (
	"context"
	"time"

	"example.com/alumni/services/events/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ParticipationRepository provides access to the participation ledger
type ParticipationRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewParticipationRepository creates a new participation repository
func NewParticipationRepository(db *gorm.DB, readOnlyDB *gorm.DB) *ParticipationRepository {
	return &ParticipationRepository{db: db, readOnlyDB: readOnlyDB}
}

// WithTx returns a repository bound to tx for both reads and writes
func (r *ParticipationRepository) WithTx(tx *gorm.DB) *ParticipationRepository {
	return &ParticipationRepository{db: tx, readOnlyDB: tx}
}

// Create inserts a participation. A second row for the same pair yields ErrDuplicateKey.
func (r *ParticipationRepository) Create(ctx context.Context, p *models.Participation) error {
	return translate(r.db.WithContext(ctx).Create(p).Error, "failed to create participation")
}

// Update writes the status and message of an existing participation
func (r *ParticipationRepository) Update(ctx context.Context, p *models.Participation) error {
	err := r.db.WithContext(ctx).
		Model(p).
		Updates(map[string]interface{}{
			"status":     p.Status,
			"message":    p.Message,
			"updated_at": time.Now(),
		}).Error
	return translate(err, "failed to update participation")
}

// Delete removes a participation by ID
func (r *ParticipationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Participation{})
	if res.Error != nil {
		return translate(res.Error, "failed to delete participation")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "failed to delete participation")
	}
	return nil
}

// Get returns the participation for the pair
func (r *ParticipationRepository) Get(ctx context.Context, eventID uuid.UUID, participantID string) (*models.Participation, error) {
	var p models.Participation
	err := r.readOnlyDB.WithContext(ctx).
		Where("event_id = ? AND participant_id = ?", eventID, participantID).
		First(&p).Error
	if err != nil {
		return nil, translate(err, "failed to get participation")
	}
	return &p, nil
}

// ListByEvent lists every participation for an event in RSVP order
func (r *ParticipationRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Participation, error) {
	var ps []models.Participation
	err := r.readOnlyDB.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at, id").
		Find(&ps).Error
	if err != nil {
		return nil, translate(err, "failed to list participations by event")
	}
	return ps, nil
}

// ListByParticipant lists every participation of a participant, newest first
func (r *ParticipationRepository) ListByParticipant(ctx context.Context, participantID string) ([]models.Participation, error) {
	var ps []models.Participation
	err := r.readOnlyDB.WithContext(ctx).
		Where("participant_id = ?", participantID).
		Order("created_at DESC, id").
		Find(&ps).Error
	if err != nil {
		return nil, translate(err, "failed to list participations by participant")
	}
	return ps, nil
}

// ListByEventAndStatus lists an event's participations with the given status
func (r *ParticipationRepository) ListByEventAndStatus(ctx context.Context, eventID uuid.UUID, status models.ParticipationStatus) ([]models.Participation, error) {
	var ps []models.Participation
	err := r.readOnlyDB.WithContext(ctx).
		Where("event_id = ? AND status = ?", eventID, status).
		Order("created_at, id").
		Find(&ps).Error
	if err != nil {
		return nil, translate(err, "failed to list participations by status")
	}
	return ps, nil
}

// CountByStatus counts an event's participations with the given status
func (r *ParticipationRepository) CountByStatus(ctx context.Context, eventID uuid.UUID, status models.ParticipationStatus) (int64, error) {
	var count int64
	err := r.readOnlyDB.WithContext(ctx).
		Model(&models.Participation{}).
		Where("event_id = ? AND status = ?", eventID, status).
		Count(&count).Error
	if err != nil {
		return 0, translate(err, "failed to count participations")
	}
	return count, nil
}

type statusCount struct {
	Status models.ParticipationStatus
	Total  int64
}

// Snapshot groups an event's ledger by status and reports the first and last RSVP times
func (r *ParticipationRepository) Snapshot(ctx context.Context, eventID uuid.UUID) (*models.ParticipationCounts, error) {
	db := r.readOnlyDB.WithContext(ctx)

	var rows []statusCount
	err := db.Model(&models.Participation{}).
		Select("status, COUNT(*) AS total").
		Where("event_id = ?", eventID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "failed to group participations")
	}

	counts := &models.ParticipationCounts{EventID: eventID}
	for _, row := range rows {
		switch row.Status {
		case models.StatusGoing:
			counts.Going = row.Total
		case models.StatusMaybe:
			counts.Maybe = row.Total
		case models.StatusNotGoing:
			counts.NotGoing = row.Total
		}
	}

	var first, last models.Participation
	if err := db.Where("event_id = ?", eventID).Order("created_at ASC").Limit(1).Find(&first).Error; err != nil {
		return nil, translate(err, "failed to find first participation")
	}
	if err := db.Where("event_id = ?", eventID).Order("created_at DESC").Limit(1).Find(&last).Error; err != nil {
		return nil, translate(err, "failed to find last participation")
	}
	if first.ID != uuid.Nil {
		counts.FirstAt = &first.CreatedAt
		counts.LastAt = &last.CreatedAt
	}

	return counts, nil
}
