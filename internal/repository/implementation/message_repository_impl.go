package implementation

import (
	"context"
	"time"

	"talkback-be/internal/entity"
	"talkback-be/internal/mapper"
	"talkback-be/internal/model"
	"talkback-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.MessageMapper
}

func NewMessageRepository(db *gorm.DB) contract.MessageRepository {
	return &MessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewMessageMapper(),
	}
}

func (r *MessageRepositoryImpl) Append(ctx context.Context, message *entity.Message) (*entity.Message, error) {
	m := r.mapper.ToModel(message)
	if m.Id == uuid.Nil {
		m.Id = uuid.New()
	}
	m.Timestamp = time.Now()
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntity(m), nil
}

// FetchByParticipant queries both directions in one statement so a message
// where the participant is sender and receiver at once appears exactly once.
func (r *MessageRepositoryImpl) FetchByParticipant(ctx context.Context, participantUrn string, conversationKind string) ([]*entity.Message, error) {
	query := r.db.WithContext(ctx).Where("sender_urn = ? OR receiver_urn = ?", participantUrn, participantUrn)
	if conversationKind != "" {
		query = query.Where("conversation_kind = ?", conversationKind)
	}

	var models []*model.Message
	if err := query.Order("timestamp DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	entities := make([]*entity.Message, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *MessageRepositoryImpl) FetchByConversation(ctx context.Context, conversationId string, conversationKind string) ([]*entity.Message, error) {
	query := r.db.WithContext(ctx).Where("conversation_id = ?", conversationId)
	if conversationKind != "" {
		query = query.Where("conversation_kind = ?", conversationKind)
	}

	var models []*model.Message
	if err := query.Order("timestamp DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	entities := make([]*entity.Message, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *MessageRepositoryImpl) DeleteByConversation(ctx context.Context, conversationId string) bool {
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationId).
		Delete(&model.Message{}).Error
	return err == nil
}
