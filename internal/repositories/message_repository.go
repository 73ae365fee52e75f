package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"conversation-service/internal/apperr"
	"conversation-service/internal/models"
)

var (
	ErrMessageNotFound = apperr.NotFound("message not found")
	// ErrOfferNotPending is returned when an offer transition loses to another one.
	ErrOfferNotPending = apperr.InvalidOfferState("offer is no longer pending")
)

const messageColumns = `id, uuid, conversation_id, sender_id, body, type, offer_amount, offer_status,
        is_read, read_at, created_at, updated_at, deleted_at`

// MessageRepository defines interactions for conversation messages.
type MessageRepository interface {
	Create(ctx context.Context, conv models.Conversation, msg *models.Message) error
	GetByUUID(ctx context.Context, id uuid.UUID, includeDeleted bool) (models.Message, error)
	ListForConversation(ctx context.Context, conversationID int64, limit, offset int, includeDeleted bool) ([]models.Message, int, error)
	LatestForConversations(ctx context.Context, conversationIDs []int64) (map[int64]models.Message, error)
	RespondToOffer(ctx context.Context, offer models.Message, status models.OfferStatus, notice *models.Message) error
	SoftDelete(ctx context.Context, messageID int64) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create stores a message and records the activity on its conversation: the
// last-activity timestamp moves and the sender's deleted flag is cleared.
func (r *MessageRepo) Create(ctx context.Context, conv models.Conversation, msg *models.Message) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "messageRepo.Create.begin")
	}
	defer tx.Rollback()

	if err := insertMessage(ctx, tx, conv.ID, msg); err != nil {
		return err
	}
	if err := touchConversation(ctx, tx, conv.ID, msg.SenderID, msg.CreatedAt); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "messageRepo.Create.commit")
}

// GetByUUID retrieves a single message by public id.
func (r *MessageRepo) GetByUUID(ctx context.Context, id uuid.UUID, includeDeleted bool) (models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE uuid = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, r.db.Rebind(query), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return models.Message{}, errors.Wrap(err, "messageRepo.GetByUUID")
	}
	return msg, nil
}

// ListForConversation returns a page of messages oldest first. Ties on
// created_at fall back to insertion order.
func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID int64, limit, offset int, includeDeleted bool) ([]models.Message, int, error) {
	where := ` WHERE conversation_id = ?`
	if !includeDeleted {
		where += ` AND deleted_at IS NULL`
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM messages`+where), conversationID); err != nil {
		return nil, 0, errors.Wrap(err, "messageRepo.ListForConversation.count")
	}

	msgs := []models.Message{}
	query := r.db.Rebind(`SELECT ` + messageColumns + ` FROM messages` + where + ` ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`)
	if err := r.db.SelectContext(ctx, &msgs, query, conversationID, limit, offset); err != nil {
		return nil, 0, errors.Wrap(err, "messageRepo.ListForConversation")
	}
	return msgs, total, nil
}

// LatestForConversations loads the newest visible message of each conversation in one query.
func (r *MessageRepo) LatestForConversations(ctx context.Context, conversationIDs []int64) (map[int64]models.Message, error) {
	latest := make(map[int64]models.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return latest, nil
	}

	query, args, err := sqlx.In(`SELECT `+messageColumns+` FROM messages WHERE id IN (
        SELECT MAX(id) FROM messages WHERE conversation_id IN (?) AND deleted_at IS NULL GROUP BY conversation_id)`, conversationIDs)
	if err != nil {
		return nil, errors.Wrap(err, "messageRepo.LatestForConversations.in")
	}

	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs, r.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "messageRepo.LatestForConversations")
	}
	for _, m := range msgs {
		latest[m.ConversationID] = m
	}
	return latest, nil
}

// RespondToOffer moves a pending offer to status and appends the system notice
// in the same transaction. The update is conditional on the offer still being
// pending, so concurrent responses cannot both succeed.
func (r *MessageRepo) RespondToOffer(ctx context.Context, offer models.Message, status models.OfferStatus, notice *models.Message) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "messageRepo.RespondToOffer.begin")
	}
	defer tx.Rollback()

	now := nowUTC()
	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE messages SET offer_status = ?, updated_at = ?
        WHERE id = ? AND type = ? AND offer_status = ?`), status, now, offer.ID, models.MessageTypeOffer, models.OfferPending)
	changed, err := affected(res, err, "messageRepo.RespondToOffer.update")
	if err != nil {
		return err
	}
	if !changed {
		return ErrOfferNotPending
	}

	if err := insertMessage(ctx, tx, offer.ConversationID, notice); err != nil {
		return err
	}
	if err := touchConversation(ctx, tx, offer.ConversationID, notice.SenderID, notice.CreatedAt); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "messageRepo.RespondToOffer.commit")
}

// SoftDelete hides a message from participant reads.
func (r *MessageRepo) SoftDelete(ctx context.Context, messageID int64) error {
	now := nowUTC()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE messages SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`), now, now, messageID)
	changed, err := affected(res, err, "messageRepo.SoftDelete")
	if err != nil {
		return err
	}
	if !changed {
		return ErrMessageNotFound
	}
	return nil
}

func insertMessage(ctx context.Context, tx *sqlx.Tx, conversationID int64, msg *models.Message) error {
	now := nowUTC()
	if msg.UUID == uuid.Nil {
		msg.UUID = uuid.New()
	}
	msg.ConversationID = conversationID
	msg.CreatedAt, msg.UpdatedAt = now, now

	query := tx.Rebind(`INSERT INTO messages (uuid, conversation_id, sender_id, body, type, offer_amount, offer_status, is_read, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, FALSE, ?, ?)
        RETURNING id`)
	err := tx.QueryRowxContext(ctx, query, msg.UUID, msg.ConversationID, msg.SenderID, msg.Body, msg.Type,
		msg.OfferAmount, msg.OfferStatus, now, now).Scan(&msg.ID)
	return errors.Wrap(err, "messageRepo.insert")
}

func touchConversation(ctx context.Context, tx *sqlx.Tx, conversationID, senderID int64, at time.Time) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE conversations SET last_message_at = ?, updated_at = ?,
        buyer_deleted = CASE WHEN buyer_id = ? THEN FALSE ELSE buyer_deleted END,
        seller_deleted = CASE WHEN seller_id = ? THEN FALSE ELSE seller_deleted END
        WHERE id = ?`), at, at, senderID, senderID, conversationID)
	return errors.Wrap(err, "messageRepo.touchConversation")
}
