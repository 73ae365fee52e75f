package repositories

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"conversation-service/internal/apperr"
	"conversation-service/internal/models"
)

var (
	ErrConversationNotFound = apperr.NotFound("conversation not found")
	// ErrConversationExists is returned when the (listing, buyer, seller) triple is taken.
	ErrConversationExists = apperr.Conflict("conversation already exists")
)

const conversationColumns = `id, uuid, listing_id, buyer_id, seller_id, buyer_last_read_at, seller_last_read_at,
        buyer_deleted, seller_deleted, is_blocked, blocked_by, last_message_at, created_at, updated_at`

// visibleToUser matches conversations the user takes part in and has not deleted.
const visibleToUser = `((buyer_id = ? AND buyer_deleted = FALSE) OR (seller_id = ? AND seller_deleted = FALSE))`

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	Create(ctx context.Context, conv *models.Conversation) error
	FindByParticipants(ctx context.Context, listingID, buyerID, sellerID int64) (models.Conversation, error)
	GetByUUID(ctx context.Context, id uuid.UUID) (models.Conversation, error)
	GetByID(ctx context.Context, id int64) (models.Conversation, error)
	ListForUser(ctx context.Context, userID int64, limit, offset int) ([]models.Conversation, int, error)
	UnreadCounts(ctx context.Context, conversationIDs []int64, userID int64) (map[int64]int, error)
	TotalUnread(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, conv models.Conversation, userID int64, at time.Time) (int64, error)
	SetDeleted(ctx context.Context, conv models.Conversation, userID int64, deleted bool) error
	Block(ctx context.Context, conversationID int64, userID int64) (bool, error)
	Unblock(ctx context.Context, conversationID int64, userID int64) (bool, error)
	AdminList(ctx context.Context, blocked *bool, limit, offset int) ([]models.AdminConversationSummary, int, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// Create inserts a conversation. A taken triple yields ErrConversationExists
// instead of a driver error so callers can fall back to a lookup.
func (r *ConversationRepo) Create(ctx context.Context, conv *models.Conversation) error {
	now := nowUTC()
	if conv.UUID == uuid.Nil {
		conv.UUID = uuid.New()
	}
	conv.CreatedAt, conv.UpdatedAt = now, now

	query := r.db.Rebind(`INSERT INTO conversations (uuid, listing_id, buyer_id, seller_id, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT (listing_id, buyer_id, seller_id) DO NOTHING
        RETURNING id`)
	err := r.db.QueryRowxContext(ctx, query, conv.UUID, conv.ListingID, conv.BuyerID, conv.SellerID, now, now).Scan(&conv.ID)
	if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
		return ErrConversationExists
	}
	return errors.Wrap(err, "conversationRepo.Create")
}

// FindByParticipants looks a conversation up by its unique triple.
func (r *ConversationRepo) FindByParticipants(ctx context.Context, listingID, buyerID, sellerID int64) (models.Conversation, error) {
	query := r.db.Rebind(`SELECT ` + conversationColumns + ` FROM conversations WHERE listing_id = ? AND buyer_id = ? AND seller_id = ?`)
	return r.getOne(ctx, "FindByParticipants", query, listingID, buyerID, sellerID)
}

// GetByUUID fetches a conversation by its public identifier.
func (r *ConversationRepo) GetByUUID(ctx context.Context, id uuid.UUID) (models.Conversation, error) {
	query := r.db.Rebind(`SELECT ` + conversationColumns + ` FROM conversations WHERE uuid = ?`)
	return r.getOne(ctx, "GetByUUID", query, id)
}

// GetByID fetches a conversation by its internal id.
func (r *ConversationRepo) GetByID(ctx context.Context, id int64) (models.Conversation, error) {
	query := r.db.Rebind(`SELECT ` + conversationColumns + ` FROM conversations WHERE id = ?`)
	return r.getOne(ctx, "GetByID", query, id)
}

func (r *ConversationRepo) getOne(ctx context.Context, op, query string, args ...any) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return models.Conversation{}, errors.Wrap(err, "conversationRepo."+op)
	}
	return conv, nil
}

// ListForUser returns a page of the user's visible, unblocked conversations
// ordered by last activity, plus the total number of such conversations.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]models.Conversation, int, error) {
	where := ` WHERE ` + visibleToUser + ` AND is_blocked = FALSE`

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM conversations`+where), userID, userID); err != nil {
		return nil, 0, errors.Wrap(err, "conversationRepo.ListForUser.count")
	}

	query := r.db.Rebind(`SELECT ` + conversationColumns + ` FROM conversations` + where + `
        ORDER BY COALESCE(last_message_at, created_at) DESC, id DESC
        LIMIT ? OFFSET ?`)
	convs := []models.Conversation{}
	if err := r.db.SelectContext(ctx, &convs, query, userID, userID, limit, offset); err != nil {
		return nil, 0, errors.Wrap(err, "conversationRepo.ListForUser")
	}
	return convs, total, nil
}

// UnreadCounts computes unread counts for a page of conversations in a single
// grouped query. Conversations without unread messages are absent from the map.
func (r *ConversationRepo) UnreadCounts(ctx context.Context, conversationIDs []int64, userID int64) (map[int64]int, error) {
	counts := make(map[int64]int, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return counts, nil
	}

	query, args, err := sqlx.In(`SELECT conversation_id, COUNT(*) AS unread_count FROM messages
        WHERE conversation_id IN (?) AND sender_id <> ? AND is_read = FALSE AND deleted_at IS NULL
        GROUP BY conversation_id`, conversationIDs, userID)
	if err != nil {
		return nil, errors.Wrap(err, "conversationRepo.UnreadCounts.in")
	}

	var rows []models.UnreadCount
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "conversationRepo.UnreadCounts")
	}
	for _, row := range rows {
		counts[row.ConversationID] = row.Count
	}
	return counts, nil
}

// TotalUnread counts unread messages across all of the user's visible, unblocked conversations.
func (r *ConversationRepo) TotalUnread(ctx context.Context, userID int64) (int, error) {
	query := r.db.Rebind(`SELECT COUNT(*) FROM messages m
        JOIN conversations c ON c.id = m.conversation_id
        WHERE m.sender_id <> ? AND m.is_read = FALSE AND m.deleted_at IS NULL
        AND c.is_blocked = FALSE
        AND ((c.buyer_id = ? AND c.buyer_deleted = FALSE) OR (c.seller_id = ? AND c.seller_deleted = FALSE))`)
	var total int
	if err := r.db.GetContext(ctx, &total, query, userID, userID, userID); err != nil {
		return 0, errors.Wrap(err, "conversationRepo.TotalUnread")
	}
	return total, nil
}

// MarkRead advances the user's read cursor and flags the counterpart's unread
// messages as read. The two updates are not atomic with each other.
func (r *ConversationRepo) MarkRead(ctx context.Context, conv models.Conversation, userID int64, at time.Time) (int64, error) {
	side, err := conv.SideOf(userID)
	if err != nil {
		return 0, err
	}
	column := "buyer_last_read_at"
	if side == models.SideSeller {
		column = "seller_last_read_at"
	}

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE conversations SET `+column+` = ?, updated_at = ? WHERE id = ?`), at, at, conv.ID); err != nil {
		return 0, errors.Wrap(err, "conversationRepo.MarkRead.cursor")
	}

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE messages SET is_read = TRUE, read_at = ?, updated_at = ?
        WHERE conversation_id = ? AND sender_id <> ? AND is_read = FALSE`), at, at, conv.ID, userID)
	if err != nil {
		return 0, errors.Wrap(err, "conversationRepo.MarkRead.messages")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "conversationRepo.MarkRead.rows")
}

// SetDeleted toggles the per-side visibility flag of the user.
func (r *ConversationRepo) SetDeleted(ctx context.Context, conv models.Conversation, userID int64, deleted bool) error {
	side, err := conv.SideOf(userID)
	if err != nil {
		return err
	}
	column := "buyer_deleted"
	if side == models.SideSeller {
		column = "seller_deleted"
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(`UPDATE conversations SET `+column+` = ?, updated_at = ? WHERE id = ?`), deleted, nowUTC(), conv.ID)
	return errors.Wrap(err, "conversationRepo.SetDeleted")
}

// Block marks the conversation blocked by userID unless it is already blocked.
// It reports whether this call changed the state.
func (r *ConversationRepo) Block(ctx context.Context, conversationID int64, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE conversations SET is_blocked = TRUE, blocked_by = ?, updated_at = ?
        WHERE id = ? AND is_blocked = FALSE`), userID, nowUTC(), conversationID)
	return affected(res, err, "conversationRepo.Block")
}

// Unblock clears the block if it was placed by userID.
func (r *ConversationRepo) Unblock(ctx context.Context, conversationID int64, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE conversations SET is_blocked = FALSE, blocked_by = NULL, updated_at = ?
        WHERE id = ? AND is_blocked = TRUE AND blocked_by = ?`), nowUTC(), conversationID, userID)
	return affected(res, err, "conversationRepo.Unblock")
}

// AdminList pages over every conversation regardless of participant flags.
func (r *ConversationRepo) AdminList(ctx context.Context, blocked *bool, limit, offset int) ([]models.AdminConversationSummary, int, error) {
	where := ""
	var args []any
	if blocked != nil {
		where = ` WHERE c.is_blocked = ?`
		args = append(args, *blocked)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM conversations c`+where), args...); err != nil {
		return nil, 0, errors.Wrap(err, "conversationRepo.AdminList.count")
	}

	query := r.db.Rebind(`SELECT ` + prefixColumns("c", conversationColumns) + `,
        (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id) AS messages_count
        FROM conversations c` + where + `
        ORDER BY c.created_at DESC, c.id DESC
        LIMIT ? OFFSET ?`)
	rows := []models.AdminConversationSummary{}
	if err := r.db.SelectContext(ctx, &rows, query, append(args, limit, offset)...); err != nil {
		return nil, 0, errors.Wrap(err, "conversationRepo.AdminList")
	}
	return rows, total, nil
}

func affected(res sql.Result, err error, op string) (bool, error) {
	if err != nil {
		return false, errors.Wrap(err, op)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, op)
	}
	return n > 0, nil
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
