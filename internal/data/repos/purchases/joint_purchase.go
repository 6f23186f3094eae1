package purchases

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/jointbuy-backend/internal/domain/purchases"
	"github.com/yungbote/jointbuy-backend/internal/platform/dbctx"
	"github.com/yungbote/jointbuy-backend/internal/platform/logger"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PurchaseFilter narrows Find. Zero values mean "any".
type PurchaseFilter struct {
	CategoryIDs []uuid.UUID
	CityID      *uuid.UUID
	CreatorID   *uuid.UUID
	GoodID      *uuid.UUID
	State       *types.PurchaseState
	IsPublic    *bool
	Query       string
}

// CategoryOrder ranks categories; lower ranks sort first and unranked categories sort last.
type CategoryOrder map[uuid.UUID]int

type Page struct {
	Skip  int
	Limit int
}

// Normalized clamps a negative skip to 0 and a non-positive limit to the
// default, capping the limit at MaxPageLimit.
func (p Page) Normalized() Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

type JointPurchaseRepo interface {
	Create(dbc dbctx.Context, purchase *types.JointPurchase) error
	// GetByID loads a purchase with participants (join order) and history (append order).
	// A missing purchase returns (nil, nil).
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JointPurchase, error)
	Find(dbc dbctx.Context, filter PurchaseFilter, page Page, order CategoryOrder) ([]*types.JointPurchase, int64, error)
	ListByCreator(dbc dbctx.Context, creatorID uuid.UUID) ([]*types.JointPurchase, error)
	ListByParticipant(dbc dbctx.Context, userID uuid.UUID) ([]*types.JointPurchase, error)

	CreateParticipant(dbc dbctx.Context, participant *types.Participant) error
	DeleteParticipant(dbc dbctx.Context, participantID uuid.UUID) error
	UpdateParticipantFields(dbc dbctx.Context, participantID uuid.UUID, updates map[string]interface{}) error
	AppendHistory(dbc dbctx.Context, entry *types.HistoryEntry) error
}

type jointPurchaseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJointPurchaseRepo(db *gorm.DB, baseLog *logger.Logger) JointPurchaseRepo {
	repoLog := baseLog.With("repo", "JointPurchaseRepo")
	return &jointPurchaseRepo{db: db, log: repoLog}
}

func (r *jointPurchaseRepo) Create(dbc dbctx.Context, purchase *types.JointPurchase) error {
	if purchase == nil {
		return errors.New("nil purchase")
	}
	return dbc.DB(r.db).Omit(clause.Associations).Create(purchase).Error
}

func withChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") })
}

func (r *jointPurchaseRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JointPurchase, error) {
	var out types.JointPurchase
	err := withChildren(dbc.DB(r.db)).Where("id = ?", id).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *jointPurchaseRepo) Find(dbc dbctx.Context, filter PurchaseFilter, page Page, order CategoryOrder) ([]*types.JointPurchase, int64, error) {
	page = page.Normalized()
	q := applyFilter(dbc.DB(r.db).Model(&types.JointPurchase{}), filter)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*types.JointPurchase
	if err := q.
		Order(findOrder(order)).
		Offset(page.Skip).
		Limit(page.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func applyFilter(q *gorm.DB, f PurchaseFilter) *gorm.DB {
	if len(f.CategoryIDs) > 0 {
		q = q.Where("category_id IN ?", f.CategoryIDs)
	}
	if f.CityID != nil {
		q = q.Where("city_id = ?", *f.CityID)
	}
	if f.CreatorID != nil {
		q = q.Where("creator_id = ?", *f.CreatorID)
	}
	if f.GoodID != nil {
		q = q.Where("good_id = ?", *f.GoodID)
	}
	if f.State != nil {
		q = q.Where("state = ?", int(*f.State))
	}
	if f.IsPublic != nil {
		q = q.Where("is_public = ?", *f.IsPublic)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	return q
}

const activityOrder = "last_activity_at DESC, id ASC"

// findOrder builds the whole ORDER BY as one clause. gorm merges successive
// Order calls by columns only, so a CASE expression would be dropped.
// Ranks are inlined; postgres cannot infer a type for bare THEN parameters.
func findOrder(order CategoryOrder) clause.OrderBy {
	if len(order) == 0 {
		return clause.OrderBy{Expression: clause.Expr{SQL: activityOrder, WithoutParentheses: true}}
	}
	var (
		sb   strings.Builder
		vars []interface{}
		last int
	)
	sb.WriteString("CASE category_id")
	for id, rank := range order {
		sb.WriteString(fmt.Sprintf(" WHEN ? THEN %d", rank))
		vars = append(vars, id)
		if rank > last {
			last = rank
		}
	}
	sb.WriteString(fmt.Sprintf(" ELSE %d END, %s", last+1, activityOrder))
	return clause.OrderBy{Expression: clause.Expr{SQL: sb.String(), Vars: vars, WithoutParentheses: true}}
}
