package stokvelarepo

import (
	"context"
	"errors"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/model"
	"github.com/greenfina/greenfina/internal/repository"
	"github.com/greenfina/greenfina/pkg/instrument"
	"github.com/greenfina/greenfina/pkg/common"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type stokvelaRepository struct {
	db           *gorm.DB
	ins          *instrument.Instruments
	log          *zap.Logger
	membersAdded metric.Int64Counter
}

// CreateGroup implements repository.StokvelaRepository.
func (s *stokvelaRepository) CreateGroup(ctx context.Context, group *domain.StokvelaGroup) (*domain.StokvelaGroup, error) {
	ctx, q := s.ins.BeginQuery(ctx, "repository.stokvela.CreateGroup", "stokvela_groups", "insert")

	row := model.StokvelaGroupFromEntity(group)
	err := s.db.WithContext(ctx).Create(&row).Error
	q.End(err)
	if err != nil {
		s.log.Error("Failed to create stokvela group", q.Fields(zap.String("name", group.Name), zap.Error(err))...)
		return nil, err
	}

	s.log.Info("Stokvela group created", q.Fields(zap.Uint64("group_id", row.ID), zap.String("name", row.Name))...)
	return model.StokvelaGroupToEntity(row), nil
}

// FindGroupByID implements repository.StokvelaRepository.
func (s *stokvelaRepository) FindGroupByID(ctx context.Context, id uint64) (*domain.StokvelaGroup, error) {
	ctx, q := s.ins.BeginQuery(ctx, "repository.stokvela.FindGroupByID", "stokvela_groups", "select")

	var row model.StokvelaGroup
	err := s.db.WithContext(ctx).Preload("Members").First(&row, id).Error
	q.End(err)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.log.Error("Error finding stokvela group", q.Fields(zap.Uint64("group_id", id), zap.Error(err))...)
		return nil, err
	}

	return model.StokvelaGroupToEntity(row), nil
}

// FindGroupByIDForUpdate implements repository.StokvelaRepository. The
// member count is loaded separately since the lock covers the group row only.
func (s *stokvelaRepository) FindGroupByIDForUpdate(ctx context.Context, id uint64) (*domain.StokvelaGroup, error) {
	ctx, q := s.ins.BeginQuery(ctx, "repository.stokvela.FindGroupByIDForUpdate", "stokvela_groups", "select_for_update")

	var row model.StokvelaGroup
	err := s.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, id).Error
	if err != nil {
		q.End(err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.log.Error("Error locking stokvela group", q.Fields(zap.Uint64("group_id", id), zap.Error(err))...)
		return nil, err
	}

	var count int64
	err = s.db.WithContext(ctx).Model(&model.StokvelaMember{}).Where("group_id = ?", id).Count(&count).Error
	q.End(err)
	if err != nil {
		s.log.Error("Error counting stokvela members", q.Fields(zap.Uint64("group_id", id), zap.Error(err))...)
		return nil, err
	}

	group := model.StokvelaGroupToEntity(row)
	group.MemberCount = int(count)
	return group, nil
}

// ListGroups implements repository.StokvelaRepository.
func (s *stokvelaRepository) ListGroups(ctx context.Context, params domain.Params) ([]domain.StokvelaGroup, int64, error) {
	ctx, q := s.ins.BeginQuery(ctx, "repository.stokvela.ListGroups", "stokvela_groups", "select")

	query := s.db.WithContext(ctx).Model(&model.StokvelaGroup{}).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		q.End(err)
		s.log.Error("Error counting stokvela groups", q.Fields(zap.Error(err))...)
		return nil, 0, err
	}

	_, limit, offset := repository.Paginate(params.Page, params.Limit)

	var rows []model.StokvelaGroup
	err := query.Preload("Members").Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&rows).Error
	q.End(err)
	if err != nil {
		s.log.Error("Error listing stokvela groups", q.Fields(zap.Error(err))...)
		return nil, 0, err
	}

	groups := make([]domain.StokvelaGroup, len(rows))
	for i, row := range rows {
		groups[i] = *model.StokvelaGroupToEntity(row)
	}
	return groups, total, nil
}

// AddMember implements repository.StokvelaRepository. The member joins at
// the back of the queue; callers hold the group lock.
func (s *stokvelaRepository) AddMember(ctx context.Context, member *domain.StokvelaMember) (*domain.StokvelaMember, error) {
	ctx, q := s.ins.BeginQuery(ctx, "repository.stokvela.AddMember", "stokvela_members", "insert")

	var maxPosition int
	err := s.db.WithContext(ctx).Model(&model.StokvelaMember{}).
		Where("group_id = ?", member.GroupID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&maxPosition).Error
	if err != nil {
		q.End(err)
		s.log.Error("Error reading last queue position", q.Fields(zap.Uint64("group_id", member.GroupID), zap.Error(err))...)
		return nil, err
	}

	row := model.StokvelaMemberFromEntity(member)
	row.Position = maxPosition + 1

	err = s.db.WithContext(ctx).Create(&row).Error
	q.End(err)
	if err != nil {
		s.log.Error("Failed to add stokvela member", q.Fields(
			zap.Uint64("group_id", member.GroupID),
			zap.Uint64("user_id", member.UserID),
			zap.Error(err),
		)...)
		return nil, err
	}

	s.membersAdded.Add(ctx, 1)
	q.Span().SetAttributes(attribute.Int("member.position", row.Position))
	s.log.Info("Stokvela member added", q.Fields(
		zap.Uint64("group_id", row.GroupID),
		zap.Uint64("member_id", row.ID),
		zap.Int("position", row.Position),
	)...)

	return model.StokvelaMemberToEntity(row), nil
}

// FindMembersByGroup implements repository.StokvelaRepository.
func (s *stokvelaRepository) FindMembersByGroup(ctx context.Context, groupID uint64) ([]domain.StokvelaMember, error) {
	return s.members(ctx, "repository.stokvela.FindMembersByGroup", "select", s.db, groupID)
}

// FindMembersByGroupForUpdate implements repository.StokvelaRepository.
func (s *stokvelaRepository) FindMembersByGroupForUpdate(ctx context.Context, groupID uint64) ([]domain.StokvelaMember, error) {
	return s.members(ctx, "repository.stokvela.FindMembersByGroupForUpdate", "select_for_update",
		s.db.Clauses(clause.Locking{Strength: "UPDATE"}), groupID)
}

func (s *stokvelaRepository) members(ctx context.Context, span, op string, db *gorm.DB, groupID uint64) ([]domain.StokvelaMember, error) {
	ctx, q := s.ins.BeginQuery(ctx, span, "stokvela_members", op)

	var rows []model.StokvelaMember
	err := db.WithContext(ctx).Where("group_id = ?", groupID).Order("position ASC").Order("id ASC").Find(&rows).Error
	q.End(err)
	if err != nil {
		s.log.Error("Error listing stokvela members", q.Fields(zap.Uint64("group_id", groupID), zap.Error(err))...)
		return nil, err
	}

	return model.StokvelaMembersToEntity(rows), nil
}

// FindMemberByGroupAndUser implements repository.StokvelaRepository.
func (s *stokvelaRepository) FindMemberByGroupAndUser(ctx context.Context, groupID, userID uint64) (*domain.StokvelaMember, error) {
	ctx, q := s.ins.BeginQuery(ctx, "repository.stokvela.FindMemberByGroupAndUser", "stokvela_members", "select")

	var row model.StokvelaMember
	err := s.db.WithContext(ctx).Where("group_id = ? AND user_id = ?", groupID, userID).First(&row).Error
	q.End(err)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.log.Error("Error finding stokvela membership", q.Fields(
			zap.Uint64("group_id", groupID),
			zap.Uint64("user_id", userID),
			zap.Error(err),
		)...)
		return nil, err
	}

	return model.StokvelaMemberToEntity(row), nil
}

// FindMemberByID implements repository.StokvelaRepository.
func (s *stokvelaRepository) FindMemberByID(ctx context.Context, id uint64) (*domain.StokvelaMember, error) {
	ctx, q := s.ins.BeginQuery(ctx, "repository.stokvela.FindMemberByID", "stokvela_members", "select")

	var row model.StokvelaMember
	err := s.db.WithContext(ctx).First(&row, id).Error
	q.End(err)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.log.Error("Error finding stokvela member", q.Fields(zap.Uint64("member_id", id), zap.Error(err))...)
		return nil, err
	}

	return model.StokvelaMemberToEntity(row), nil
}

// UpdateMember implements repository.StokvelaRepository.
func (s *stokvelaRepository) UpdateMember(ctx context.Context, member *domain.StokvelaMember) error {
	ctx, q := s.ins.BeginQuery(ctx, "repository.stokvela.UpdateMember", "stokvela_members", "update")

	err := s.db.WithContext(ctx).Model(&model.StokvelaMember{}).
		Where("id = ?", member.ID).
		Updates(map[string]any{
			"position":            member.Position,
			"contribution_amount": member.ContributionAmount,
			"amount_contributed":  member.AmountContributed,
			"amount_received":     member.AmountReceived,
			"verified":            member.Verified,
		}).Error
	q.End(err)
	if err != nil {
		s.log.Error("Failed to update stokvela member", q.Fields(zap.Uint64("member_id", member.ID), zap.Error(err))...)
		return err
	}

	return nil
}

// UpdatePositions implements repository.StokvelaRepository.
func (s *stokvelaRepository) UpdatePositions(ctx context.Context, members []domain.StokvelaMember) error {
	ctx, q := s.ins.BeginQuery(ctx, "repository.stokvela.UpdatePositions", "stokvela_members", "update")

	for _, m := range members {
		err := s.db.WithContext(ctx).Model(&model.StokvelaMember{}).
			Where("id = ?", m.ID).
			Update("position", m.Position).Error
		if err != nil {
			q.End(err)
			s.log.Error("Failed to update queue position", q.Fields(
				zap.Uint64("member_id", m.ID),
				zap.Int("position", m.Position),
				zap.Error(err),
			)...)
			return err
		}
	}

	q.End(nil)
	s.log.Info("Rotation queue renumbered", q.Fields(zap.Int("members", len(members)))...)
	return nil
}

// AddContribution implements repository.StokvelaRepository.
func (s *stokvelaRepository) AddContribution(ctx context.Context, memberID uint64, amount float64) error {
	ctx, q := s.ins.BeginQuery(ctx, "repository.stokvela.AddContribution", "stokvela_members", "update")

	res := s.db.WithContext(ctx).Model(&model.StokvelaMember{}).
		Where("id = ?", memberID).
		Update("amount_contributed", gorm.Expr("amount_contributed + ?", amount))
	err := res.Error
	if err == nil && res.RowsAffected == 0 {
		err = common.ErrMemberNotFound
	}
	q.End(err)
	if err != nil {
		s.log.Error("Failed to record contribution", q.Fields(zap.Uint64("member_id", memberID), zap.Error(err))...)
		return err
	}

	s.log.Info("Contribution recorded", q.Fields(zap.Uint64("member_id", memberID), zap.Float64("amount", amount))...)
	return nil
}

func NewStokvelaRepository(
	db *gorm.DB,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) repository.StokvelaRepository {
	membersAdded, _ := meter.Int64Counter(
		"db.stokvela_members.added",
		metric.WithDescription("Number of members that joined a stokvela"),
		metric.WithUnit("{member}"),
	)

	return &stokvelaRepository{
		db:           db,
		ins:          repository.NewInstruments(meter, tracer),
		log:          log,
		membersAdded: membersAdded,
	}
}
