package repository

import (
	"github.com/jeongwonlab/possync/internal/model"
)

type MemberEntity struct {
	ID     string `db:"id"     gorm:"primaryKey;column:id"`
	Name   string `db:"name"   gorm:"column:name;not null"`
	Phone  string `db:"phone"  gorm:"column:phone;not null;index"`
	Points int64  `db:"points" gorm:"column:points;not null;default:0"`
}

func (MemberEntity) TableName() string {
	return "members"
}

func toMemberEntity(m *model.Member) *MemberEntity {
	if m == nil {
		return nil
	}
	return &MemberEntity{
		ID:     m.ID,
		Name:   m.Name,
		Phone:  m.Phone,
		Points: m.Points,
	}
}

func toMemberModel(e *MemberEntity) *model.Member {
	if e == nil {
		return nil
	}
	return &model.Member{
		ID:     e.ID,
		Name:   e.Name,
		Phone:  e.Phone,
		Points: e.Points,
	}
}

func toMemberModels(entities []*MemberEntity) []*model.Member {
	if entities == nil {
		return nil
	}
	models := make([]*model.Member, len(entities))
	for i, e := range entities {
		models[i] = toMemberModel(e)
	}
	return models
}
