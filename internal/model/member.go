package model

type Member struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Points int64  `json:"points"`
}

// MemberSnapshot is the slice of a member that is pushed to display
// surfaces. Displays never see the full account record.
type MemberSnapshot struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Points int64  `json:"points"`
}

func (m *Member) Snapshot() *MemberSnapshot {
	if m == nil {
		return nil
	}
	return &MemberSnapshot{
		Name:   m.Name,
		Phone:  m.Phone,
		Points: m.Points,
	}
}
