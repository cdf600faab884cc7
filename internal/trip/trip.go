package trip

import (
	"time"

	tripDatamodel "github.com/frahmantamala/trip-expense/internal/core/datamodel/trip"
)

type Trip struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"ownerId"`
	Members   []Member  `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
}

type Member struct {
	UserID   string    `json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`
}

func (t *Trip) HasMember(userID string) bool {
	for _, m := range t.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// MemberIDs returns member ids in join order.
func (t *Trip) MemberIDs() []string {
	ids := make([]string, len(t.Members))
	for i, m := range t.Members {
		ids[i] = m.UserID
	}
	return ids
}

func (t *Trip) IsOwner(userID string) bool {
	return t.OwnerID == userID
}

func ToDataModel(t *Trip) (*tripDatamodel.Trip, []tripDatamodel.Member) {
	members := make([]tripDatamodel.Member, len(t.Members))
	for i, m := range t.Members {
		members[i] = tripDatamodel.Member{TripID: t.ID, UserID: m.UserID, JoinedAt: m.JoinedAt}
	}
	return &tripDatamodel.Trip{
		ID:        t.ID,
		Name:      t.Name,
		OwnerID:   t.OwnerID,
		CreatedAt: t.CreatedAt,
	}, members
}

func FromDataModel(t *tripDatamodel.Trip, members []tripDatamodel.Member) *Trip {
	out := &Trip{
		ID:        t.ID,
		Name:      t.Name,
		OwnerID:   t.OwnerID,
		CreatedAt: t.CreatedAt,
		Members:   make([]Member, len(members)),
	}
	for i, m := range members {
		out.Members[i] = Member{UserID: m.UserID, JoinedAt: m.JoinedAt}
	}
	return out
}
