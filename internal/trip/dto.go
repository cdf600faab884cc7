package trip

import (
	"strings"

	"github.com/frahmantamala/trip-expense/internal"
	"github.com/frahmantamala/trip-expense/internal/core/common/validation"
)

type CreateTripDTO struct {
	Name    string   `json:"name"`
	Members []string `json:"members,omitempty"`
}

func (d *CreateTripDTO) Validate() *internal.AppError {
	d.Name = strings.TrimSpace(d.Name)
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(200)
	for _, m := range d.Members {
		v.Field("members", strings.TrimSpace(m)).Required()
	}
	return v.Validate()
}

type AddMemberDTO struct {
	UserID string `json:"userId"`
}

func (d *AddMemberDTO) Validate() *internal.AppError {
	d.UserID = strings.TrimSpace(d.UserID)
	v := validation.NewValidator()
	v.Field("userId", d.UserID).Required().MaxLength(64)
	return v.Validate()
}
