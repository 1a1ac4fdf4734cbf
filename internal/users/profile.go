package users

import (
	"github.com/labujaya/lastbite/pkg/apiclient"
	"github.com/labujaya/lastbite/pkg/types"
)

type Profile struct {
	ID              types.ID `json:"id"`
	Username        string   `json:"username"`
	FullName        string   `json:"fullName"`
	Email           string   `json:"email"`
	PhoneNumber     string   `json:"phoneNumber"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	ProfileImageURL string   `json:"profileImageUrl,omitempty"`
}

// Coordinates returns the saved location, if both parts are known.
func (p Profile) Coordinates() (types.Coordinates, bool) {
	if p.Latitude == nil || p.Longitude == nil {
		return types.Coordinates{}, false
	}
	return types.Coordinates{Latitude: *p.Latitude, Longitude: *p.Longitude}, true
}

func (p Profile) clone() Profile {
	out := p
	if p.Latitude != nil {
		lat := *p.Latitude
		out.Latitude = &lat
	}
	if p.Longitude != nil {
		lon := *p.Longitude
		out.Longitude = &lon
	}
	return out
}

func toProfile(dto *apiclient.ProfileDTO) Profile {
	if dto == nil {
		return Profile{}
	}
	return Profile{
		ID:              dto.ID,
		Username:        dto.Username,
		FullName:        dto.FullName,
		Email:           dto.Email,
		PhoneNumber:     dto.PhoneNumber,
		Latitude:        dto.Latitude,
		Longitude:       dto.Longitude,
		ProfileImageURL: dto.ProfileImageURL,
	}.clone()
}
