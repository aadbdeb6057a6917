package model

import "github.com/google/uuid"

// AppearanceID selects which character variant an avatar is drawn as
type AppearanceID uuid.UUID

// NilAppearance is the zero appearance, meaning none chosen
var NilAppearance AppearanceID

// ParseAppearanceID parses the canonical UUID form
func ParseAppearanceID(s string) (AppearanceID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NilAppearance, err
	}
	return AppearanceID(id), nil
}

// NewAppearanceID returns a fresh random appearance id
func NewAppearanceID() AppearanceID {
	return AppearanceID(uuid.New())
}

func (a AppearanceID) String() string {
	return uuid.UUID(a).String()
}

// IsNil reports whether no appearance has been chosen
func (a AppearanceID) IsNil() bool {
	return a == NilAppearance
}

func (a AppearanceID) MarshalText() ([]byte, error) {
	return uuid.UUID(a).MarshalText()
}

func (a *AppearanceID) UnmarshalText(data []byte) error {
	var id uuid.UUID
	if err := id.UnmarshalText(data); err != nil {
		return err
	}
	*a = AppearanceID(id)
	return nil
}
