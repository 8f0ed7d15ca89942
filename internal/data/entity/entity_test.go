package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMovie() *Movie {
	return &Movie{
		Base:          Base{ID: uuid.MustParse("f3e66584-f793-4f5e-9dec-904ca00e2dd6")},
		Title:         "Pulp Fiction",
		BasePrice:     45.75,
		ScreeningRoom: 1,
		SeatCapacity:  100,
	}
}

func TestCanonicalBytesAreDeterministic(t *testing.T) {
	m := sampleMovie()
	first, err := CanonicalBytes(m)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := CanonicalBytes(m)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEqualDetectsEveryCanonicalField(t *testing.T) {
	base := sampleMovie()
	mutations := map[string]func(m *Movie){
		"title": func(m *Movie) { m.Title = "Cars" },
		"price": func(m *Movie) { m.BasePrice = 45.76 },
		"room":  func(m *Movie) { m.ScreeningRoom = 2 },
		"seats": func(m *Movie) { m.SeatCapacity = 99 },
		"id":    func(m *Movie) { m.ID = uuid.New() },
	}
	for name, mutate := range mutations {
		changed := *base
		mutate(&changed)
		assert.False(t, Equal(base, &changed), name)
	}
	same := *base
	assert.True(t, Equal(base, &same))
}

func TestPriceRounding(t *testing.T) {
	assert.Equal(t, 45.75, RoundPrice(45.7499999))
	assert.Equal(t, int64(4575), Cents(45.75))
	assert.Equal(t, int64(3050), Cents(30.5))
}

func TestNewTicketFreezesPrice(t *testing.T) {
	m := sampleMovie()
	u := &Client{Account: Account{Base: Base{ID: uuid.New()}, Login: "abcdefgh", Password: "x", Active: true}}
	at := time.Date(2026, 10, 19, 20, 30, 0, 0, time.FixedZone("CET", 3600))

	normal, err := NewTicket(uuid.New(), at, TicketTypeNormal, u, m)
	require.NoError(t, err)
	assert.Equal(t, 45.75, normal.FinalPrice)
	assert.Equal(t, time.UTC, normal.ScreeningTime.Location())
	assert.Equal(t, u.ID, normal.UserID)
	assert.Equal(t, m.ID, normal.MovieID)

	reduced, err := NewTicket(uuid.New(), at, TicketTypeReduced, u, m)
	require.NoError(t, err)
	assert.Equal(t, 34.31, reduced.FinalPrice)

	_, err = NewTicket(uuid.New(), at, TicketType("vip"), u, m)
	assert.Error(t, err)
}

func TestUserRoundTripKeepsVariant(t *testing.T) {
	for _, role := range Roles {
		u, err := NewUser(role, Account{Base: Base{ID: uuid.New()}, Login: "someLogin1", Password: "hash", Active: true})
		require.NoError(t, err)

		doc, err := EncodeUser(u)
		require.NoError(t, err)
		assert.Contains(t, string(doc), `"user_role":"`+string(role)+`"`)

		decoded, err := DecodeUser(doc)
		require.NoError(t, err)
		assert.Equal(t, role, decoded.Role())
		assert.IsType(t, u, decoded)
		assert.True(t, Equal(u, decoded))
	}
}

func TestDecodeUserRejectsUnknownTag(t *testing.T) {
	_, err := DecodeUser([]byte(`{"id":"9b9e1de2-099b-415d-96b4-f7cfc8897318","user_login":"someLogin1","user_role":"manager"}`))
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = DecodeUser([]byte(`{"id":"9b9e1de2-099b-415d-96b4-f7cfc8897318","user_login":"someLogin1"}`))
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestVariantsDifferCanonically(t *testing.T) {
	acc := Account{Base: Base{ID: uuid.New()}, Login: "someLogin1", Password: "hash", Active: true}
	staff, _ := NewUser(RoleStaff, acc)
	admin, _ := NewUser(RoleAdmin, acc)
	assert.False(t, Equal(staff, admin))
}

func TestCloneUserIsIndependent(t *testing.T) {
	u, _ := NewUser(RoleClient, Account{Base: Base{ID: uuid.New()}, Login: "someLogin1", Password: "hash", Active: true})
	clone := CloneUser(u)
	clone.Data().Active = false
	assert.True(t, u.Data().Active)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("staff")
	require.NoError(t, err)
	assert.Equal(t, RoleStaff, r)

	_, err = ParseRole("Staff")
	assert.ErrorIs(t, err, ErrUnknownRole)
}
