package response

import (
	"github.com/mcoot/yeargame/internal/model"
)

// CreateSessionResponse is the response for session creation.
// AdminToken is only ever returned here.
type CreateSessionResponse struct {
	Session    model.PublicSession `json:"session"`
	AdminToken string              `json:"admin_token"`
}

// CreateSessionResponseFromModel builds a CreateSessionResponse
func CreateSessionResponseFromModel(s *model.GameSession, adminToken string) CreateSessionResponse {
	return CreateSessionResponse{
		Session:    s.Public(),
		AdminToken: adminToken,
	}
}

// TenantList is the response for listing tenants
type TenantList struct {
	Tenants []string `json:"tenants"`
}

// TenantListFromModel converts tenant ids
func TenantListFromModel(tenants []model.TenantID) TenantList {
	list := TenantList{Tenants: make([]string, len(tenants))}
	for i, t := range tenants {
		list.Tenants[i] = string(t)
	}
	return list
}

// JoinResponse is the response for joining a session
type JoinResponse struct {
	Player      model.PublicPlayer `json:"player"`
	PlayerToken string             `json:"player_token"`
}

// JoinResponseFromModel builds a JoinResponse
func JoinResponseFromModel(p *model.Player) JoinResponse {
	return JoinResponse{
		Player:      p.Public(),
		PlayerToken: p.Token,
	}
}

// Guess is a player's own guess
type Guess struct {
	Player string `json:"player"`
	Year   int    `json:"year"`
	Bet    bool   `json:"bet"`
}

// GuessFromModel converts model.Guess
func GuessFromModel(g *model.Guess) Guess {
	return Guess{
		Player: g.Player,
		Year:   g.Year,
		Bet:    g.Bet,
	}
}

// JoinLink is the response describing how players reach a session
type JoinLink struct {
	Tenant    string `json:"tenant"`
	JoinURL   string `json:"join_url"`
	SocketURL string `json:"ws_url"`
	QRCodeURL string `json:"qr_code_url"`
}
