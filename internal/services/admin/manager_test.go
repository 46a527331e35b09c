package admin

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/yeargame/internal/dependencies/mocks"
	"github.com/mcoot/yeargame/internal/model"
)

type ManagerSuite struct {
	suite.Suite
	random  *mocks.MockRandom
	manager *Manager
	issued  time.Time
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.random = mocks.NewMockRandom()
	s.manager = New(s.random, Config{HashCost: bcrypt.MinCost})
	s.issued = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// Issue tests

func (s *ManagerSuite) TestIssueReturnsPrefixedToken() {
	s.random.QueueToken("abc")

	token, cred, err := s.manager.Issue(s.issued)
	s.Require().NoError(err)
	s.Equal("adm_abc", token)
	s.True(strings.HasPrefix(token, TokenPrefix))
	s.NotEqual(token, cred.TokenHash) // Should be hashed
}

func (s *ManagerSuite) TestIssueSetsExpiry() {
	_, cred, err := s.manager.Issue(s.issued)
	s.Require().NoError(err)
	s.Equal(s.issued, cred.IssuedAt)
	s.Equal(s.issued.Add(24*time.Hour), cred.ExpiresAt)
}

func (s *ManagerSuite) TestIssueProducesDistinctTokens() {
	first, _, err := s.manager.Issue(s.issued)
	s.Require().NoError(err)
	second, _, err := s.manager.Issue(s.issued)
	s.Require().NoError(err)
	s.NotEqual(first, second)
}

// Validate tests

func (s *ManagerSuite) TestValidateAcceptsIssuedToken() {
	token, cred, _ := s.manager.Issue(s.issued)
	s.True(s.manager.Validate(cred, token, s.issued))
}

func (s *ManagerSuite) TestValidateJustBeforeExpiry() {
	token, cred, _ := s.manager.Issue(s.issued)
	s.True(s.manager.Validate(cred, token, s.issued.Add(23*time.Hour+59*time.Minute)))
	s.True(s.manager.Validate(cred, token, s.issued.Add(24*time.Hour)))
}

func (s *ManagerSuite) TestValidateAfterExpiry() {
	token, cred, _ := s.manager.Issue(s.issued)
	s.False(s.manager.Validate(cred, token, s.issued.Add(24*time.Hour+time.Second)))
}

func (s *ManagerSuite) TestValidateRejectsWrongToken() {
	_, cred, _ := s.manager.Issue(s.issued)
	s.False(s.manager.Validate(cred, "adm_wrong", s.issued))
	s.False(s.manager.Validate(cred, "", s.issued))
}

func (s *ManagerSuite) TestValidateRejectsPlayerToken() {
	_, cred, _ := s.manager.Issue(s.issued)
	s.False(s.manager.Validate(cred, "ply_token-1", s.issued))
}

func (s *ManagerSuite) TestReissueInvalidatesPreviousToken() {
	oldToken, _, _ := s.manager.Issue(s.issued)
	newToken, newCred, _ := s.manager.Issue(s.issued.Add(time.Minute))

	s.False(s.manager.Validate(newCred, oldToken, s.issued.Add(time.Minute)))
	s.True(s.manager.Validate(newCred, newToken, s.issued.Add(time.Minute)))
}

func (s *ManagerSuite) TestValidateRejectsEmptyCredential() {
	s.False(s.manager.Validate(model.AdminCredential{}, "adm_x", s.issued))
}

// Authorize tests

func (s *ManagerSuite) TestAuthorize() {
	token, cred, _ := s.manager.Issue(s.issued)
	s.NoError(s.manager.Authorize(cred, token, s.issued))
	s.ErrorIs(s.manager.Authorize(cred, "adm_bad", s.issued), model.ErrPermissionDenied)
}

func (s *ManagerSuite) TestDefaultConfig() {
	m := New(s.random, Config{})
	s.Equal(24*time.Hour, m.cfg.TokenLifetime)
	s.Equal(bcrypt.DefaultCost, m.cfg.HashCost)
}
