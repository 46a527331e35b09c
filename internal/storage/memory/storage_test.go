package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/yeargame/internal/model"
	"github.com/mcoot/yeargame/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.Storage = s.storage
	s.Ctx = context.Background()
}

func (s *StorageSuite) TestConcurrentSaves() {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session := storagetest.NewSession("pub")
			session.RoundNumber = i
			_ = s.storage.SaveSession(s.Ctx, session)
			_, _ = s.storage.GetSession(s.Ctx, "pub")
		}(i)
	}
	wg.Wait()

	tenants, err := s.storage.ListTenants(s.Ctx)
	s.Require().NoError(err)
	s.Equal([]model.TenantID{"pub"}, tenants)
}

func (s *StorageSuite) TestCloseIsNoop() {
	s.NoError(s.storage.Close())
}
