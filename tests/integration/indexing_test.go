package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/getAsterisk/blockoli/internal/indexer"
	"github.com/getAsterisk/blockoli/internal/storage"
	"github.com/getAsterisk/blockoli/pkg/types"
)

// IndexingTestSuite runs the full extract-embed-store pipeline against the
// fixtures directory on a SQLite store.
type IndexingTestSuite struct {
	suite.Suite
	store       storage.Store
	indexer     *indexer.Indexer
	embedder    *MockEmbedder
	fixturesDir string
	ctx         context.Context
}

func (s *IndexingTestSuite) SetupSuite() {
	s.ctx = context.Background()

	wd, err := os.Getwd()
	s.Require().NoError(err)
	s.fixturesDir = filepath.Join(filepath.Dir(wd), "testdata", "fixtures")
}

func (s *IndexingTestSuite) SetupTest() {
	store, err := storage.NewSQLiteStore(":memory:")
	s.Require().NoError(err)
	s.store = store

	s.embedder = NewMockEmbedder(384)
	s.indexer = indexer.New(s.store, s.embedder, nil)

	s.Require().NoError(s.store.CreateProject(s.ctx, "fixtures"))
}

func (s *IndexingTestSuite) TearDownTest() {
	if s.store != nil {
		_ = s.store.Close()
	}
}

func (s *IndexingTestSuite) indexFixtures() *types.IndexReport {
	report, err := s.indexer.IndexDirectory(s.ctx, "fixtures", s.fixturesDir, nil)
	s.Require().NoError(err)
	return report
}

func (s *IndexingTestSuite) TestIndexFixturesDirectory() {
	report := s.indexFixtures()

	s.Equal("fixtures", report.Project)
	s.NotEmpty(report.RunID)
	s.Positive(report.BlocksIndexed)
	s.Equal(report.BlocksIndexed, report.BlocksEmbedded)
	s.Equal(1, report.FilesFailed, "only malformed.go fails")

	var failed *types.FileStatus
	for i := range report.Files {
		if report.Files[i].Failed() {
			failed = &report.Files[i]
		}
	}
	s.Require().NotNil(failed)
	s.Equal("malformed.go", filepath.Base(failed.Path))
	s.Require().NotNil(failed.ParseError)
}

func (s *IndexingTestSuite) TestIndexedBlocksAreQueryable() {
	s.indexFixtures()

	blocks, err := s.store.FindByFunctionName(s.ctx, "fixtures", "AuthenticateUser")
	s.Require().NoError(err)
	s.Require().Len(blocks, 1)
	s.Equal(types.BlockFunction, blocks[0].Kind)
	s.Contains(blocks[0].Content, "ConstantTimeCompare")
	s.True(blocks[0].HasEmbedding())

	methods, err := s.store.FindByFunctionName(s.ctx, "fixtures", "FindUser")
	s.Require().NoError(err)
	s.Require().Len(methods, 1)
	s.Equal(types.BlockMethod, methods[0].Kind)
	s.Equal("UserStore", methods[0].Scope)
}

func (s *IndexingTestSuite) TestReindexIsStable() {
	first := s.indexFixtures()
	firstBlocks, err := s.store.ListBlocks(s.ctx, "fixtures")
	s.Require().NoError(err)

	second := s.indexFixtures()
	secondBlocks, err := s.store.ListBlocks(s.ctx, "fixtures")
	s.Require().NoError(err)

	s.Equal(first.BlocksIndexed, second.BlocksIndexed)
	s.Require().Len(secondBlocks, len(firstBlocks))
	for i := range firstBlocks {
		s.Equal(firstBlocks[i].ID, secondBlocks[i].ID, "IDs survive reindex")
		s.Equal(firstBlocks[i].MatchKey(), secondBlocks[i].MatchKey())
	}

	p, err := s.store.GetProject(s.ctx, "fixtures")
	s.Require().NoError(err)
	s.Equal(uint64(2), p.Generation)
}

func (s *IndexingTestSuite) TestReindexDropsRemovedFunctions() {
	_, err := s.indexer.Reindex(s.ctx, "fixtures", []types.SourceFile{
		{Path: "svc.go", Source: []byte("package svc\n\nfunc Keep() {}\n\nfunc Drop() {}\n")},
	})
	s.Require().NoError(err)

	// Drop was removed from the file, so the next reindex must delete it
	_, err = s.indexer.Reindex(s.ctx, "fixtures", []types.SourceFile{
		{Path: "svc.go", Source: []byte("package svc\n\nfunc Keep() {}\n")},
	})
	s.Require().NoError(err)

	blocks, err := s.store.ListBlocks(s.ctx, "fixtures")
	s.Require().NoError(err)
	names := make([]string, 0, len(blocks))
	for _, b := range blocks {
		names = append(names, b.Name)
	}
	s.Contains(names, "Keep")
	s.NotContains(names, "Drop")
}

func (s *IndexingTestSuite) TestIndexUnknownProject() {
	_, err := s.indexer.IndexDirectory(s.ctx, "ghost", s.fixturesDir, nil)
	s.ErrorIs(err, types.ErrProjectNotFound)
}

func TestIndexingSuite(t *testing.T) {
	suite.Run(t, new(IndexingTestSuite))
}
